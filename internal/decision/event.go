package decision

import (
	"net/url"
	"strings"
)

// Field types observed on a submitted form.
const (
	FieldText     = "text"
	FieldPassword = "password"
	FieldEmail    = "email"
	FieldHidden   = "hidden"
)

// FormField is one input element of a submitted form.
type FormField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FormSubmitEvent describes one form submission to be checked.
type FormSubmitEvent struct {
	FormOrigin     string      `json:"form_origin"`
	ActionURL      string      `json:"action_url"`
	Fields         []FormField `json:"fields"`
	UserInteracted bool        `json:"user_interacted"`
	Autofill       bool        `json:"autofill"`
	AutofillField  string      `json:"autofill_field,omitempty"`
}

// HasPasswordField reports whether any field is a password input.
func (e FormSubmitEvent) HasPasswordField() bool {
	return e.countType(FieldPassword) > 0
}

// HasEmailField reports whether any field is an email input.
func (e FormSubmitEvent) HasEmailField() bool {
	return e.countType(FieldEmail) > 0
}

func (e FormSubmitEvent) countType(t string) int {
	n := 0
	for _, f := range e.Fields {
		if f.Type == t {
			n++
		}
	}
	return n
}

// ActionOrigin derives the scheme://host[:port] origin of the form's
// action URL, lowercased. Empty on unparseable input.
func (e FormSubmitEvent) ActionOrigin() string {
	u, err := url.Parse(e.ActionURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// UsesHTTPS reports whether the action URL is https.
func (e FormSubmitEvent) UsesHTTPS() bool {
	u, err := url.Parse(e.ActionURL)
	return err == nil && strings.EqualFold(u.Scheme, "https")
}

// CrossOrigin reports whether the form posts to a different origin than
// the page it lives on.
func (e FormSubmitEvent) CrossOrigin() bool {
	action := e.ActionOrigin()
	return action != "" && !strings.EqualFold(e.FormOrigin, action)
}
