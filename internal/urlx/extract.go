package urlx

import (
	"errors"
	"math"
	"net"
	"net/url"
	"strings"
)

// ErrMalformedURL means no parseable host exists in the input.
// Callers on the navigation path recover this to a Safe verdict.
var ErrMalformedURL = errors.New("malformed url")

// ZeroRiskScheme reports schemes that carry no remote destination and are
// short-circuited by the caller before extraction.
func ZeroRiskScheme(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, scheme := range []string{"javascript:", "data:", "about:", "blob:"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// Features are the extracted URL properties the scorer consumes.
type Features struct {
	Host             string
	Labels           []string
	TLD              string
	DomainName       string // host minus TLD, e.g. "login.paypal" for login.paypal.com
	RegistrableLabel string // label left of the TLD, e.g. "paypal"
	IsIPLiteral      bool
	SubdomainCount   int
	Entropy          float64
	UsesHTTPS        bool
}

// Extract parses a URL string into Features.
// Inputs without a scheme are treated as https hosts, matching how users
// type addresses. A leading "www." label is stripped before analysis.
func Extract(raw string) (Features, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Features{}, ErrMalformedURL
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil || u.Host == "" {
			return Features{}, ErrMalformedURL
		}
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Features{}, ErrMalformedURL
	}

	f := Features{
		Host:      host,
		UsesHTTPS: strings.EqualFold(u.Scheme, "https"),
	}

	if isIPLiteral(host) {
		f.IsIPLiteral = true
		f.DomainName = host
		f.Labels = []string{host}
		f.Entropy = shannonEntropy(host)
		return f, nil
	}

	host = strings.TrimPrefix(host, "www.")
	f.Host = host
	f.Labels = strings.Split(host, ".")

	if n := len(f.Labels); n >= 2 {
		f.TLD = f.Labels[n-1]
		f.RegistrableLabel = f.Labels[n-2]
		f.DomainName = strings.Join(f.Labels[:n-1], ".")
		f.SubdomainCount = n - 2
	} else {
		f.RegistrableLabel = host
		f.DomainName = host
	}

	f.Entropy = shannonEntropy(f.DomainName)
	return f, nil
}

// isIPLiteral matches dotted-quad IPv4 and bracketed or bare IPv6 hosts.
// url.Hostname already strips IPv6 brackets.
func isIPLiteral(host string) bool {
	return net.ParseIP(host) != nil
}

// shannonEntropy computes bits per character over the byte distribution.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	entropy := 0.0
	size := float64(len(s))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / size
		entropy -= p * math.Log2(p)
	}
	return entropy
}
