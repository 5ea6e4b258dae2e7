package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/sentinel/internal/store"
)

func decodeDocument(data []byte) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse policy document: %w", err)
	}
	return doc, nil
}
