package remote

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
)

// Encode converts a tagged struct into a Document using its json field names.
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return doc, nil
}

// Decode fills dst from doc.
func Decode(doc Document, dst any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// DecodeAll decodes every document, skipping the ones that do not fit T.
func DecodeAll[T any](docs []Document) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := Decode(doc, &v); err != nil {
			log.Warn("Skipping malformed document", "id", doc.ID(), "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// normalize gives v the shape it would have after a JSON round trip, so
// numbers compare as float64 and nested structs become maps.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
