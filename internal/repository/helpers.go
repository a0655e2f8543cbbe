package repository

import (
	"encoding/json"
	"fmt"
	"time"
)

// createdField holds created_at as epoch milliseconds so range filters work
// on a plain number regardless of how the server orders strings.
const createdField = "created_ms"

// toDoc converts a record into the map form OxiDB stores.
func toDoc(v any, created time.Time) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	doc[createdField] = created.UnixMilli()
	return doc, nil
}

// fromDoc decodes a stored document into out, dropping server-side fields.
func fromDoc(doc map[string]any, out any) error {
	delete(doc, "_id")
	delete(doc, createdField)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal doc: %w", err)
	}
	return nil
}

func createdQuery(before time.Time) map[string]any {
	if before.IsZero() {
		return map[string]any{}
	}
	return map[string]any{createdField: map[string]any{"$lt": before.UnixMilli()}}
}
