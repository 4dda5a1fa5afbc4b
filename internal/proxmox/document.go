package proxmox

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a decoded API response.
//
// Every Proxmox VE response wraps its payload in a {"data": ...} envelope.
// Document keeps the payload as raw JSON so callers decode it into the typed
// structure for the endpoint they called (see types.go).
type Document struct {
	Data json.RawMessage `json:"data"`
}

// decodeDocument parses a response body into a Document. An empty body is
// treated as a document with null data.
func decodeDocument(body []byte) (*Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &Document{Data: json.RawMessage("null")}, nil
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, NewMalformedResponseError("failed to decode response body: %v", err)
	}
	if doc.Data == nil {
		doc.Data = json.RawMessage("null")
	}
	return &doc, nil
}

// IsNull reports whether the payload is absent or JSON null.
func (d *Document) IsNull() bool {
	return d == nil || len(d.Data) == 0 || bytes.Equal(bytes.TrimSpace(d.Data), []byte("null"))
}

// Decode unmarshals the payload into v.
func (d *Document) Decode(v any) error {
	if d.IsNull() {
		return NewMalformedResponseError("response has no data")
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return NewMalformedResponseError("unexpected data shape: %v", err)
	}
	return nil
}

// String returns the payload as a string. Mutating endpoints answer with the
// task handle (UPID) as a bare JSON string.
func (d *Document) String() (string, error) {
	var s string
	if err := d.Decode(&s); err != nil {
		return "", fmt.Errorf("expected string data: %w", err)
	}
	return s, nil
}
