package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

var (
	// ErrDIDMismatch is returned when a plain document declares a different id than its NFT derives.
	ErrDIDMismatch = errors.New("document id does not match derived DID")

	// ErrInvalidDocument is returned when a plain document is not a JSON object.
	ErrInvalidDocument = errors.New("invalid document payload")
)

// Document is the stored form of a metadata payload.
type Document struct {
	// Body is the JSON document, or nil when the payload is opaque.
	Body json.RawMessage
	// Opaque is set for compressed or encrypted payloads, which are kept as raw bytes.
	Opaque bool
}

// ParseDocument validates the payload of a metadata event.
// Plain payloads must be JSON objects whose "id", when present, equals md.DID.
func ParseDocument(md indexer.Metadata) (Document, error) {
	if md.Compressed() || md.Encrypted() {
		return Document{Opaque: true}, nil
	}

	if trimmed := bytes.TrimSpace(md.Data); len(trimmed) == 0 || trimmed[0] != '{' {
		return Document{}, fmt.Errorf("%w: not a JSON object", ErrInvalidDocument)
	}

	var header struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(md.Data, &header); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if header.ID != "" && header.ID != md.DID {
		return Document{}, fmt.Errorf("%w: declared %s, derived %s", ErrDIDMismatch, header.ID, md.DID)
	}

	return Document{Body: json.RawMessage(md.Data)}, nil
}
