package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Collections used by the engine.
const (
	CollectionGames  = "games"
	CollectionPoints = "playerPoints"
)

// Ledger field names incremented on settlement.
const (
	FieldPlayerOnePoints = "playerOnePoints"
	FieldPlayerTwoPoints = "playerTwoPoints"
)

// Document is a schemaless record held by a document store. Values are
// JSON-compatible; numbers decode as json.Number.
type Document map[string]any

// EncodeDocument converts a JSON-tagged struct into a Document.
func EncodeDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return ParseDocument(raw)
}

// ParseDocument decodes raw JSON into a Document, keeping numbers exact.
func ParseDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Decode fills v from the document.
func (d Document) Decode(v any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Number reads a numeric field. A missing field is zero.
func (d Document) Number(field string) (decimal.Decimal, error) {
	switch v := d[field].(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case decimal.Decimal:
		return v, nil
	default:
		return decimal.Zero, fmt.Errorf("field %s: %T is not a number", field, v)
	}
}

// Clone returns a deep copy made through a JSON round trip.
func (d Document) Clone() (Document, error) {
	if d == nil {
		return Document{}, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	return ParseDocument(raw)
}
