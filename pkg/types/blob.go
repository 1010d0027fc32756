package types

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONBlob stores an opaque JSON document without interpreting it.
type JSONBlob json.RawMessage

func (b JSONBlob) Value() (driver.Value, error) {
	if len(b) == 0 {
		return "null", nil
	}
	return string(b), nil
}

func (b *JSONBlob) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	*b = append((*b)[:0], raw...)
	return nil
}

func (b JSONBlob) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *JSONBlob) UnmarshalJSON(data []byte) error {
	*b = append((*b)[:0], data...)
	return nil
}
