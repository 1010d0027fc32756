package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

func jsonValue(v any) (driver.Value, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}

func scanJSON(value interface{}, dst any) error {
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
