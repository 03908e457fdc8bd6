package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray is a string list persisted as a JSON column. Scanning tolerates
// rows written before the column became JSON, where a bare string was stored.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(value interface{}) error {
	if a == nil {
		return fmt.Errorf("models.StringArray: Scan on nil pointer")
	}

	var raw string
	switch v := value.(type) {
	case nil:
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("models.StringArray: cannot scan %T", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		*a = StringArray{}
		return nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		*a = list
		return nil
	}

	// Legacy single-value rows: either a JSON string or raw text.
	var one string
	if err := json.Unmarshal([]byte(raw), &one); err == nil {
		raw = one
	}
	if raw == "" {
		*a = StringArray{}
	} else {
		*a = StringArray{raw}
	}
	return nil
}
