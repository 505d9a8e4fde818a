package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Grocy serializes most numbers as strings ("12", "1.5") and booleans as
// "0"/"1". The Flex types accept either shape on decode.

// FlexInt is an int64 that decodes from a JSON number or numeric string.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s, null := unquote(data)
	if null || s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fv, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("flex int %q: %w", s, err)
		}
		v = int64(fv)
	}
	*f = FlexInt(v)
	return nil
}

// FlexFloat is a float64 that decodes from a JSON number or numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s, null := unquote(data)
	if null || s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flex float %q: %w", s, err)
	}
	*f = FlexFloat(v)
	return nil
}

// FlexBool decodes from true/false, 0/1 and "0"/"1". It encodes as 0/1.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	s, null := unquote(data)
	if null {
		*f = false
		return nil
	}
	switch strings.ToLower(s) {
	case "1", "true":
		*f = true
	case "0", "false", "":
		*f = false
	default:
		return fmt.Errorf("flex bool %q: unrecognized value", s)
	}
	return nil
}

func (f FlexBool) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *FlexBool) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = false
	case int64:
		*f = v != 0
	case bool:
		*f = FlexBool(v)
	default:
		return fmt.Errorf("scan flex bool: unsupported type %T", src)
	}
	return nil
}

func (f FlexBool) Value() (driver.Value, error) {
	if f {
		return int64(1), nil
	}
	return int64(0), nil
}

// NullID is an optional foreign key. Grocy sends null or "" for unset ids.
type NullID struct {
	ID    int64
	Valid bool
}

// SomeID returns a set NullID.
func SomeID(id int64) NullID {
	return NullID{ID: id, Valid: true}
}

func (n *NullID) UnmarshalJSON(data []byte) error {
	s, null := unquote(data)
	if null || s == "" {
		*n = NullID{}
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("null id %q: %w", s, err)
	}
	*n = NullID{ID: v, Valid: true}
	return nil
}

func (n NullID) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(n.ID, 10)), nil
}

func (n *NullID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = NullID{}
	case int64:
		*n = NullID{ID: v, Valid: true}
	default:
		return fmt.Errorf("scan null id: unsupported type %T", src)
	}
	return nil
}

func (n NullID) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.ID, nil
}

func unquote(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", true
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return strings.TrimSpace(s), false
		}
	}
	return string(data), false
}
