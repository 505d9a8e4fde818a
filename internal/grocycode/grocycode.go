// Package grocycode parses the structured codes Grocy prints on labels:
// grcy:<type>:<id>[:<extra>].
package grocycode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const prefix = "grcy"

// Type identifies what kind of object a code points at.
type Type string

const (
	TypeProduct Type = "p"
	TypeBattery Type = "b"
	TypeChore   Type = "c"
)

func (t Type) String() string {
	switch t {
	case TypeProduct:
		return "product"
	case TypeBattery:
		return "battery"
	case TypeChore:
		return "chore"
	}
	return "unknown"
}

// ErrNotGrocycode is returned when input does not carry the grcy prefix.
var ErrNotGrocycode = errors.New("not a grocycode")

// Code is a parsed grocycode. Extra holds the optional fourth segment,
// the stock entry id on product labels.
type Code struct {
	Type     Type
	ObjectID int64
	Extra    string
}

// IsProduct reports whether the code refers to a product.
func (c Code) IsProduct() bool {
	return c.Type == TypeProduct
}

// StockEntryID returns the stock entry segment of a product code, if any.
func (c Code) StockEntryID() string {
	if c.Type != TypeProduct {
		return ""
	}
	return c.Extra
}

func (c Code) String() string {
	s := prefix + ":" + string(c.Type) + ":" + strconv.FormatInt(c.ObjectID, 10)
	if c.Extra != "" {
		s += ":" + c.Extra
	}
	return s
}

// Parse decodes s. Input without the grcy prefix returns ErrNotGrocycode so
// callers can fall through to barcode lookup.
func Parse(s string) (Code, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 3 || parts[0] != prefix {
		return Code{}, ErrNotGrocycode
	}
	if len(parts) > 4 {
		return Code{}, fmt.Errorf("grocycode %q: too many segments", s)
	}

	t := Type(parts[1])
	switch t {
	case TypeProduct, TypeBattery, TypeChore:
	default:
		return Code{}, fmt.Errorf("grocycode %q: unknown type %q", s, parts[1])
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return Code{}, fmt.Errorf("grocycode %q: invalid object id", s)
	}

	code := Code{Type: t, ObjectID: id}
	if len(parts) == 4 {
		code.Extra = parts[3]
	}
	return code, nil
}

// IsGrocycode reports whether s has the grcy prefix, valid or not.
func IsGrocycode(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), prefix+":")
}
