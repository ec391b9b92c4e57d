// Package model contains shared model types such as prefixed object IDs.
package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/mzansicare/backend/libs/errors"
)

// encodedLen is the fixed width of the encoded numeric portion of an ID.
const encodedLen = 13

// ObjectID is a numeric identifier rendered as a fixed width base-32
// string with a type prefix (e.g. "patient_0000000000M2S").
type ObjectID struct {
	Prefix  string
	Val     uint64
	IsValid bool
}

func (id ObjectID) String() string {
	if !id.IsValid {
		return ""
	}
	s := strings.ToUpper(strconv.FormatUint(id.Val, 32))
	return id.Prefix + strings.Repeat("0", encodedLen-len(s)) + s
}

// MarshalText implements encoding.TextMarshaler. An invalid ID marshals
// to nil so optional IDs serialize as empty.
func (id ObjectID) MarshalText() ([]byte, error) {
	if !id.IsValid {
		return nil, nil
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ObjectID) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		id.Val = 0
		id.IsValid = false
		return nil
	}
	if !strings.HasPrefix(s, id.Prefix) {
		return errors.Errorf("model: id '%s' missing prefix '%s'", s, id.Prefix)
	}
	v, err := strconv.ParseUint(strings.ToLower(s[len(id.Prefix):]), 32, 64)
	if err != nil {
		return errors.Errorf("model: invalid id '%s': %s", s, err)
	}
	id.Val = v
	id.IsValid = v != 0
	return nil
}

// Scan implements sql.Scanner accepting the string form of the ID.
func (id *ObjectID) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		id.Val = 0
		id.IsValid = false
		return nil
	case string:
		return errors.Trace(id.UnmarshalText([]byte(v)))
	case []byte:
		return errors.Trace(id.UnmarshalText(v))
	}
	return errors.Errorf("model: unsupported scan type %T for ObjectID", src)
}

// Value implements driver.Valuer storing the ID in its string form.
func (id ObjectID) Value() (driver.Value, error) {
	if !id.IsValid {
		return nil, nil
	}
	return id.String(), nil
}

// MarshalJSON renders the ID as a JSON string.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", id.String())), nil
}

// UnmarshalJSON parses the ID from a JSON string.
func (id *ObjectID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		id.Val = 0
		id.IsValid = false
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.Errorf("model: invalid id json %s", s)
	}
	return errors.Trace(id.UnmarshalText([]byte(s[1 : len(s)-1])))
}
