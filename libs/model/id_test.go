package model

import (
	"testing"

	"github.com/mzansicare/backend/libs/test"
)

func TestObjectID(t *testing.T) {
	id := ObjectID{Prefix: "t_"}

	// Empty/invalid state marshaling
	b, err := id.MarshalText()
	test.OK(t, err)
	test.Equals(t, []byte(nil), b)
	test.Equals(t, "", id.String())

	// Valid unmarshaling
	test.OK(t, id.UnmarshalText([]byte("t_000000000016I")))
	test.Equals(t, uint64(1234), id.Val)
	test.Equals(t, true, id.IsValid)

	// Valid marshaling
	b, err = id.MarshalText()
	test.OK(t, err)
	test.Equals(t, []byte("t_000000000016I"), b)
	test.Equals(t, "t_000000000016I", id.String())

	// Wrong prefix is rejected
	test.Assert(t, id.UnmarshalText([]byte("x_000000000016I")) != nil, "expected prefix mismatch error")
}

func TestObjectIDJSON(t *testing.T) {
	id := ObjectID{Prefix: "al_", Val: 77, IsValid: true}
	b, err := id.MarshalJSON()
	test.OK(t, err)

	var parsed ObjectID
	parsed.Prefix = "al_"
	test.OK(t, parsed.UnmarshalJSON(b))
	test.Equals(t, id.Val, parsed.Val)
	test.Equals(t, true, parsed.IsValid)

	test.OK(t, parsed.UnmarshalJSON([]byte("null")))
	test.Equals(t, false, parsed.IsValid)
}

func TestObjectIDScan(t *testing.T) {
	id := ObjectID{Prefix: "pt_"}
	test.OK(t, id.Scan([]byte((ObjectID{Prefix: "pt_", Val: 9, IsValid: true}).String())))
	test.Equals(t, uint64(9), id.Val)

	test.OK(t, id.Scan(nil))
	test.Equals(t, false, id.IsValid)
}
