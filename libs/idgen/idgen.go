// Package idgen generates unique numeric identifiers.
package idgen

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/mzansicare/backend/libs/errors"
)

// NewID returns a random 63-bit identifier. The high bit is cleared so the
// value round-trips through signed integer columns.
func NewID() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, errors.Trace(err)
	}
	id := binary.BigEndian.Uint64(b[:]) &^ (uint64(1) << 63)
	if id == 0 {
		// A zero ID is used as the invalid marker. Vanishingly unlikely,
		// but roll again rather than hand one out.
		return NewID()
	}
	return id, nil
}
