// Package uuid provides UUID v7 generation.
// UUID v7 sorts by creation time, which keeps conversation and usage-log
// identifiers naturally ordered without a separate sequence column.
package uuid

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// UUID represents a UUID v7 identifier.
type UUID [16]byte

// NewV7 generates a new UUID v7 (draft-ietf-uuidrev-rfc4122bis):
// 48 bits of millisecond UNIX timestamp, then version/variant bits,
// then random filler.
func NewV7() UUID {
	now := time.Now().UnixMilli()

	var u UUID

	// Timestamp, big-endian, bytes 0-5.
	u[0] = byte(now >> 40)
	u[1] = byte(now >> 32)
	u[2] = byte(now >> 24)
	u[3] = byte(now >> 16)
	u[4] = byte(now >> 8)
	u[5] = byte(now)

	r := rand.Uint64()

	// Version 0111 in the high nibble of byte 6.
	u[6] = 0x70 | byte((r>>56)&0x0f)
	// RFC 4122 variant 10xxxxxx in byte 7.
	u[7] = 0x80 | byte((r>>48)&0x3f)
	u[8] = byte(r >> 40)
	u[9] = byte(r >> 32)
	u[10] = byte(r >> 24)
	u[11] = byte(r >> 16)
	u[12] = byte(r >> 8)
	u[13] = byte(r)

	u[14] = byte(rand.UintN(256))
	u[15] = byte(rand.UintN(256))

	return u
}

// String returns the UUID in standard form: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4],
		u[4:6],
		u[6:8],
		u[8:10],
		u[10:16],
	)
}
