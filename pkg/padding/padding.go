// Package padding implements the deterministic size-bucket padding policy
// applied at the encrypt/decrypt boundary, before the plaintext reaches the
// AEAD layer. Two encodings coexist depending on how much padding a given
// plaintext needs to reach the next bucket boundary.
package padding

import (
	"encoding/binary"
	"fmt"

	"github.com/b4ae/core/pkg/protoerr"
)

// Supported bucket sizes, per the configuration surface.
const (
	Bucket4096  = 4096
	Bucket16384 = 16384
	Bucket65536 = 65536
)

// DefaultBucketSize is used when no padding_block_size is configured.
const DefaultBucketSize = Bucket16384

// shortFormMax is the largest padding length the PKCS#7-style single-byte
// form can express.
const shortFormMax = 255

// longFormTrailerSize is the number of trailing bytes the zero-fill form
// uses to encode its padding length.
const longFormTrailerSize = 2

// Pad returns plaintext padded to the next multiple of bucketSize. A
// plaintext already on a bucket boundary receives a full extra bucket of
// padding, so Pad never returns its input unchanged.
//
// If the required padding length is <= 255, PKCS#7 padding is used: p
// copies of byte p are appended. Otherwise a zero-fill form is used: zero
// bytes are appended, followed by a two-byte big-endian encoding of the
// total padding length (which must then fit in [256, 65535]).
func Pad(plaintext []byte, bucketSize int) ([]byte, error) {
	if bucketSize <= 0 {
		return nil, fmt.Errorf("padding: invalid bucket size %d", bucketSize)
	}
	remainder := len(plaintext) % bucketSize
	padLen := bucketSize - remainder
	if padLen == 0 {
		padLen = bucketSize
	}

	out := make([]byte, 0, len(plaintext)+padLen)
	out = append(out, plaintext...)

	if padLen <= shortFormMax {
		for i := 0; i < padLen; i++ {
			out = append(out, byte(padLen))
		}
		return out, nil
	}

	if padLen > 65535 {
		return nil, fmt.Errorf("padding: padding length %d exceeds 65535", padLen)
	}
	zeroCount := padLen - longFormTrailerSize
	for i := 0; i < zeroCount; i++ {
		out = append(out, 0)
	}
	var trailer [longFormTrailerSize]byte
	binary.BigEndian.PutUint16(trailer[:], uint16(padLen))
	out = append(out, trailer[:]...)
	return out, nil
}

// Unpad reverses Pad, validating the declared padding region in constant
// time: every byte in the claimed padding region is checked against its
// expected value, the checks are combined with bitwise AND rather than an
// early-returning loop, and only a single branch on the aggregate result
// decides acceptance or rejection.
func Unpad(padded []byte) ([]byte, error) {
	n := len(padded)
	if n == 0 {
		return nil, fmt.Errorf("padding: empty input: %w", protoerr.ErrInvalidInput)
	}

	lastByte := padded[n-1]

	// Candidate A: short form. padLen = lastByte, valid range [1,255].
	shortPadLen := int(lastByte)
	shortValid := byte(1)
	if shortPadLen == 0 || shortPadLen > n {
		shortValid = 0
		shortPadLen = 1 // keep indexing below in range; result discarded if invalid
	}
	var shortAcc byte = 1
	for i := 0; i < shortFormMax; i++ {
		inRegion := byte(0)
		if i < shortPadLen {
			inRegion = 1
		}
		idx := n - 1 - i
		if idx < 0 {
			idx = 0
		}
		var got byte
		if idx < n {
			got = padded[idx]
		}
		byteOK := byte(1)
		if got != byte(shortPadLen) {
			byteOK = 0
		}
		// Only bytes inside the claimed region must match; bytes outside
		// it (because the real region is shorter) don't constrain shortAcc.
		thisCheck := (^inRegion & 1) | byteOK
		shortAcc &= thisCheck
	}
	shortAcc &= shortValid

	// Candidate B: long form. Trailing 2 bytes big-endian encode padLen in [256,65535].
	longValid := byte(1)
	if n < longFormTrailerSize {
		longValid = 0
	}
	longPadLen := 0
	if n >= longFormTrailerSize {
		longPadLen = int(binary.BigEndian.Uint16(padded[n-longFormTrailerSize:]))
	}
	if longPadLen < 256 || longPadLen > n {
		longValid = 0
	}
	var longAcc byte = 1
	zeroCount := longPadLen - longFormTrailerSize
	for i := 0; i < n; i++ {
		inRegion := byte(0)
		if i < zeroCount {
			inRegion = 1
		}
		idx := n - longFormTrailerSize - 1 - i
		var got byte = 0xFF // forces byteOK=0 when out of claimed window and unused
		if idx >= 0 && idx < n {
			got = padded[idx]
		}
		byteOK := byte(1)
		if inRegion == 1 && got != 0 {
			byteOK = 0
		}
		longAcc &= (^inRegion & 1) | byteOK
	}
	longAcc &= longValid

	useShort := shortAcc == 1
	useLong := longAcc == 1

	// The encoder only ever produces the long form when padLen > 255, so a
	// validating long-form candidate always takes precedence: a genuine
	// long-form trailer's low byte can otherwise fall in [1,255] and
	// spuriously satisfy the short-form check too.
	switch {
	case useLong:
		return append([]byte(nil), padded[:n-longPadLen]...), nil
	case useShort && shortPadLen <= shortFormMax:
		return append([]byte(nil), padded[:n-shortPadLen]...), nil
	default:
		return nil, fmt.Errorf("padding: invalid padding: %w", protoerr.ErrInvalidInput)
	}
}
