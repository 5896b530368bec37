package ratchet

import (
	"encoding/binary"
	"fmt"

	"github.com/b4ae/core/pkg/crypto/aead"
	"github.com/b4ae/core/pkg/crypto/hybrid"
)

// ProtocolVersion is the wire message version produced by this implementation.
const ProtocolVersion uint16 = 1

// MsgTypeData is the sole message type emitted by a session today; the
// field is wire-present so future types can be added without breaking the
// header format.
const MsgTypeData byte = 0x01

// FlagRatchet marks a header as carrying an optional ratchet header: a new
// remote ephemeral hybrid public key plus the hybrid KEM ciphertext
// encapsulated against it.
const FlagRatchet byte = 0x01

const headerFixedSize = 2 + 1 + 1 + 8 + 8 // version, msg_type, flags, counter, timestamp

// RatchetHeader carries the new local ephemeral hybrid public key and the
// KEM ciphertext encapsulated against the receiver's previous ephemeral
// key, present on the wire only when a DH ratchet step fires.
type RatchetHeader struct {
	NewRemoteHybridPub *hybrid.PublicKey
	HybridCiphertext   *hybrid.Ciphertext
}

// Header is the fixed-plus-optional prefix of a WireMessage.
type Header struct {
	Version       uint16
	MsgType       byte
	Flags         byte
	Counter       uint64
	Timestamp     int64
	RatchetHeader *RatchetHeader // non-nil iff Flags&FlagRatchet != 0
	Nonce         []byte
}

// WireMessage is a header plus an AEAD-sealed ciphertext body (the
// authentication tag is part of Ciphertext, appended by the AEAD layer).
type WireMessage struct {
	Header     Header
	Ciphertext []byte
}

// Encode serializes the header, used both on the wire and as AEAD
// associated data so the header cannot be tampered with undetected.
func (h *Header) Encode() []byte {
	size := headerFixedSize
	if h.RatchetHeader != nil {
		size += hybrid.HybridPublicKeySize + hybrid.HybridCiphertextSize
	}
	size += aead.NonceSize

	out := make([]byte, 0, size)
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], h.Version)
	out = append(out, u16[:]...)
	out = append(out, h.MsgType, h.Flags)
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], h.Counter)
	out = append(out, u64[:]...)
	binary.BigEndian.PutUint64(u64[:], uint64(h.Timestamp))
	out = append(out, u64[:]...)
	if h.RatchetHeader != nil {
		out = append(out, h.RatchetHeader.NewRemoteHybridPub.Encode()...)
		out = append(out, h.RatchetHeader.HybridCiphertext.Encode()...)
	}
	out = append(out, h.Nonce...)
	return out
}

// DecodeHeader parses the wire form produced by Encode, returning the
// header and the number of bytes consumed.
func DecodeHeader(data []byte) (*Header, int, error) {
	if len(data) < headerFixedSize {
		return nil, 0, fmt.Errorf("ratchet: header: truncated fixed fields")
	}
	offset := 0
	version := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	msgType := data[offset]
	offset++
	flags := data[offset]
	offset++
	counter := binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8
	timestamp := int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	offset += 8

	var ratchetHeader *RatchetHeader
	if flags&FlagRatchet != 0 {
		need := hybrid.HybridPublicKeySize + hybrid.HybridCiphertextSize
		if len(data) < offset+need {
			return nil, 0, fmt.Errorf("ratchet: header: truncated ratchet header")
		}
		pub, err := hybrid.DecodePublicKey(data[offset : offset+hybrid.HybridPublicKeySize])
		if err != nil {
			return nil, 0, fmt.Errorf("ratchet: header: ratchet pub: %w", err)
		}
		offset += hybrid.HybridPublicKeySize
		ct, err := hybrid.DecodeCiphertext(data[offset : offset+hybrid.HybridCiphertextSize])
		if err != nil {
			return nil, 0, fmt.Errorf("ratchet: header: ratchet ct: %w", err)
		}
		offset += hybrid.HybridCiphertextSize
		ratchetHeader = &RatchetHeader{NewRemoteHybridPub: pub, HybridCiphertext: ct}
	}

	if len(data) < offset+aead.NonceSize {
		return nil, 0, fmt.Errorf("ratchet: header: truncated nonce")
	}
	nonce := append([]byte(nil), data[offset:offset+aead.NonceSize]...)
	offset += aead.NonceSize

	return &Header{
		Version:       version,
		MsgType:       msgType,
		Flags:         flags,
		Counter:       counter,
		Timestamp:     timestamp,
		RatchetHeader: ratchetHeader,
		Nonce:         nonce,
	}, offset, nil
}

// Encode serializes a full WireMessage: header followed by ciphertext
// (which itself carries the AEAD tag as its final TagSize bytes).
func (w *WireMessage) Encode() []byte {
	out := w.Header.Encode()
	out = append(out, w.Ciphertext...)
	return out
}

// DecodeWireMessage parses the wire form produced by Encode.
func DecodeWireMessage(data []byte) (*WireMessage, error) {
	header, consumed, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	return &WireMessage{Header: *header, Ciphertext: data[consumed:]}, nil
}
