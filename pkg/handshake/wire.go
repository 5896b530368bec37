package handshake

import (
	"encoding/binary"
	"fmt"

	"github.com/b4ae/core/pkg/crypto/hybrid"
)

// RandomSize is the length, in bytes, of client_random and server_random.
const RandomSize = 32

// ConfirmationSize is the length, in bytes, of the Complete message's
// confirmation value.
const ConfirmationSize = 32

// InitMessage is sent by the initiator to open a handshake.
type InitMessage struct {
	Version      uint16
	ClientRandom [RandomSize]byte
	HybridPub    *hybrid.PublicKey
	Algorithms   []AlgorithmID
	Signature    *hybrid.Signature
}

// signedFields returns version ∥ client_random ∥ hybrid_pub ∥ n_algos ∥ algos,
// the exact byte sequence the Init signature is computed over.
func (m *InitMessage) signedFields() []byte {
	out := make([]byte, 0, 2+RandomSize+hybrid.HybridPublicKeySize+1+len(m.Algorithms))
	out = appendUint16(out, m.Version)
	out = append(out, m.ClientRandom[:]...)
	out = append(out, m.HybridPub.Encode()...)
	out = append(out, byte(len(m.Algorithms)))
	for _, a := range m.Algorithms {
		out = append(out, byte(a))
	}
	return out
}

// Encode serializes the full Init message, including its trailing signature.
func (m *InitMessage) Encode() []byte {
	out := m.signedFields()
	out = append(out, m.Signature.Encode()...)
	return out
}

// DecodeInitMessage parses the wire form produced by Encode.
func DecodeInitMessage(data []byte) (*InitMessage, error) {
	const minFixed = 2 + RandomSize + hybrid.HybridPublicKeySize + 1
	if len(data) < minFixed {
		return nil, invalidInput("decode init", "truncated fixed fields")
	}
	offset := 0
	version := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	var clientRandom [RandomSize]byte
	copy(clientRandom[:], data[offset:offset+RandomSize])
	offset += RandomSize
	pub, err := hybrid.DecodePublicKey(data[offset : offset+hybrid.HybridPublicKeySize])
	if err != nil {
		return nil, invalidInput("decode init", fmt.Sprintf("hybrid_pub: %v", err))
	}
	offset += hybrid.HybridPublicKeySize
	nAlgos := int(data[offset])
	offset++
	if len(data) < offset+nAlgos {
		return nil, invalidInput("decode init", "truncated algorithm list")
	}
	algos := make([]AlgorithmID, nAlgos)
	for i := 0; i < nAlgos; i++ {
		algos[i] = AlgorithmID(data[offset+i])
	}
	offset += nAlgos
	sig, err := hybrid.DecodeSignature(data[offset:])
	if err != nil {
		return nil, invalidInput("decode init", fmt.Sprintf("signature: %v", err))
	}
	return &InitMessage{
		Version:      version,
		ClientRandom: clientRandom,
		HybridPub:    pub,
		Algorithms:   algos,
		Signature:    sig,
	}, nil
}

// ResponseMessage is sent by the responder after processing an Init.
type ResponseMessage struct {
	Version      uint16
	ServerRandom [RandomSize]byte
	HybridPub    *hybrid.PublicKey
	Ciphertext   *hybrid.Ciphertext
	Algorithms   []AlgorithmID
	Signature    *hybrid.Signature
}

// signedFields returns version ∥ server_random ∥ hybrid_pub ∥ hybrid_ct ∥
// n_algos ∥ algos, the exact byte sequence the Response signature is
// computed over (in addition to the preceding Init, via the transcript).
func (m *ResponseMessage) signedFields() []byte {
	out := make([]byte, 0, 2+RandomSize+hybrid.HybridPublicKeySize+hybrid.HybridCiphertextSize+1+len(m.Algorithms))
	out = appendUint16(out, m.Version)
	out = append(out, m.ServerRandom[:]...)
	out = append(out, m.HybridPub.Encode()...)
	out = append(out, m.Ciphertext.Encode()...)
	out = append(out, byte(len(m.Algorithms)))
	for _, a := range m.Algorithms {
		out = append(out, byte(a))
	}
	return out
}

// Encode serializes the full Response message, including its trailing signature.
func (m *ResponseMessage) Encode() []byte {
	out := m.signedFields()
	out = append(out, m.Signature.Encode()...)
	return out
}

// DecodeResponseMessage parses the wire form produced by Encode.
func DecodeResponseMessage(data []byte) (*ResponseMessage, error) {
	const minFixed = 2 + RandomSize + hybrid.HybridPublicKeySize + hybrid.HybridCiphertextSize + 1
	if len(data) < minFixed {
		return nil, invalidInput("decode response", "truncated fixed fields")
	}
	offset := 0
	version := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	var serverRandom [RandomSize]byte
	copy(serverRandom[:], data[offset:offset+RandomSize])
	offset += RandomSize
	pub, err := hybrid.DecodePublicKey(data[offset : offset+hybrid.HybridPublicKeySize])
	if err != nil {
		return nil, invalidInput("decode response", fmt.Sprintf("hybrid_pub: %v", err))
	}
	offset += hybrid.HybridPublicKeySize
	ct, err := hybrid.DecodeCiphertext(data[offset : offset+hybrid.HybridCiphertextSize])
	if err != nil {
		return nil, invalidInput("decode response", fmt.Sprintf("hybrid_ct: %v", err))
	}
	offset += hybrid.HybridCiphertextSize
	nAlgos := int(data[offset])
	offset++
	if len(data) < offset+nAlgos {
		return nil, invalidInput("decode response", "truncated algorithm list")
	}
	algos := make([]AlgorithmID, nAlgos)
	for i := 0; i < nAlgos; i++ {
		algos[i] = AlgorithmID(data[offset+i])
	}
	offset += nAlgos
	sig, err := hybrid.DecodeSignature(data[offset:])
	if err != nil {
		return nil, invalidInput("decode response", fmt.Sprintf("signature: %v", err))
	}
	return &ResponseMessage{
		Version:      version,
		ServerRandom: serverRandom,
		HybridPub:    pub,
		Ciphertext:   ct,
		Algorithms:   algos,
		Signature:    sig,
	}, nil
}

// CompleteMessage is sent by the initiator to close the handshake.
type CompleteMessage struct {
	Confirmation [ConfirmationSize]byte
	Signature    *hybrid.Signature
}

func (m *CompleteMessage) signedFields() []byte {
	out := make([]byte, 0, ConfirmationSize)
	out = append(out, m.Confirmation[:]...)
	return out
}

// Encode serializes the full Complete message, including its trailing signature.
func (m *CompleteMessage) Encode() []byte {
	out := m.signedFields()
	out = append(out, m.Signature.Encode()...)
	return out
}

// DecodeCompleteMessage parses the wire form produced by Encode.
func DecodeCompleteMessage(data []byte) (*CompleteMessage, error) {
	if len(data) < ConfirmationSize {
		return nil, invalidInput("decode complete", "truncated confirmation")
	}
	var confirmation [ConfirmationSize]byte
	copy(confirmation[:], data[:ConfirmationSize])
	sig, err := hybrid.DecodeSignature(data[ConfirmationSize:])
	if err != nil {
		return nil, invalidInput("decode complete", fmt.Sprintf("signature: %v", err))
	}
	return &CompleteMessage{Confirmation: confirmation, Signature: sig}, nil
}

func appendUint16(out []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(out, buf[:]...)
}
