// Package transcript maintains the running hash of handshake wire messages
// and derives the full handshake and initial ratchet key schedule from the
// combined KEM shared secret and the two handshake randoms.
package transcript

import (
	"github.com/b4ae/core/pkg/crypto/hash"
	"github.com/b4ae/core/pkg/crypto/kdf"
)

// Domain-separation constants, bit-exact UTF-8.
const (
	infoMasterSecret   = "B4AE-v1-master-secret"
	infoEncryptionKey  = "B4AE-v1-encryption-key"
	infoAuthKey        = "B4AE-v1-authentication-key"
	infoMetadataKey    = "B4AE-v1-metadata-key"
	infoSessionID      = "session-id"
	infoRatchetRoot    = "B4AE-v2-double-ratchet-root"
	infoSendingChain0  = "B4AE-v2-sending-chain-0"
	infoReceivingChain = "B4AE-v2-receiving-chain-0"
	infoConfirmation   = "confirmation"
)

// KeySize is the length, in bytes, of every derived key in the schedule.
const KeySize = 32

// Transcript is an append-only sequence of the canonical wire bytes of
// every handshake message seen so far, in order. Its digest is recomputed
// over the full accumulated sequence whenever requested, which lets a
// caller hash in a pending, not-yet-finalized message's signed fields
// before committing them with Append.
type Transcript struct {
	buf []byte
}

// New returns an empty transcript ready to accept message bytes.
func New() *Transcript {
	return &Transcript{}
}

// Append extends the transcript permanently with the canonical wire bytes
// of one completed handshake message.
func (t *Transcript) Append(messageBytes []byte) {
	t.buf = append(t.buf, messageBytes...)
}

// Digest returns the SHA3-256 digest of everything appended so far.
func (t *Transcript) Digest() [hash.Size]byte {
	return hash.Sum256(t.buf)
}

// PendingDigest returns the SHA3-256 digest of everything appended so far
// plus extra, without mutating the transcript. Used to compute a
// signature over "transcript so far ∥ this message's unsigned fields"
// before the signature itself is known and appended.
func (t *Transcript) PendingDigest(extra []byte) [hash.Size]byte {
	combined := make([]byte, 0, len(t.buf)+len(extra))
	combined = append(combined, t.buf...)
	combined = append(combined, extra...)
	return hash.Sum256(combined)
}

// Schedule holds every key derived from a completed handshake.
type Schedule struct {
	Master            []byte
	EncryptionKey     []byte
	AuthenticationKey []byte
	MetadataKey       []byte
	SessionID         []byte
	RatchetRoot0      []byte
	SendingChain0     []byte
	ReceivingChain0   []byte
}

// Derive computes the full handshake key schedule from the combined hybrid
// shared secret ss and the two 32-byte handshake randoms, following:
//
//	master  = HKDF(ikm=ss, salt=client_random‖server_random, info="B4AE-v1-master-secret")
//	enc_key = HKDF(ikm=master, info="B4AE-v1-encryption-key")
//	auth_k  = HKDF(ikm=master, info="B4AE-v1-authentication-key")
//	meta_k  = HKDF(ikm=master, info="B4AE-v1-metadata-key")
//	sid     = HKDF(ikm=client_random‖server_random, info="session-id")
//	root_0  = HKDF(ikm=master, info="B4AE-v2-double-ratchet-root")
//	send_0  = HKDF(ikm=root_0, info="B4AE-v2-sending-chain-0")
//	recv_0  = HKDF(ikm=root_0, info="B4AE-v2-receiving-chain-0")
func Derive(ss, clientRandom, serverRandom []byte) (*Schedule, error) {
	salt := make([]byte, 0, len(clientRandom)+len(serverRandom))
	salt = append(salt, clientRandom...)
	salt = append(salt, serverRandom...)

	master, err := kdf.Derive(ss, salt, []byte(infoMasterSecret), KeySize)
	if err != nil {
		return nil, err
	}
	encKey, err := kdf.Derive(master, nil, []byte(infoEncryptionKey), KeySize)
	if err != nil {
		return nil, err
	}
	authKey, err := kdf.Derive(master, nil, []byte(infoAuthKey), KeySize)
	if err != nil {
		return nil, err
	}
	metaKey, err := kdf.Derive(master, nil, []byte(infoMetadataKey), KeySize)
	if err != nil {
		return nil, err
	}
	sid, err := kdf.Derive(salt, nil, []byte(infoSessionID), KeySize)
	if err != nil {
		return nil, err
	}
	root0, err := kdf.Derive(master, nil, []byte(infoRatchetRoot), KeySize)
	if err != nil {
		return nil, err
	}
	send0, err := kdf.Derive(root0, nil, []byte(infoSendingChain0), KeySize)
	if err != nil {
		return nil, err
	}
	recv0, err := kdf.Derive(root0, nil, []byte(infoReceivingChain), KeySize)
	if err != nil {
		return nil, err
	}

	return &Schedule{
		Master:            master,
		EncryptionKey:     encKey,
		AuthenticationKey: authKey,
		MetadataKey:       metaKey,
		SessionID:         sid,
		RatchetRoot0:      root0,
		SendingChain0:     send0,
		ReceivingChain0:   recv0,
	}, nil
}

// Confirmation computes the handshake confirmation value bound into the
// Complete message: HKDF(master, "confirmation", 32).
func Confirmation(master []byte) ([]byte, error) {
	return kdf.Derive(master, nil, []byte(infoConfirmation), KeySize)
}
