package near

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// KeyType is the curve tag used in NEAR key and signature encodings.
type KeyType uint8

const (
	KeyTypeED25519 KeyType = 0
)

const curveED25519 = "ed25519"

func (k KeyType) String() string {
	switch k {
	case KeyTypeED25519:
		return curveED25519
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// PublicKey is a curve-tagged public key in its borsh layout.
type PublicKey struct {
	KeyType KeyType
	Data    [ed25519.PublicKeySize]byte
}

// ParsePublicKey decodes "ed25519:<base58>" (the curve prefix is optional).
func ParsePublicKey(s string) (PublicKey, error) {
	curve, encoded, err := splitKey(s)
	if err != nil {
		return PublicKey{}, err
	}
	if curve != curveED25519 {
		return PublicKey{}, fmt.Errorf("unknown curve %q", curve)
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return PublicKey{}, fmt.Errorf("could not decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, fmt.Errorf("invalid public key length %d", len(raw))
	}

	pk := PublicKey{KeyType: KeyTypeED25519}
	copy(pk.Data[:], raw)
	return pk, nil
}

func (pk PublicKey) String() string {
	return pk.KeyType.String() + ":" + base58.Encode(pk.Data[:])
}

// Verify checks an ed25519 signature over message.
func (pk PublicKey) Verify(message, signature []byte) bool {
	if pk.KeyType != KeyTypeED25519 {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk.Data[:]), message, signature)
}

// Signature is a detached signature together with the key that produced it.
type Signature struct {
	Signature []byte
	PublicKey PublicKey
}

// KeyPair holds an ed25519 secret key.
type KeyPair struct {
	secret    ed25519.PrivateKey
	publicKey PublicKey
}

// GenerateKeyPair creates a random ed25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	_, secret, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return newKeyPair(secret), nil
}

// ParseKeyPair decodes "ed25519:<base58 secret>". The secret may be the full
// 64-byte ed25519 key or its 32-byte seed.
func ParseKeyPair(s string) (*KeyPair, error) {
	curve, encoded, err := splitKey(s)
	if err != nil {
		return nil, err
	}
	if curve != curveED25519 {
		return nil, fmt.Errorf("unknown curve %q", curve)
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("could not decode secret key: %w", err)
	}

	switch len(raw) {
	case ed25519.PrivateKeySize:
		return newKeyPair(ed25519.PrivateKey(raw)), nil
	case ed25519.SeedSize:
		return newKeyPair(ed25519.NewKeyFromSeed(raw)), nil
	default:
		return nil, fmt.Errorf("invalid secret key length %d", len(raw))
	}
}

func newKeyPair(secret ed25519.PrivateKey) *KeyPair {
	kp := KeyPair{
		secret:    secret,
		publicKey: PublicKey{KeyType: KeyTypeED25519},
	}
	copy(kp.publicKey.Data[:], secret.Public().(ed25519.PublicKey))
	return &kp
}

func (kp *KeyPair) PublicKey() PublicKey {
	return kp.publicKey
}

// String encodes the secret key the way NEAR tooling stores it.
func (kp *KeyPair) String() string {
	return curveED25519 + ":" + base58.Encode(kp.secret)
}

func (kp *KeyPair) Sign(message []byte) Signature {
	return Signature{
		Signature: ed25519.Sign(kp.secret, message),
		PublicKey: kp.publicKey,
	}
}

func (kp *KeyPair) Verify(message, signature []byte) bool {
	return kp.publicKey.Verify(message, signature)
}

func splitKey(s string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return "", "", fmt.Errorf("empty key")
		}
		return curveED25519, parts[0], nil
	case 2:
		return strings.ToLower(parts[0]), parts[1], nil
	default:
		return "", "", fmt.Errorf("invalid encoded key format, must be <curve>:<encoded key>")
	}
}
