package near_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/near"
)

func TestKeyPair_RoundTrip(t *testing.T) {
	kp, err := near.GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := near.ParseKeyPair(kp.String())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), parsed.PublicKey())
	assert.Equal(t, kp.String(), parsed.String())

	pk, err := near.ParsePublicKey(kp.PublicKey().String())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), pk)
	assert.Contains(t, pk.String(), "ed25519:")
}

func TestKeyPair_Seed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	expected := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	kp, err := near.ParseKeyPair(base58.Encode(seed))
	require.NoError(t, err)
	pk := kp.PublicKey()
	assert.Equal(t, []byte(expected), pk.Data[:])
	assert.Equal(t, near.KeyTypeED25519, pk.KeyType)
}

func TestKeyPair_SignVerify(t *testing.T) {
	kp, err := near.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("hello near")
	sig := kp.Sign(msg)
	assert.Equal(t, kp.PublicKey(), sig.PublicKey)
	assert.Len(t, sig.Signature, ed25519.SignatureSize)
	assert.True(t, kp.Verify(msg, sig.Signature))
	assert.True(t, kp.PublicKey().Verify(msg, sig.Signature))
	assert.False(t, kp.Verify([]byte("other"), sig.Signature))
}

func TestKeyPair_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"secp256k1:3D4YudUahN1nawWogh8pAKSj92sUNMdbZGjn7kERKzYoTy8tnFQuwoGUC51DowKqorvkr2pytJSnwuSbsNVfqygr",
		"ed25519:0OIl",
		"ed25519:abc",
		"a:b:c",
	} {
		_, err := near.ParseKeyPair(input)
		assert.Error(t, err, input)
	}

	_, err := near.ParsePublicKey("ed25519:abc")
	assert.Error(t, err)
}
