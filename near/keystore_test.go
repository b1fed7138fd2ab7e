package near_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/kv"
	"nearflow/near"
)

func testKeyStore(t *testing.T, ks near.KeyStore) {
	ctx := context.Background()
	alice, err := near.GenerateKeyPair()
	require.NoError(t, err)
	bob, err := near.GenerateKeyPair()
	require.NoError(t, err)

	_, err = ks.GetKey(ctx, "testnet", "alice.testnet")
	assert.ErrorIs(t, err, near.ErrKeyNotFound)

	require.NoError(t, ks.SetKey(ctx, "testnet", "alice.testnet", alice))
	require.NoError(t, ks.SetKey(ctx, "testnet", "bob.testnet", bob))
	require.NoError(t, ks.SetKey(ctx, "mainnet", "alice.near", alice))

	got, err := ks.GetKey(ctx, "testnet", "alice.testnet")
	require.NoError(t, err)
	assert.Equal(t, alice.String(), got.String())

	networks, err := ks.Networks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mainnet", "testnet"}, networks)

	accounts, err := ks.Accounts(ctx, "testnet")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice.testnet", "bob.testnet"}, accounts)

	require.NoError(t, ks.RemoveKey(ctx, "testnet", "bob.testnet"))
	_, err = ks.GetKey(ctx, "testnet", "bob.testnet")
	assert.ErrorIs(t, err, near.ErrKeyNotFound)

	require.NoError(t, ks.Clear(ctx))
	networks, err = ks.Networks(ctx)
	require.NoError(t, err)
	assert.Empty(t, networks)
}

func TestInMemoryKeyStore(t *testing.T) {
	testKeyStore(t, near.NewInMemoryKeyStore())
}

func TestKVKeyStore(t *testing.T) {
	testKeyStore(t, near.NewKVKeyStore(kv.NewInMemoryKVStore()))
}

func TestNetworkRegistry(t *testing.T) {
	registry := near.NewNetworkRegistry(near.Network{NetworkID: "localnet", NodeURL: "http://127.0.0.1:3030"})
	assert.Equal(t, []string{"localnet", "mainnet", "testnet"}, registry.IDs())

	network, err := registry.Lookup("mainnet")
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.mainnet.near.org", network.NodeURL)

	_, err = registry.Lookup("betanet")
	assert.ErrorIs(t, err, near.ErrUnknownNetwork)
}
