package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSignature(t *testing.T) {
	account, err := NewKeyManager(t.TempDir()).GenerateKeyPair()
	require.NoError(t, err)
	signer := account.PublicKey.ToBase58()

	body := []byte(`{"company_name":"acme"}`)
	msg := RequestMessage("post", "/vesting-pool", 1700000000, body)
	sig := SignMessage(account, msg)

	assert.NoError(t, VerifySignature(signer, sig, msg))

	t.Run("Tampered body", func(t *testing.T) {
		other := RequestMessage("POST", "/vesting-pool", 1700000000, []byte(`{"company_name":"evil"}`))
		assert.ErrorIs(t, VerifySignature(signer, sig, other), ErrInvalidSignature)
	})

	t.Run("Method is case insensitive", func(t *testing.T) {
		assert.Equal(t, msg, RequestMessage("POST", "/vesting-pool", 1700000000, body))
	})

	t.Run("Other signer", func(t *testing.T) {
		other, err := NewKeyManager(t.TempDir()).GenerateKeyPair()
		require.NoError(t, err)
		assert.ErrorIs(t, VerifySignature(other.PublicKey.ToBase58(), sig, msg), ErrInvalidSignature)
	})

	t.Run("Malformed input", func(t *testing.T) {
		assert.Error(t, VerifySignature("not-a-key", sig, msg))
		assert.ErrorIs(t, VerifySignature(signer, "###", msg), ErrInvalidSignature)
	})
}
