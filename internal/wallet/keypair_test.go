package wallet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BIP-39 test vector phrase.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestKeypairJSON_RoundTrip(t *testing.T) {
	account := types.NewAccount()
	data, err := EncodeKeypairJSON(account)
	require.NoError(t, err)

	decoded, err := ParseKeypairJSON(data)
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey, decoded.PublicKey)
}

func TestParseKeypairJSON_Invalid(t *testing.T) {
	for _, in := range []string{`{}`, `[1,2,3]`, `"abc"`} {
		_, err := ParseKeypairJSON([]byte(in))
		assert.ErrorIs(t, err, ErrInvalidKeypair, in)
	}

	bad := make([]byte, 0, 64*4)
	bad = append(bad, '[')
	for i := 0; i < 64; i++ {
		if i > 0 {
			bad = append(bad, ',')
		}
		bad = append(bad, '3', '0', '0')
	}
	bad = append(bad, ']')
	_, err := ParseKeypairJSON(bad)
	assert.ErrorIs(t, err, ErrInvalidKeypair)
}

func TestAccountFromMnemonic(t *testing.T) {
	a, err := AccountFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	// Whitespace is normalized before derivation.
	b, err := AccountFromMnemonic("  "+testMnemonic+"\n", "")
	require.NoError(t, err)
	assert.Equal(t, a.PublicKey, b.PublicKey)

	c, err := AccountFromMnemonic(testMnemonic, "passphrase")
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey, c.PublicKey)

	_, err = AccountFromMnemonic("abandon abandon abandon", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	require.NoError(t, err)

	_, err = AccountFromMnemonic(m, "")
	assert.NoError(t, err)
}

func TestAdapters(t *testing.T) {
	ctx := context.Background()

	account := types.NewAccount()
	data, err := EncodeKeypairJSON(account)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	kp, err := Lookup("keypair")
	require.NoError(t, err)
	signer, err := kp.Connect(ctx, ConnectParams{KeypairPath: path})
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey, signer.PublicKey())

	_, err = kp.Connect(ctx, ConnectParams{})
	assert.ErrorIs(t, err, ErrInvalidKeypair)

	mn, err := Lookup(" Mnemonic ")
	require.NoError(t, err)
	signer, err = mn.Connect(ctx, ConnectParams{Mnemonic: testMnemonic})
	require.NoError(t, err)
	want, _ := AccountFromMnemonic(testMnemonic, "")
	assert.Equal(t, want.PublicKey, signer.PublicKey())

	_, err = Lookup("phantom")
	assert.ErrorIs(t, err, ErrUnknownAdapter)
	assert.Equal(t, []string{"keypair", "mnemonic"}, AdapterNames())
}
