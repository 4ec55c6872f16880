package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/tyler-smith/go-bip39"
)

var (
	// ErrInvalidKeypair is returned for keypair files that are not 64-byte secret keys.
	ErrInvalidKeypair = errors.New("invalid keypair")

	// ErrInvalidMnemonic is returned for phrases that fail BIP-39 validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// LoadKeypairFile reads a Solana CLI keypair file (JSON array of 64 bytes).
func LoadKeypairFile(path string) (types.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Account{}, fmt.Errorf("read keypair file: %w", err)
	}
	return ParseKeypairJSON(data)
}

// ParseKeypairJSON decodes a Solana CLI keypair.
func ParseKeypairJSON(data []byte) (types.Account, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return types.Account{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeypair, len(ints), ed25519.PrivateKeySize)
	}

	key := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return types.Account{}, fmt.Errorf("%w: byte %d out of range", ErrInvalidKeypair, i)
		}
		key[i] = byte(v)
	}

	account, err := types.AccountFromBytes(key)
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return account, nil
}

// EncodeKeypairJSON renders an account in the Solana CLI keypair format.
func EncodeKeypairJSON(account types.Account) ([]byte, error) {
	ints := make([]int, len(account.PrivateKey))
	for i, b := range account.PrivateKey {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// AccountFromMnemonic derives the account Solana CLI recovers from a phrase
// without a derivation path: the first 32 bytes of the BIP-39 seed.
func AccountFromMnemonic(mnemonic, passphrase string) (types.Account, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return types.Account{}, ErrInvalidMnemonic
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}

	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	account, err := types.AccountFromBytes(priv)
	if err != nil {
		return types.Account{}, fmt.Errorf("derive account: %w", err)
	}
	return account, nil
}

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}
