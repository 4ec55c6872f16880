package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownAdapter is returned for adapter names that are not registered.
var ErrUnknownAdapter = errors.New("unknown wallet adapter")

// ConnectParams carries the secrets an adapter may need.
type ConnectParams struct {
	KeypairPath string
	Mnemonic    string
	Passphrase  string
}

// Adapter produces a connected Signer.
type Adapter interface {
	Name() string
	Connect(ctx context.Context, params ConnectParams) (Signer, error)
}

// KeypairAdapter connects a Solana CLI keypair file.
type KeypairAdapter struct{}

// Name returns "keypair".
func (KeypairAdapter) Name() string { return "keypair" }

// Connect loads the keypair at params.KeypairPath.
func (KeypairAdapter) Connect(_ context.Context, params ConnectParams) (Signer, error) {
	if params.KeypairPath == "" {
		return nil, fmt.Errorf("%w: keypair path is required", ErrInvalidKeypair)
	}
	account, err := LoadKeypairFile(params.KeypairPath)
	if err != nil {
		return nil, err
	}
	return NewKeypairSigner(account), nil
}

// MnemonicAdapter connects an account recovered from a BIP-39 phrase.
type MnemonicAdapter struct{}

// Name returns "mnemonic".
func (MnemonicAdapter) Name() string { return "mnemonic" }

// Connect derives the account from params.Mnemonic and params.Passphrase.
func (MnemonicAdapter) Connect(_ context.Context, params ConnectParams) (Signer, error) {
	account, err := AccountFromMnemonic(params.Mnemonic, params.Passphrase)
	if err != nil {
		return nil, err
	}
	return NewKeypairSigner(account), nil
}

var adapters = map[string]Adapter{
	"keypair":  KeypairAdapter{},
	"mnemonic": MnemonicAdapter{},
}

// Lookup returns the adapter registered under name.
func Lookup(name string) (Adapter, error) {
	a, ok := adapters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownAdapter, name, strings.Join(AdapterNames(), ", "))
	}
	return a, nil
}

// AdapterNames lists registered adapters in sorted order.
func AdapterNames() []string {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
