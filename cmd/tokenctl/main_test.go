package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

type fixedAdapter struct{ account types.Account }

func (fixedAdapter) Name() string { return "fixed" }

func (a fixedAdapter) Connect(context.Context, wallet.ConnectParams) (wallet.Signer, error) {
	return wallet.NewKeypairSigner(a.account), nil
}

func TestConfirmOnTerminal(t *testing.T) {
	var out bytes.Buffer
	approve := confirmOnTerminal(strings.NewReader("y\nno\n"), &out)

	ok, err := approve(context.Background(), "2 instruction(s)")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Sign transaction (2 instruction(s))? [y/N]")

	ok, err = approve(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)

	// EOF declines.
	ok, err = approve(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApprovingAdapter_Declines(t *testing.T) {
	account := types.NewAccount()
	decline := func(context.Context, string) (bool, error) { return false, nil }

	signer, err := approvingAdapter{Adapter: fixedAdapter{account: account}, approve: decline}.
		Connect(context.Background(), wallet.ConnectParams{})
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey, signer.PublicKey())

	_, err = signer.SignTransaction(context.Background(), types.Transaction{})
	assert.ErrorIs(t, err, wallet.ErrSignatureDeclined)
}

func TestWriteTokens(t *testing.T) {
	balance := 2.5
	var out bytes.Buffer
	require.NoError(t, writeTokens(&out, []token.Descriptor{
		{Mint: "MintA", Name: "Alpha", Symbol: "ALP", Decimals: 6, Balance: &balance},
		{Mint: "MintB", Name: "Unknown", Symbol: "Unknown", Decimals: 9},
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "BALANCE")
	assert.Contains(t, lines[1], "2.5")
	assert.True(t, strings.HasSuffix(lines[2], "0"))
}

func TestConsoleNotifier(t *testing.T) {
	var out bytes.Buffer
	notify.Success(context.Background(), consoleNotifier{w: &out}, "Tokens sent successfully!")
	assert.Equal(t, "[success] Tokens sent successfully!\n", out.String())
}
