package page

import (
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/solana"
)

func TestCompose_Disconnected(t *testing.T) {
	l := Compose(session.State{Network: solana.Devnet})

	assert.False(t, l.Connected)
	assert.Equal(t, "Connected to devnet network", l.Banner)
	require.Len(t, l.Sections, 1)
	assert.Equal(t, []string{PanelWalletButton, PanelWalletInfo}, l.Sections[0].Panels)
	require.NotNil(t, l.Prompt)
	assert.Equal(t, PanelWalletButton, l.Prompt.Action)
}

func TestCompose_Connected(t *testing.T) {
	account := types.NewAccount().PublicKey
	l := Compose(session.State{Network: solana.Testnet, Account: &account})

	assert.True(t, l.Connected)
	assert.Nil(t, l.Prompt)
	require.Len(t, l.Sections, 2)
	assert.Equal(t, "operations", l.Sections[1].ID)
	assert.Equal(t, []string{PanelCreate, PanelMint, PanelSend, PanelBalances}, l.Sections[1].Panels)
	assert.Equal(t, "Solana Token Exchange - Running on testnet", l.Footer)
}
