// Package page arranges the panels of the token page for the current session.
package page

import (
	"fmt"

	"solana-token-exchange/internal/session"
)

// Panel identifiers.
const (
	PanelWalletButton = "wallet-button"
	PanelWalletInfo   = "wallet-info"
	PanelCreate       = "create"
	PanelMint         = "mint"
	PanelSend         = "send"
	PanelBalances     = "balances"
)

const title = "Solana Token Exchange"

// Section is a titled group of panels.
type Section struct {
	ID     string   `json:"id"`
	Title  string   `json:"title,omitempty"`
	Panels []string `json:"panels"`
}

// Prompt asks a disconnected user to connect.
type Prompt struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// Layout is the composed page.
type Layout struct {
	Title     string    `json:"title"`
	Banner    string    `json:"banner"`
	Network   string    `json:"network"`
	Connected bool      `json:"connected"`
	Sections  []Section `json:"sections"`
	Prompt    *Prompt   `json:"prompt,omitempty"`
	Footer    string    `json:"footer"`
}

// Compose lays out the page for state. The wallet section is always shown;
// token operations appear only while a wallet is connected.
func Compose(state session.State) Layout {
	network := string(state.Network)
	l := Layout{
		Title:     title,
		Banner:    fmt.Sprintf("Connected to %s network", network),
		Network:   network,
		Connected: state.Connected(),
		Sections: []Section{{
			ID:     "wallet",
			Title:  "Wallet",
			Panels: []string{PanelWalletButton, PanelWalletInfo},
		}},
		Footer: fmt.Sprintf("%s - Running on %s", title, network),
	}

	if l.Connected {
		l.Sections = append(l.Sections, Section{
			ID:     "operations",
			Title:  "Token Operations",
			Panels: []string{PanelCreate, PanelMint, PanelSend, PanelBalances},
		})
		return l
	}

	l.Prompt = &Prompt{
		Title:   "Connect Your Wallet",
		Message: "Connect a Solana wallet to create, mint, and transfer tokens.",
		Action:  PanelWalletButton,
	}
	return l
}
