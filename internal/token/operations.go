package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/shopspring/decimal"

	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/wallet"
)

// Operation kinds used in metrics and the activity journal.
const (
	KindCreate   = "create"
	KindMint     = "mint"
	KindTransfer = "transfer"
)

// Descriptor describes a token as shown to the user.
type Descriptor struct {
	Mint     string   `json:"mint"`
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	Decimals uint8    `json:"decimals"`
	Supply   *float64 `json:"supply,omitempty"`
	Balance  *float64 `json:"balance,omitempty"`
}

// CreateTokenParams describes a new fungible token.
type CreateTokenParams struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// CreateTokenResult is returned by CreateToken.
type CreateTokenResult struct {
	MintAddress string     `json:"mint_address"`
	Signature   string     `json:"signature"`
	Token       Descriptor `json:"token"`
}

// MintTokenParams mints Amount of Mint into the Destination token account.
type MintTokenParams struct {
	Mint        string
	Destination string
	Amount      decimal.Decimal
}

// TransferTokenParams moves Amount of Mint from the Source token account to
// the associated token account of Recipient.
type TransferTokenParams struct {
	Source    string
	Recipient string
	Mint      string
	Amount    decimal.Decimal
}

// ParseAddress parses s as a public key, naming field in the error.
func ParseAddress(field, s string) (solana.PublicKey, error) {
	pk, err := solana.ParsePublicKey(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, field, err)
	}
	return pk, nil
}

// CreateToken creates a mint owned by the token program with the signer as
// mint and freeze authority, plus the signer's associated token account, in
// one transaction co-signed by a fresh mint keypair.
func (s *Service) CreateToken(ctx context.Context, conn solana.Connection, signer wallet.Signer, p CreateTokenParams) (*CreateTokenResult, error) {
	if p.Decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidDecimals, p.Decimals, MaxDecimals)
	}

	payer := signer.PublicKey()
	mint := s.newMint()

	rent, err := conn.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return nil, fmt.Errorf("get rent exemption: %w", err)
	}

	ata, err := solana.FindAssociatedTokenAddress(payer, mint.PublicKey)
	if err != nil {
		return nil, err
	}

	sig, err := s.submit(ctx, conn, signer, KindCreate, createTokenTx(payer, mint, ata, rent, p.Decimals))
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	mintAddr := mint.PublicKey.ToBase58()
	s.logger.Info().
		Str("mint", mintAddr).
		Str("payer", solana.MaskAddress(payer.ToBase58())).
		Uint8("decimals", p.Decimals).
		Str("signature", sig).
		Msg("token created")

	return &CreateTokenResult{
		MintAddress: mintAddr,
		Signature:   sig,
		Token: Descriptor{
			Mint:     mintAddr,
			Name:     p.Name,
			Symbol:   p.Symbol,
			Decimals: p.Decimals,
		},
	}, nil
}

// MintToken mints to an existing token account. The destination is not
// checked before submission; the chain rejects a missing account.
func (s *Service) MintToken(ctx context.Context, conn solana.Connection, signer wallet.Signer, p MintTokenParams) (string, error) {
	mint, err := ParseAddress("mint", p.Mint)
	if err != nil {
		return "", err
	}
	dest, err := ParseAddress("destination", p.Destination)
	if err != nil {
		return "", err
	}
	if p.Amount.Sign() <= 0 {
		return "", fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, p.Amount)
	}

	decimals, err := s.decimalsOrDefault(ctx, conn, mint)
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	raw, err := ToRaw(p.Amount, decimals)
	if err != nil {
		return "", err
	}

	sig, err := s.submit(ctx, conn, signer, KindMint, mintToTx(signer.PublicKey(), mint, dest, raw))
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}

	s.logger.Info().
		Str("mint", solana.MaskAddress(p.Mint)).
		Uint64("raw_amount", raw).
		Str("signature", sig).
		Msg("tokens minted")
	return sig, nil
}

// TransferToken transfers to the recipient's associated token account,
// creating it first when it does not exist yet.
func (s *Service) TransferToken(ctx context.Context, conn solana.Connection, signer wallet.Signer, p TransferTokenParams) (string, error) {
	source, err := ParseAddress("source", p.Source)
	if err != nil {
		return "", err
	}
	recipient, err := ParseAddress("recipient", p.Recipient)
	if err != nil {
		return "", err
	}
	mint, err := ParseAddress("mint", p.Mint)
	if err != nil {
		return "", err
	}
	if p.Amount.Sign() <= 0 {
		return "", fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, p.Amount)
	}

	destATA, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return "", err
	}

	existing, err := conn.GetAccountInfo(ctx, destATA)
	if err != nil {
		return "", fmt.Errorf("transfer token: look up destination account: %w", err)
	}
	createATA := existing == nil

	decimals, err := s.decimalsOrDefault(ctx, conn, mint)
	if err != nil {
		return "", fmt.Errorf("transfer token: %w", err)
	}
	raw, err := ToRaw(p.Amount, decimals)
	if err != nil {
		return "", err
	}

	owner := signer.PublicKey()
	sig, err := s.submit(ctx, conn, signer, KindTransfer, transferTx(owner, source, recipient, destATA, mint, raw, createATA))
	if err != nil {
		return "", fmt.Errorf("transfer token: %w", err)
	}

	s.logger.Info().
		Str("mint", solana.MaskAddress(p.Mint)).
		Str("recipient", solana.MaskAddress(p.Recipient)).
		Bool("created_account", createATA).
		Uint64("raw_amount", raw).
		Str("signature", sig).
		Msg("tokens transferred")
	return sig, nil
}

// CheckTokenBalance returns owner's balance of mint held in the associated
// token account. A missing account is a zero balance; read errors are returned.
func (s *Service) CheckTokenBalance(ctx context.Context, conn solana.Connection, owner solana.PublicKey, mint string) (decimal.Decimal, error) {
	mintKey, err := ParseAddress("mint", mint)
	if err != nil {
		return decimal.Zero, err
	}

	ata, err := solana.FindAssociatedTokenAddress(owner, mintKey)
	if err != nil {
		return decimal.Zero, err
	}

	acc, err := conn.GetAccountInfo(ctx, ata)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get token account: %w", err)
	}
	if acc == nil {
		return decimal.Zero, nil
	}

	tokenAccount, err := token.TokenAccountFromData(acc.Data)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode token account: %w", err)
	}

	decimals, err := s.decimalsOrDefault(ctx, conn, mintKey)
	if err != nil {
		return decimal.Zero, err
	}
	return FromRaw(tokenAccount.Amount, decimals), nil
}

// GetTokenBalance is CheckTokenBalance that degrades every failure to zero.
func (s *Service) GetTokenBalance(ctx context.Context, conn solana.Connection, owner solana.PublicKey, mint string) float64 {
	balance, err := s.CheckTokenBalance(ctx, conn, owner, mint)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("owner", solana.MaskAddress(owner.ToBase58())).
			Str("mint", solana.MaskAddress(mint)).
			Msg("token balance unavailable")
		return 0
	}
	f, _ := balance.Float64()
	return f
}

// GetAllTokensForWallet lists tokens with a positive balance held by owner.
// Mints that cannot be read are kept with default decimals and "Unknown"
// labels; a failed listing yields an empty slice.
func (s *Service) GetAllTokensForWallet(ctx context.Context, conn solana.Connection, owner solana.PublicKey) []Descriptor {
	accounts, err := conn.GetParsedTokenAccountsByOwner(ctx, owner, solana.TokenProgramID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("owner", solana.MaskAddress(owner.ToBase58())).
			Msg("token accounts unavailable")
		return []Descriptor{}
	}

	tokens := make([]Descriptor, 0, len(accounts))
	for _, acc := range accounts {
		balance := accountBalance(acc)
		if balance <= 0 {
			continue
		}
		d := s.describe(ctx, conn, acc.Mint)
		d.Balance = &balance
		tokens = append(tokens, d)
	}
	return tokens
}

func accountBalance(acc solana.ParsedTokenAccount) float64 {
	if acc.Amount != "" {
		if d, err := FromRawString(acc.Amount, acc.Decimals); err == nil {
			f, _ := d.Float64()
			return f
		}
	}
	return acc.UIAmount
}

// describe resolves decimals, supply and Metaplex labels for one mint.
func (s *Service) describe(ctx context.Context, conn solana.Connection, mint string) Descriptor {
	d := Descriptor{Mint: mint, Decimals: s.defaultDecimals}

	unknown := func(err error) Descriptor {
		s.logger.Warn().Err(err).Str("mint", solana.MaskAddress(mint)).Msg("mint info unavailable")
		d.Name, d.Symbol = UnknownLabel, UnknownLabel
		return d
	}

	mintKey, err := solana.ParsePublicKey(mint)
	if err != nil {
		return unknown(err)
	}

	info, err := readMint(ctx, conn, mintKey)
	switch {
	case err == nil:
		d.Decimals = info.Decimals
		supply, _ := FromRaw(info.Supply, info.Decimals).Float64()
		d.Supply = &supply
	case errors.Is(err, ErrMintNotFound), errors.Is(err, errMintUnreadable):
		// Keep the default decimals without labeling the token unknown.
	default:
		return unknown(err)
	}

	if meta, ok := readMetadata(ctx, conn, mintKey); ok {
		d.Name, d.Symbol = meta.Name, meta.Symbol
	}
	return d
}
