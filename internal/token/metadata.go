package token

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"solana-token-exchange/internal/solana"
)

// errMintUnreadable marks a mint account whose contents could not be decoded.
var errMintUnreadable = errors.New("mint account unreadable")

// mintInfo holds the fields of an SPL mint the service reads.
type mintInfo struct {
	Decimals uint8
	Supply   uint64
}

// readMint reads a mint through jsonParsed encoding, falling back to the raw
// layout when the node returns unparsed data.
func readMint(ctx context.Context, conn solana.Connection, mint solana.PublicKey) (mintInfo, error) {
	acc, err := conn.GetParsedAccountInfo(ctx, mint)
	if err != nil {
		return mintInfo{}, fmt.Errorf("get mint account: %w", err)
	}
	if acc == nil {
		return mintInfo{}, fmt.Errorf("%w: %s", ErrMintNotFound, mint.ToBase58())
	}

	if acc.Parsed != nil && acc.Parsed.Type == "mint" {
		var info struct {
			Decimals uint8  `json:"decimals"`
			Supply   string `json:"supply"`
		}
		if err := json.Unmarshal(acc.Parsed.Info, &info); err != nil {
			return mintInfo{}, fmt.Errorf("%w: %v", errMintUnreadable, err)
		}
		supply, _ := strconv.ParseUint(info.Supply, 10, 64)
		return mintInfo{Decimals: info.Decimals, Supply: supply}, nil
	}

	if len(acc.Raw) > 0 {
		return parseMintData(acc.Raw)
	}
	return mintInfo{}, fmt.Errorf("%w: %s has no mint data", errMintUnreadable, mint.ToBase58())
}

// parseMintData parses SPL Token Mint account data.
// SPL Token Mint layout (82 bytes):
// - mintAuthority: Option<Pubkey> (36 bytes: 4 + 32)
// - supply: u64 (8 bytes)
// - decimals: u8 (1 byte)
// - isInitialized: bool (1 byte)
// - freezeAuthority: Option<Pubkey> (36 bytes: 4 + 32)
func parseMintData(data []byte) (mintInfo, error) {
	if len(data) < 82 {
		return mintInfo{}, fmt.Errorf("%w: data too short: %d", errMintUnreadable, len(data))
	}
	return mintInfo{
		Supply:   binary.LittleEndian.Uint64(data[36:44]),
		Decimals: data[44],
	}, nil
}

// decimalsOrDefault reads the mint's decimals. A missing or unreadable mint
// yields the service default; RPC failures are returned.
func (s *Service) decimalsOrDefault(ctx context.Context, conn solana.Connection, mint solana.PublicKey) (uint8, error) {
	info, err := readMint(ctx, conn, mint)
	switch {
	case err == nil:
		return info.Decimals, nil
	case errors.Is(err, ErrMintNotFound), errors.Is(err, errMintUnreadable):
		s.logger.Warn().
			Err(err).
			Str("mint", solana.MaskAddress(mint.ToBase58())).
			Uint8("decimals", s.defaultDecimals).
			Msg("mint decimals unavailable, using default")
		return s.defaultDecimals, nil
	default:
		return 0, err
	}
}

// tokenMetadata is the part of a Metaplex metadata account shown to users.
type tokenMetadata struct {
	Name   string
	Symbol string
}

// readMetadata fetches the Metaplex metadata PDA of mint. ok is false when the
// account is missing or cannot be parsed.
func readMetadata(ctx context.Context, conn solana.Connection, mint solana.PublicKey) (tokenMetadata, bool) {
	pda, err := solana.FindMetadataAddress(mint)
	if err != nil {
		return tokenMetadata{}, false
	}
	acc, err := conn.GetAccountInfo(ctx, pda)
	if err != nil || acc == nil {
		return tokenMetadata{}, false
	}
	return parseMetaplexData(acc.Data)
}

// parseMetaplexData parses Metaplex Token Metadata account data.
// Metaplex Metadata layout:
// - key: u8 (1 byte, 4 for MetadataV1)
// - updateAuthority: Pubkey (32 bytes)
// - mint: Pubkey (32 bytes)
// - name: String (4 + length bytes, max 32 chars)
// - symbol: String (4 + length bytes, max 10 chars)
// - uri and further fields are ignored
func parseMetaplexData(data []byte) (tokenMetadata, bool) {
	if len(data) < 100 || data[0] != 4 {
		return tokenMetadata{}, false
	}

	// key(1) + updateAuthority(32) + mint(32)
	offset := 65

	name, offset, ok := readBorshString(data, offset, 100)
	if !ok {
		return tokenMetadata{}, false
	}
	symbol, _, ok := readBorshString(data, offset, 20)
	if !ok {
		return tokenMetadata{}, false
	}
	return tokenMetadata{Name: name, Symbol: symbol}, true
}

// readBorshString reads a u32-length-prefixed string padded with NULs.
func readBorshString(data []byte, offset int, maxLen uint32) (string, int, bool) {
	if offset+4 > len(data) {
		return "", offset, false
	}
	n := binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	if n > maxLen || offset+int(n) > len(data) {
		return "", offset, false
	}
	s := strings.TrimRight(string(data[offset:offset+int(n)]), "\x00")
	return s, offset + int(n), true
}
