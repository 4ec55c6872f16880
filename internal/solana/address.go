package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

// PublicKey is a 32-byte ed25519 public key, shared with the transaction SDK.
type PublicKey = common.PublicKey

const (
	publicKeyLength = 32
	maxSeeds        = 16
	maxSeedLength   = 32
	pdaMarker       = "ProgramDerivedAddress"
)

// Well-known program ids.
var (
	SystemProgramID          = MustPublicKey("11111111111111111111111111111111")
	TokenProgramID           = MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustPublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	MetadataProgramID        = MustPublicKey("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

var (
	// ErrInvalidPublicKey is returned for strings that are not base58 32-byte keys.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrNoViableBump is returned when no bump seed yields an off-curve address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

	// ErrInvalidSeeds is returned for seed sets that exceed program address limits.
	ErrInvalidSeeds = errors.New("invalid program address seeds")
)

// ParsePublicKey decodes a base58 address and checks its length.
func ParsePublicKey(s string) (PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PublicKey{}, fmt.Errorf("%w: empty address", ErrInvalidPublicKey)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidPublicKey, s, err)
	}
	if len(b) != publicKeyLength {
		return PublicKey{}, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidPublicKey, s, len(b))
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk, nil
}

// MustPublicKey parses a known-good address and panics otherwise.
func MustPublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// FindProgramAddress derives a program address for seeds, searching bumps from 255 down.
// The result is deterministic: the same inputs always produce the same address and bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	if len(seeds) >= maxSeeds {
		return PublicKey{}, 0, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) > maxSeedLength {
			return PublicKey{}, 0, fmt.Errorf("%w: seed %d is %d bytes", ErrInvalidSeeds, i, len(seed))
		}
	}

	for bump := 255; bump >= 0; bump-- {
		if addr, ok := createProgramAddress(seeds, byte(bump), programID); ok {
			return addr, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// createProgramAddress hashes seeds || bump || programID || marker and
// accepts the hash only if it is not a valid ed25519 point.
func createProgramAddress(seeds [][]byte, bump byte, programID PublicKey) (PublicKey, bool) {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr PublicKey
	copy(addr[:], h.Sum(nil))
	if isOnCurve(addr[:]) {
		return PublicKey{}, false
	}
	return addr, true
}

func isOnCurve(point []byte) bool {
	if len(point) != publicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// FindAssociatedTokenAddress derives the associated token account of owner for mint
// under the classic token program.
func FindAssociatedTokenAddress(owner, mint PublicKey) (PublicKey, error) {
	addr, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return PublicKey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}

// FindMetadataAddress derives the Metaplex metadata account for a mint.
// Seeds: ["metadata", metadata_program_id, mint]
func FindMetadataAddress(mint PublicKey) (PublicKey, error) {
	addr, _, err := FindProgramAddress(
		[][]byte{[]byte("metadata"), MetadataProgramID[:], mint[:]},
		MetadataProgramID,
	)
	if err != nil {
		return PublicKey{}, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, nil
}

// ShortAddress renders an address as "abcdef...wxyz" for display.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// MaskAddress renders an address as "abcd***wxyz" for logs.
func MaskAddress(addr string) string {
	t := strings.TrimSpace(addr)
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}
