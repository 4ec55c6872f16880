package solana

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// Commitment levels accepted by the RPC node.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

var (
	// ErrTransactionFailed is returned when a confirmed transaction carries an on-chain error.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrConfirmTimeout is returned when a signature does not reach the commitment in time.
	ErrConfirmTimeout = errors.New("transaction confirmation timed out")
)

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// AccountInfo represents Solana account information with decoded data.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// ParsedAccountInfo represents an account fetched with jsonParsed encoding.
// Parsed is nil when the node could not parse the account; Raw then holds the bytes.
type ParsedAccountInfo struct {
	Lamports uint64
	Owner    string
	Parsed   *ParsedData
	Raw      []byte
}

// ParsedData is the program-specific parsed payload.
type ParsedData struct {
	Program string
	Type    string
	Info    json.RawMessage
}

// ParsedTokenAccount is one entry of getTokenAccountsByOwner (jsonParsed).
type ParsedTokenAccount struct {
	Pubkey         string
	Mint           string
	Owner          string
	Amount         string // raw integer amount
	Decimals       uint8
	UIAmount       float64
	UIAmountString string
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	Err                interface{}
	ConfirmationStatus string
}

// Reached reports whether the status satisfies the commitment level.
func (s *SignatureStatus) Reached(commitment string) bool {
	if s == nil {
		return false
	}
	return commitmentRank(s.ConfirmationStatus) >= commitmentRank(commitment)
}

func commitmentRank(c string) int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// accountData decodes the "data" field of an account, which is either
// a [payload, encoding] pair or a jsonParsed object.
type accountData struct {
	raw    []byte
	parsed *ParsedData
}

func (d *accountData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '[' {
		var pair []string
		if err := json.Unmarshal(b, &pair); err != nil {
			return fmt.Errorf("decode account data pair: %w", err)
		}
		if len(pair) == 0 {
			return nil
		}
		if len(pair) > 1 && pair[1] != "base64" {
			return fmt.Errorf("unsupported account data encoding %q", pair[1])
		}
		raw, err := base64.StdEncoding.DecodeString(pair[0])
		if err != nil {
			return fmt.Errorf("decode account data: %w", err)
		}
		d.raw = raw
		return nil
	}

	var obj struct {
		Program string `json:"program"`
		Parsed  struct {
			Type string          `json:"type"`
			Info json.RawMessage `json:"info"`
		} `json:"parsed"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("decode parsed account data: %w", err)
	}
	d.parsed = &ParsedData{
		Program: obj.Program,
		Type:    obj.Parsed.Type,
		Info:    obj.Parsed.Info,
	}
	return nil
}
