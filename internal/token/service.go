// Package token implements SPL token operations: create, mint, transfer and balance reads.
package token

import (
	"errors"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"

	"solana-token-exchange/internal/logging"
)

const (
	// MaxDecimals is the largest decimals value accepted for new mints.
	MaxDecimals = 9

	// DefaultDecimals is assumed when a mint's decimals cannot be read.
	DefaultDecimals = 9

	// UnknownLabel names tokens whose mint could not be read.
	UnknownLabel = "Unknown"
)

var (
	// ErrInvalidAddress is returned for strings that are not valid public keys.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidAmount is returned for non-positive, unparseable or overflowing amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDecimals is returned when a new mint asks for more than
	// MaxDecimals.
	ErrInvalidDecimals = errors.New("invalid decimals")

	// ErrMintNotFound is returned when a mint account does not exist.
	ErrMintNotFound = errors.New("mint account not found")
)

// Service performs token operations against a connection with an external signer.
// It holds no per-wallet state and is safe for concurrent use.
type Service struct {
	defaultDecimals uint8
	logger          zerolog.Logger
	newMint         func() types.Account
}

// Option configures Service.
type Option func(*Service)

// WithDefaultDecimals sets the decimals assumed when a mint cannot be read.
func WithDefaultDecimals(d uint8) Option {
	return func(s *Service) {
		if d <= MaxDecimals {
			s.defaultDecimals = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a token service.
func NewService(opts ...Option) *Service {
	s := &Service{
		defaultDecimals: DefaultDecimals,
		logger:          logging.Token,
		newMint:         types.NewAccount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultDecimals returns the configured fallback decimals.
func (s *Service) DefaultDecimals() uint8 {
	return s.defaultDecimals
}
