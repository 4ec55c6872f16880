package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"solana-token-exchange/internal/logging"
	"solana-token-exchange/internal/panel"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, token.ErrInvalidAddress),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, token.ErrInvalidDecimals),
		errors.Is(err, panel.ErrMissingField),
		errors.Is(err, panel.ErrInsufficientBalance),
		errors.Is(err, wallet.ErrInvalidKeypair),
		errors.Is(err, wallet.ErrInvalidMnemonic),
		errors.Is(err, wallet.ErrUnknownAdapter),
		errors.Is(err, solana.ErrInvalidPublicKey):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrSignatureDeclined):
		return http.StatusForbidden
	case errors.Is(err, session.ErrNotConnected),
		errors.Is(err, session.ErrAirdropUnavailable),
		errors.Is(err, session.ErrAirdropInProgress),
		errors.Is(err, panel.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// errorHandler renders every error as {"error": message}.
func errorHandler(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.HTTP.Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
