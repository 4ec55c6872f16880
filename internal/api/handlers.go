package api

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"solana-token-exchange/internal/page"
	"solana-token-exchange/internal/panel"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/storage"
	"solana-token-exchange/internal/wallet"
)

const healthTimeout = 2 * time.Second

type handler struct {
	deps Deps
}

// sessionView is the JSON form of session.State.
type sessionView struct {
	Network   string          `json:"network"`
	Connected bool            `json:"connected"`
	Address   string          `json:"address,omitempty"`
	Balance   float64         `json:"balance"`
	Loading   session.Loading `json:"loading"`
}

func toSessionView(s session.State) sessionView {
	return sessionView{
		Network:   string(s.Network),
		Connected: s.Connected(),
		Address:   s.Address(),
		Balance:   s.Balance,
		Loading:   s.Loading,
	}
}

type connectRequest struct {
	Adapter     string `json:"adapter"`
	KeypairPath string `json:"keypair_path"`
	Mnemonic    string `json:"mnemonic"`
	Passphrase  string `json:"passphrase"`
}

// connectParams merges req into the configured wallet secrets. A keypair
// path other than the configured one is refused.
func (h *handler) connectParams(req connectRequest) (wallet.ConnectParams, error) {
	params := h.deps.Wallet
	if req.KeypairPath != "" {
		configured := params.KeypairPath != "" && filepath.Clean(req.KeypairPath) == filepath.Clean(params.KeypairPath)
		if !configured {
			return params, fiber.NewError(fiber.StatusForbidden, "keypair_path must match the configured wallet keypair")
		}
	}
	if req.Mnemonic != "" {
		params.Mnemonic = req.Mnemonic
		params.Passphrase = req.Passphrase
	}
	return params, nil
}

type networkRequest struct {
	Network string `json:"network"`
}

type checkRequest struct {
	TokenAddress string `json:"token_address"`
}

func (h *handler) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	if h.deps.DB != nil {
		if err := h.deps.DB.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db_unavailable"})
		}
	}
	if h.deps.Cache != nil {
		if err := h.deps.Cache.Ping(ctx).Err(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "redis_unavailable"})
		}
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"network": string(h.deps.Session.Snapshot().Network),
	})
}

func (h *handler) page(c *fiber.Ctx) error {
	return c.JSON(page.Compose(h.deps.Session.Snapshot()))
}

func (h *handler) getSession(c *fiber.Ctx) error {
	return c.JSON(toSessionView(h.deps.Session.Snapshot()))
}

func (h *handler) connect(c *fiber.Ctx) error {
	var req connectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Adapter)
	if name == "" {
		name = h.deps.DefaultAdapter
	}
	adapter, err := wallet.Lookup(name)
	if err != nil {
		return err
	}
	params, err := h.connectParams(req)
	if err != nil {
		return err
	}

	state, err := h.deps.Session.Connect(c.UserContext(), adapter, params)
	if err != nil {
		return err
	}
	return c.JSON(toSessionView(state))
}

func (h *handler) disconnect(c *fiber.Ctx) error {
	h.deps.Session.Disconnect()
	return c.JSON(toSessionView(h.deps.Session.Snapshot()))
}

func (h *handler) setNetwork(c *fiber.Ctx) error {
	var req networkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cluster, err := solana.ParseCluster(req.Network)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.deps.Session.SetNetwork(cluster); err != nil {
		return err
	}
	return c.JSON(toSessionView(h.deps.Session.Snapshot()))
}

func (h *handler) refreshBalance(c *fiber.Ctx) error {
	if !h.deps.Session.Snapshot().Connected() {
		return session.ErrNotConnected
	}
	h.deps.Session.FetchBalance(c.UserContext())
	return c.JSON(toSessionView(h.deps.Session.Snapshot()))
}

func (h *handler) airdrop(c *fiber.Ctx) error {
	if err := h.deps.Panels.Wallet.Airdrop(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(toSessionView(h.deps.Session.Snapshot()))
}

func (h *handler) getCreate(c *fiber.Ctx) error {
	return c.JSON(h.deps.Panels.Create.View())
}

func (h *handler) submitCreate(c *fiber.Ctx) error {
	form := panel.DefaultCreateForm()
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if _, err := h.deps.Panels.Create.Submit(c.UserContext(), form); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(h.deps.Panels.Create.View())
}

func (h *handler) resetCreate(c *fiber.Ctx) error {
	if err := h.deps.Panels.Create.Reset(); err != nil {
		return err
	}
	return c.JSON(h.deps.Panels.Create.View())
}

func (h *handler) getMint(c *fiber.Ctx) error {
	return c.JSON(h.deps.Panels.Mint.View())
}

func (h *handler) submitMint(c *fiber.Ctx) error {
	form := panel.DefaultMintForm()
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if _, err := h.deps.Panels.Mint.Submit(c.UserContext(), form); err != nil {
		return err
	}
	return c.JSON(h.deps.Panels.Mint.View())
}

func (h *handler) getSend(c *fiber.Ctx) error {
	return c.JSON(h.deps.Panels.Send.View())
}

func (h *handler) submitSend(c *fiber.Ctx) error {
	form := panel.DefaultSendForm()
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if _, err := h.deps.Panels.Send.Submit(c.UserContext(), form); err != nil {
		return err
	}
	return c.JSON(h.deps.Panels.Send.View())
}

func (h *handler) checkBalance(c *fiber.Ctx) error {
	var req checkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if _, err := h.deps.Panels.Send.CheckBalance(c.UserContext(), req.TokenAddress); err != nil {
		return err
	}
	return c.JSON(h.deps.Panels.Send.View())
}

func (h *handler) getBalances(c *fiber.Ctx) error {
	return c.JSON(h.deps.Panels.Balances.View())
}

func (h *handler) refreshBalances(c *fiber.Ctx) error {
	h.deps.Panels.Balances.Refresh(c.UserContext())
	return c.JSON(h.deps.Panels.Balances.View())
}

func (h *handler) getWallet(c *fiber.Ctx) error {
	return c.JSON(h.deps.Panels.Wallet.View())
}

func (h *handler) notifications(c *fiber.Ctx) error {
	active, err := h.deps.Feed.Active(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notifications": active})
}

func (h *handler) activity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", storage.DefaultListLimit)
	if limit <= 0 || limit > storage.MaxListLimit {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 500")
	}

	activities, err := h.deps.Journal.Recent(c.UserContext(), c.Query("owner"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"activities": activities})
}
