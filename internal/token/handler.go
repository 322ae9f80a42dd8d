package token

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/holiman/uint256"

	"github.com/congo-pay/feetoken/internal/event"
	"github.com/congo-pay/feetoken/internal/fee"
	"github.com/congo-pay/feetoken/internal/freeze"
	"github.com/congo-pay/feetoken/internal/middleware"
	"github.com/congo-pay/feetoken/internal/tokenerr"
)

const maxEventPage = 500

// Handler exposes the token over HTTP. Amounts travel as base-10 strings.
type Handler struct {
	tok    *Token
	events *event.Log
}

// NewHandler wires a handler. events may be nil, in which case the event
// listing is empty.
func NewHandler(tok *Token, events *event.Log) *Handler {
	return &Handler{tok: tok, events: events}
}

type infoResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
	Owner       string `json:"owner"`
	FeeRate     uint64 `json:"fee_rate_bps"`
	MaxFeeRate  uint64 `json:"max_fee_rate_bps"`
	Paused      bool   `json:"paused"`
	Address     string `json:"address"`
}

// Info returns the contract info snapshot.
func (h *Handler) Info(c *fiber.Ctx) error {
	info, err := h.tok.ContractInfo(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(infoResponse{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: info.TotalSupply.Dec(),
		Owner:       info.Owner.Hex(),
		FeeRate:     info.FeeRate,
		MaxFeeRate:  info.MaxFeeRate,
		Paused:      info.Paused,
		Address:     info.Address.Hex(),
	})
}

// Fees returns the current and maximum fee rates.
func (h *Handler) Fees(c *fiber.Ctx) error {
	current, maximum := h.tok.FeeRateInfo()
	return c.JSON(fiber.Map{
		"fee_rate_bps":     current,
		"max_fee_rate_bps": maximum,
		"denominator":      fee.BasisDenominator,
	})
}

// Quote returns the fee split of ?amount= at the current rate.
func (h *Handler) Quote(c *fiber.Ctx) error {
	amount, err := parseAmount(c.Query("amount"), "amount")
	if err != nil {
		return err
	}
	feeAmount, net := h.tok.CalculateTransferFee(amount)
	current, _ := h.tok.FeeRateInfo()
	return c.JSON(fiber.Map{
		"amount":       amount.Dec(),
		"fee":          feeAmount.Dec(),
		"net":          net.Dec(),
		"fee_rate_bps": current,
	})
}

// Account returns the balance breakdown of :address.
func (h *Handler) Account(c *fiber.Ctx) error {
	account, err := parseAddress(c.Params("address"), "address")
	if err != nil {
		return err
	}
	view, err := h.accountView(c.UserContext(), account)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) accountView(ctx context.Context, account common.Address) (fiber.Map, error) {
	balance, err := h.tok.BalanceOf(ctx, account)
	if err != nil {
		return nil, err
	}
	frozen, err := h.tok.FrozenBalanceOf(ctx, account)
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"address":   account.Hex(),
		"balance":   balance.Dec(),
		"frozen":    frozen.Dec(),
		"available": freeze.Available(balance, frozen).Dec(),
	}, nil
}

// Allowance returns the allowance of :spender over :owner.
func (h *Handler) Allowance(c *fiber.Ctx) error {
	owner, err := parseAddress(c.Params("owner"), "owner")
	if err != nil {
		return err
	}
	spender, err := parseAddress(c.Params("spender"), "spender")
	if err != nil {
		return err
	}
	allowance, err := h.tok.Allowance(c.UserContext(), owner, spender)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"owner": owner.Hex(), "spender": spender.Hex(), "allowance": allowance.Dec()})
}

// Events pages through emitted records after ?after= (a sequence number).
func (h *Handler) Events(c *fiber.Ctx) error {
	after, err := strconv.ParseUint(c.Query("after", "0"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "after must be a sequence number")
	}
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > maxEventPage {
		limit = maxEventPage
	}
	records := []event.Record{}
	if h.events != nil {
		if page := h.events.Since(after, limit); page != nil {
			records = page
		}
	}
	return c.JSON(fiber.Map{"events": records})
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type transferResponse struct {
	Success      bool      `json:"success"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Amount       string    `json:"amount"`
	Fee          string    `json:"fee"`
	Net          string    `json:"net"`
	Beneficiary  string    `json:"beneficiary"`
	FeeForfeited bool      `json:"fee_forfeited"`
	FromBalance  string    `json:"from_balance"`
	ToBalance    string    `json:"to_balance"`
	CompletedAt  time.Time `json:"completed_at"`
}

func newTransferResponse(res TransferResult) transferResponse {
	return transferResponse{
		Success:      true,
		From:         res.From.Hex(),
		To:           res.To.Hex(),
		Amount:       res.Amount.Dec(),
		Fee:          res.Fee.Dec(),
		Net:          res.Net.Dec(),
		Beneficiary:  res.Beneficiary.Hex(),
		FeeForfeited: res.FeeForfeited,
		FromBalance:  res.FromBalance.Dec(),
		ToBalance:    res.ToBalance.Dec(),
		CompletedAt:  res.CompletedAt,
	}
}

// Transfer moves tokens from the caller.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return err
	}
	res, err := h.tok.Transfer(c.UserContext(), caller, to, amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(newTransferResponse(res))
}

// TransferFrom moves tokens on behalf of an owner that approved the caller.
func (h *Handler) TransferFrom(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	from, err := parseAddress(req.From, "from")
	if err != nil {
		return err
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return err
	}
	res, err := h.tok.TransferFrom(c.UserContext(), caller, from, to, amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(newTransferResponse(res))
}

type approveRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// Approve sets the allowance of a spender over the caller's balance.
func (h *Handler) Approve(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	spender, err := parseAddress(req.Spender, "spender")
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return err
	}
	if err := h.tok.Approve(c.UserContext(), caller, spender, amount); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "owner": caller.Hex(), "spender": spender.Hex(), "allowance": amount.Dec()})
}

// SetFeeRate changes the fee rate.
func (h *Handler) SetFeeRate(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req struct {
		Rate *uint64 `json:"fee_rate_bps"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Rate == nil {
		return fiber.NewError(http.StatusBadRequest, "fee_rate_bps is required")
	}
	if err := h.tok.SetFeeRate(c.UserContext(), caller, *req.Rate); err != nil {
		return err
	}
	return h.Fees(c)
}

type freezeRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// Freeze places a hold on an account.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	return h.freezeOp(c, h.tok.FreezeAddress)
}

// Unfreeze releases a hold on an account.
func (h *Handler) Unfreeze(c *fiber.Ctx) error {
	return h.freezeOp(c, h.tok.UnfreezeAddress)
}

func (h *Handler) freezeOp(c *fiber.Ctx, op func(ctx context.Context, caller, account common.Address, amount *uint256.Int) error) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req freezeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := parseAddress(req.Account, "account")
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return err
	}
	if err := op(c.UserContext(), caller, account, amount); err != nil {
		return err
	}
	view, err := h.accountView(c.UserContext(), account)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// Pause closes the transfer gate.
func (h *Handler) Pause(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	if err := h.tok.Pause(c.UserContext(), caller); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"paused": true})
}

// Unpause opens the transfer gate.
func (h *Handler) Unpause(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	if err := h.tok.Unpause(c.UserContext(), caller); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"paused": false})
}

// Recover moves an external asset held by the token to the owner.
func (h *Handler) Recover(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req struct {
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	assetID, err := parseAddress(req.Asset, "asset")
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return err
	}
	if err := h.tok.RecoverERC20(c.UserContext(), caller, assetID, amount); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "asset": assetID.Hex(), "amount": amount.Dec()})
}

// TransferOwnership hands administratorship to another address.
func (h *Handler) TransferOwnership(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req struct {
		NewOwner string `json:"new_owner"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	newOwner, err := parseAddress(req.NewOwner, "new_owner")
	if err != nil {
		return err
	}
	if err := h.tok.TransferOwnership(c.UserContext(), caller, newOwner); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"owner": newOwner.Hex()})
}

// RenounceOwnership always fails; the route exists so clients get a stable error.
func (h *Handler) RenounceOwnership(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	return h.tok.RenounceOwnership(c.UserContext(), caller)
}

// RequireOwner rejects callers other than the current owner.
func (h *Handler) RequireOwner(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	if caller != h.tok.Owner(c.UserContext()) {
		return tokenerr.ErrNotOwner
	}
	return c.Next()
}

func callerOf(c *fiber.Ctx) (common.Address, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return common.Address{}, fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return caller, nil
}

// parseAddress accepts hex addresses only. The zero address is passed through
// so that the token reports it as an invalid address.
func parseAddress(raw, field string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusBadRequest, field+" must be a hex address")
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw, field string) (*uint256.Int, error) {
	if raw == "" {
		return nil, fiber.NewError(http.StatusBadRequest, field+" is required")
	}
	amount, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, field+" must be a base-10 integer below 2^256")
	}
	return amount, nil
}
