package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/feetoken/internal/identity"
	"github.com/congo-pay/feetoken/internal/token"
)

// RegisterTokenRoutes wires the public queries on r and the signed
// operations on protected.
func RegisterTokenRoutes(r, protected fiber.Router, h *token.Handler) {
	r.Get("/token", h.Info)
	r.Get("/fees", h.Fees)
	r.Get("/fees/quote", h.Quote)
	r.Get("/accounts/:address", h.Account)
	r.Get("/accounts/:owner/allowances/:spender", h.Allowance)
	r.Get("/events", h.Events)

	protected.Post("/transfers", h.Transfer)
	protected.Post("/transfers/delegated", h.TransferFrom)
	protected.Post("/approvals", h.Approve)
}

// RegisterAdminRoutes wires owner operations. Ownership is checked by the
// token itself except for credential registration, which goes through
// RequireOwner.
func RegisterAdminRoutes(protected fiber.Router, h *token.Handler, ids *identity.Handler) {
	admin := protected.Group("/admin")
	admin.Put("/fee-rate", h.SetFeeRate)
	admin.Post("/freeze", h.Freeze)
	admin.Post("/unfreeze", h.Unfreeze)
	admin.Post("/pause", h.Pause)
	admin.Post("/unpause", h.Unpause)
	admin.Post("/recover", h.Recover)
	admin.Put("/owner", h.TransferOwnership)
	admin.Delete("/owner", h.RenounceOwnership)
	admin.Post("/credentials", h.RequireOwner, ids.Register)
}
