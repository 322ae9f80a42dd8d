package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

// Handler exposes credential registration. Callers are expected to be
// authorized upstream.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Address string `json:"address"`
	Secret  string `json:"secret"`
}

type accountResponse struct {
	Address   string `json:"address"`
	CreatedAt string `json:"created_at"`
}

// Register handles credential onboarding for an address.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !common.IsHexAddress(req.Address) {
		return fiber.NewError(http.StatusBadRequest, "address must be a hex address")
	}
	account, err := h.service.Register(c.UserContext(), Credentials{Address: common.HexToAddress(req.Address), Secret: req.Secret})
	if err != nil {
		if errors.Is(err, ErrExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(accountResponse{
		Address:   account.Address.Hex(),
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	})
}
