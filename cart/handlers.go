package cart

import (
	"context"
	"net/http"
	"time"

	"fancystore/models"
	"fancystore/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc    *Service
	logger logrus.FieldLogger
}

func NewHandler(svc *Service, logger logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// GetCart returns the caller's cart lines joined with their products.
// Admins have no cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if utils.IsAdminRequest(r) {
		utils.RespondWithJSON(w, http.StatusOK, []models.CartItem{})
		return
	}
	items, err := h.svc.View(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to fetch cart")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, items)
}

// AddToCart handles POST /cart {productId}
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in struct {
		ProductID string `json:"productId"`
	}
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to add to cart")
		return
	}
	if err := h.svc.Add(ctx, utils.GetUserIDFromRequest(r), in.ProductID); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to add to cart")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Added to cart"})
}

// UpdateQuantity handles PUT /cart/:productId {quantity}
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to update cart")
		return
	}
	err := h.svc.SetQuantity(ctx, utils.GetUserIDFromRequest(r), ps.ByName("productId"), in.Quantity)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to update cart")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Cart updated successfully"})
}

// RemoveFromCart handles DELETE /cart/:productId
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.Remove(ctx, utils.GetUserIDFromRequest(r), ps.ByName("productId")); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to remove from cart")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Removed from cart"})
}
