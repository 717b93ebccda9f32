package checkout

import (
	"context"
	"net/http"
	"time"

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

// CheckoutCart handles POST /cart/checkout
func (h *Handler) CheckoutCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.CheckoutCart(ctx, utils.GetUserIDFromRequest(r)); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Checkout failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Checkout successful"})
}

// CreateRazorpayOrder handles POST /create-razorpay-order
func (h *Handler) CreateRazorpayOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in GatewayOrderInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Order creation failed")
		return
	}
	resp, err := h.svc.CreateGatewayOrder(ctx, utils.GetUserIDFromRequest(r), utils.IsAdminRequest(r), in)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Order creation failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
