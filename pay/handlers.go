package pay

import (
	"context"
	"net/http"
	"time"

	"fancystore/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc    *PaymentService
	logger logrus.FieldLogger
}

func NewHandler(svc *PaymentService, logger logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// VerifyPayment handles POST /verify-payment
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in VerifyRequest
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Verification failed")
		return
	}
	if err := h.svc.Verify(ctx, in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Verification failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Payment verified and order placed"})
}

// PaymentFailed handles POST /payment-failed
func (h *Handler) PaymentFailed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in FailureRequest
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to record payment failure")
		return
	}
	if err := h.svc.Fail(ctx, utils.GetUserIDFromRequest(r), utils.IsAdminRequest(r), in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to record payment failure")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Payment failure recorded"})
}
