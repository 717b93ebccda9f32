package orders

import (
	"context"
	"net/http"
	"strconv"
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

// ListOrders handles GET /orders (admin)
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to fetch orders")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// PrintReceipt handles GET /orders/:id/receipt
func (h *Handler) PrintReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id := ps.ByName("id")
	view, err := h.svc.Get(ctx, id, utils.GetUserIDFromRequest(r), utils.IsAdminRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to fetch order")
		return
	}
	pdf, err := RenderReceipt(view)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+id+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
