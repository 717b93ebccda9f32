package products

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

// List handles GET /products
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to fetch products")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// Create handles POST /products
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in models.Product
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to add product")
		return
	}
	p, err := h.svc.Create(ctx, in)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to add product")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, p)
}

// Update handles PUT /products/:id
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var patch models.ProductPatch
	if err := utils.DecodeJSON(w, r, &patch); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to update product")
		return
	}
	p, err := h.svc.Update(ctx, ps.ByName("id"), patch)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to update product")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /products/:id
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.Delete(ctx, ps.ByName("id")); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to delete product")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Product deleted"})
}
