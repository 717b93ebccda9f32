package auth

import (
	"context"
	"net/http"
	"time"

	"fancystore/globals"
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

// Register handles POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in models.Credentials
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Registration failed")
		return
	}
	if _, err := h.svc.Register(ctx, in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Registration failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"message": "User registered successfully"})
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in models.Credentials
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Login failed")
		return
	}
	resp, err := h.svc.Login(ctx, in)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Login failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	tokenID, _ := r.Context().Value(globals.TokenIDKey).(string)
	exp, _ := r.Context().Value(globals.TokenExpKey).(time.Time)
	if err := h.svc.Logout(ctx, tokenID, exp); err != nil {
		utils.RespondWithErr(w, h.logger, err, "Logout failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Logged out successfully"})
}
