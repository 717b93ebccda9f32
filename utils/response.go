package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"fancystore/errs"

	"github.com/sirupsen/logrus"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindUnauthorized:
		return http.StatusUnauthorized
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindConflict, errs.KindStock:
		return http.StatusConflict
	case errs.KindGateway:
		var e *errs.Error
		if errors.As(err, &e) && e.Err == nil {
			// signature mismatch: the caller sent a bad callback
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithErr writes err as {"error": msg}. Unclassified errors are
// logged and answered with fallback so internals never leak.
func RespondWithErr(w http.ResponseWriter, logger logrus.FieldLogger, err error, fallback string) {
	status := StatusFor(err)
	body := M{"error": errs.Message(err, fallback)}

	var se *errs.StockError
	if errors.As(err, &se) {
		body["available"] = se.Available
		if se.ProductID != "" {
			body["productId"] = se.ProductID
		}
	}
	var e *errs.Error
	if errors.As(err, &e) && e.Kind == errs.KindGateway && e.Err != nil {
		body["details"] = e.Err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.WithError(err).Error(fallback)
	} else {
		logger.WithError(err).Debug("request rejected")
	}
	RespondWithJSON(w, status, body)
}

type M map[string]any
