package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fancystore/errs"

	"github.com/sirupsen/logrus"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errs.Validation("bad"), http.StatusBadRequest},
		{"not found", errs.NotFound("gone"), http.StatusNotFound},
		{"unauthorized", errs.Unauthorized("no"), http.StatusUnauthorized},
		{"forbidden", errs.Forbidden("no"), http.StatusForbidden},
		{"conflict", errs.Conflict("busy"), http.StatusConflict},
		{"stock", &errs.StockError{Available: 1}, http.StatusConflict},
		{"bad signature", errs.Gateway("Invalid payment signature", nil), http.StatusBadRequest},
		{"gateway down", errs.Gateway("Payment gateway error", errors.New("dial tcp")), http.StatusBadGateway},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func respond(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	RespondWithErr(rec, quietLogger(), err, "Something failed")
	var body map[string]any
	if e := json.NewDecoder(rec.Body).Decode(&body); e != nil {
		t.Fatalf("decode: %v", e)
	}
	return rec.Code, body
}

func TestRespondWithErrStock(t *testing.T) {
	code, body := respond(t, &errs.StockError{ProductID: "p1", Requested: 5, Available: 3})
	if code != http.StatusConflict {
		t.Fatalf("code = %d", code)
	}
	if body["error"] != "Only 3 items available in stock" || body["available"] != float64(3) || body["productId"] != "p1" {
		t.Fatalf("body = %v", body)
	}
}

func TestRespondWithErrGatewayDetails(t *testing.T) {
	code, body := respond(t, errs.Gateway("Payment gateway error", errors.New("timeout")))
	if code != http.StatusBadGateway || body["details"] != "timeout" {
		t.Fatalf("%d %v", code, body)
	}

	_, body = respond(t, errs.Gateway("Invalid payment signature", nil))
	if _, ok := body["details"]; ok {
		t.Fatalf("signature mismatch should carry no details: %v", body)
	}
}

func TestRespondWithErrHidesInternals(t *testing.T) {
	code, body := respond(t, errors.New("mongo: connection refused"))
	if code != http.StatusInternalServerError || body["error"] != "Something failed" {
		t.Fatalf("%d %v", code, body)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	cases := []struct {
		body string
		msg  string
	}{
		{"", "Request body is required"},
		{"{not json", "Invalid JSON payload"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		err := DecodeJSON(httptest.NewRecorder(), r, &dst)
		if !errs.Is(err, errs.KindValidation) || errs.Message(err, "") != tc.msg {
			t.Errorf("%q: got %v", tc.body, err)
		}
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Vase"}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, &dst); err != nil || dst.Name != "Vase" {
		t.Fatalf("valid body: %v %+v", err, dst)
	}
}
