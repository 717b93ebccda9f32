package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fancystore/rdx"
	"fancystore/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, userID string, admin bool, jti string, exp time.Time) string {
	t.Helper()
	claims := &Claims{
		UserID:  userID,
		IsAdmin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newTestAuth() (*Auth, *rdx.LocalDenylist) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	deny := rdx.NewLocalDenylist()
	return NewAuth(testSecret, deny, logger), deny
}

func whoami(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"userId":  utils.GetUserIDFromRequest(r),
		"isAdmin": utils.IsAdminRequest(r),
	})
}

func serve(h httprouter.Handle, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec
}

func TestAuthenticate(t *testing.T) {
	auth, _ := newTestAuth()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"no bearer", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, []byte("other"), "u1", false, "j", future), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, "u1", false, "j", time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, "u1", false, "j", future), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(auth.Authenticate(whoami), tc.header)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestAuthenticateSetsIdentity(t *testing.T) {
	auth, _ := newTestAuth()
	tok := signToken(t, testSecret, "admin-1", true, "j1", time.Now().Add(time.Hour))

	rec := serve(auth.Authenticate(whoami), "Bearer "+tok)
	body := rec.Body.String()
	if !strings.Contains(body, `"userId":"admin-1"`) || !strings.Contains(body, `"isAdmin":true`) {
		t.Fatalf("unexpected identity: %s", body)
	}
}

func TestAuthenticateRejectsRevoked(t *testing.T) {
	auth, deny := newTestAuth()
	exp := time.Now().Add(time.Hour)
	tok := signToken(t, testSecret, "u1", false, "jti-9", exp)

	if rec := serve(auth.Authenticate(whoami), "Bearer "+tok); rec.Code != http.StatusOK {
		t.Fatalf("before revoke: %d", rec.Code)
	}
	_ = deny.Revoke(context.Background(), "jti-9", exp)
	if rec := serve(auth.Authenticate(whoami), "Bearer "+tok); rec.Code != http.StatusUnauthorized {
		t.Fatalf("after revoke: %d", rec.Code)
	}
}

func TestRoleGuards(t *testing.T) {
	auth, _ := newTestAuth()
	exp := time.Now().Add(time.Hour)
	user := "Bearer " + signToken(t, testSecret, "u1", false, "a", exp)
	admin := "Bearer " + signToken(t, testSecret, "a1", true, "b", exp)

	adminOnly := Chain(auth.Authenticate, RequireAdmin)(whoami)
	shopperOnly := Chain(auth.Authenticate, ForbidAdmin)(whoami)

	if rec := serve(adminOnly, user); rec.Code != http.StatusForbidden {
		t.Errorf("user on admin route: %d", rec.Code)
	}
	if rec := serve(adminOnly, admin); rec.Code != http.StatusOK {
		t.Errorf("admin on admin route: %d", rec.Code)
	}
	if rec := serve(shopperOnly, admin); rec.Code != http.StatusForbidden {
		t.Errorf("admin on cart route: %d", rec.Code)
	}
	if rec := serve(shopperOnly, user); rec.Code != http.StatusOK {
		t.Errorf("user on cart route: %d", rec.Code)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next httprouter.Handle) httprouter.Handle {
			return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
				order = append(order, name)
				next(w, r, ps)
			}
		}
	}
	h := Chain(mark("a"), mark("b"), mark("c"))(func(http.ResponseWriter, *http.Request, httprouter.Params) {
		order = append(order, "handler")
	})
	serve(h, "")
	if got := strings.Join(order, ","); got != "a,b,c,handler" {
		t.Fatalf("order = %s", got)
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	logger := logrus.New()
	var buf strings.Builder
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	h := Logging(logger)(SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
	if !strings.Contains(buf.String(), `"status":418`) || !strings.Contains(buf.String(), `"path":"/products"`) {
		t.Fatalf("log line: %s", buf.String())
	}
}
