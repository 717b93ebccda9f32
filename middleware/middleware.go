package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fancystore/globals"
	"fancystore/rdx"
	"fancystore/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// JWT claims
type Claims struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

type Middleware func(httprouter.Handle) httprouter.Handle

// Chain applies middlewares so that the first one listed runs first.
func Chain(mws ...Middleware) Middleware {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}

// Auth validates bearer tokens against the signing secret and the
// revoked-token list.
type Auth struct {
	secret   []byte
	denylist rdx.Denylist
	logger   logrus.FieldLogger
}

func NewAuth(secret []byte, denylist rdx.Denylist, logger logrus.FieldLogger) *Auth {
	return &Auth{secret: secret, denylist: denylist, logger: logger}
}

var (
	errMissingToken = errors.New("Access denied")
	errBadToken     = errors.New("Invalid token")
)

// ParseToken verifies an "Authorization" header value.
func (a *Auth) ParseToken(ctx context.Context, header string) (*Claims, error) {
	if header == "" {
		return nil, errMissingToken
	}
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return nil, errBadToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(header[7:], claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, errBadToken
	}

	if claims.ID != "" && a.denylist != nil {
		revoked, err := a.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			a.logger.WithError(err).Warn("denylist lookup failed")
			return nil, errBadToken
		}
		if revoked {
			return nil, errBadToken
		}
	}
	return claims, nil
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := a.ParseToken(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, globals.IsAdminKey, claims.IsAdmin)
		ctx = context.WithValue(ctx, globals.TokenIDKey, claims.ID)
		if claims.ExpiresAt != nil {
			ctx = context.WithValue(ctx, globals.TokenExpKey, claims.ExpiresAt.Time)
		}
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !utils.IsAdminRequest(r) {
			utils.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r, ps)
	}
}

// ForbidAdmin rejects admin identities; carts belong to shoppers only.
func ForbidAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if utils.IsAdminRequest(r) {
			utils.RespondWithError(w, http.StatusForbidden, "Admins cannot modify cart")
			return
		}
		next(w, r, ps)
	}
}
