package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"strings"
	"time"

	"fancystore/errs"
	"fancystore/middleware"
	"fancystore/models"
	"fancystore/rdx"
	"fancystore/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// MXResolver looks up mail exchangers for a domain.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Options configures token signing. CheckMX rejects addresses whose domain
// has no MX record.
type Options struct {
	Secret   []byte
	TokenTTL time.Duration
	CheckMX  bool
	Resolver MXResolver
}

type Service struct {
	repo     Repository
	denylist rdx.Denylist
	opts     Options
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewService(repo Repository, denylist rdx.Denylist, opts Options, logger logrus.FieldLogger) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	return &Service{repo: repo, denylist: denylist, opts: opts, logger: logger, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address syntax and, when enabled, its domain's
// MX records. It returns the normalised address.
func (s *Service) ValidateEmail(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", errs.Validation("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errs.Validation("Invalid email address.")
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if !strings.Contains(domain, ".") {
		return "", errs.Validation("Invalid email address.")
	}
	if s.opts.CheckMX {
		mx, err := s.opts.Resolver.LookupMX(ctx, domain)
		if err != nil || len(mx) == 0 {
			return "", errs.Validation("Invalid email domain (MX record missing).")
		}
	}
	return email, nil
}

// Register stores a new shopper account.
func (s *Service) Register(ctx context.Context, in models.Credentials) (*models.User, error) {
	return s.create(ctx, in, false)
}

func (s *Service) create(ctx context.Context, in models.Credentials, admin bool) (*models.User, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, errs.Validation("Email and password are required")
	}
	email, err := s.ValidateEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLen {
		return nil, errs.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyExist
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Internal("Registration failed", err)
	}
	u := &models.User{
		ID:        utils.NewObjectID(),
		Email:     email,
		Password:  string(hash),
		IsAdmin:   admin,
		CreatedAt: s.now().UTC(),
	}
	// the unique index still guards concurrent registrations
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"userId": u.ID, "admin": admin}).Info("user registered")
	return u, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, in models.Credentials) (*models.LoginResponse, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, errs.Validation("Email and password are required")
	}
	invalid := errs.Unauthorized("Invalid email or password")

	u, err := s.repo.FindByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)); err != nil {
		return nil, invalid
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return nil, errs.Internal("Login failed", err)
	}
	return &models.LoginResponse{Token: token, User: u.Summary()}, nil
}

// IssueToken signs an HS256 token carrying the user id and admin flag.
func (s *Service) IssueToken(u *models.User) (string, error) {
	now := s.now()
	claims := &middleware.Claims{
		UserID:  u.ID,
		IsAdmin: u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utils.GetUUID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
}

// Logout revokes the token id until the token would have expired anyway.
func (s *Service) Logout(ctx context.Context, tokenID string, exp time.Time) error {
	if tokenID == "" {
		return errs.Validation("Token has no id")
	}
	if exp.IsZero() {
		exp = s.now().Add(s.opts.TokenTTL)
	}
	if err := s.denylist.Revoke(ctx, tokenID, exp); err != nil {
		return errs.Internal("Logout failed", err)
	}
	return nil
}

// SeedAdmin makes sure the configured administrator exists. An existing
// account with that email is promoted.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		s.logger.Warn("ADMIN_EMAIL/ADMIN_PASSWORD not set; no administrator seeded")
		return nil
	}
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if u.IsAdmin {
			return nil
		}
		s.logger.WithField("userId", u.ID).Info("promoting existing user to admin")
		return s.repo.SetAdmin(ctx, u.ID)
	case errors.Is(err, ErrNotFound):
		_, err = s.create(ctx, models.Credentials{Email: email, Password: password}, true)
		return err
	default:
		return err
	}
}
