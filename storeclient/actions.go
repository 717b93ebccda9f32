package storeclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"fancystore/checkout"
	"fancystore/models"
	"fancystore/pay"
)

// RefreshProducts replaces the local catalog with the server's.
func (s *Store) RefreshProducts(ctx context.Context) error {
	var list []models.Product
	if err := s.do(ctx, http.MethodGet, "/products", nil, &list); err != nil {
		return err
	}
	s.update(func(st *State) { st.Products = list })
	return nil
}

// RefreshCart refetches the cart, or clears it locally when nobody is
// signed in. A rejected token signs the user out.
func (s *Store) RefreshCart(ctx context.Context) error {
	if s.token() == "" {
		s.update(func(st *State) { st.Cart = nil })
		return nil
	}
	var items []models.CartItem
	err := s.do(ctx, http.MethodGet, "/cart", nil, &items)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		s.clearSession()
		return err
	}
	if err != nil {
		return err
	}
	s.update(func(st *State) { st.Cart = items })
	return nil
}

func (s *Store) Register(ctx context.Context, email, password string) error {
	return s.do(ctx, http.MethodPost, "/register", models.Credentials{Email: email, Password: password}, nil)
}

// Login stores the token and user, persists them to the session file and
// loads the user's cart.
func (s *Store) Login(ctx context.Context, email, password string) (*models.UserSummary, error) {
	var resp models.LoginResponse
	if err := s.do(ctx, http.MethodPost, "/login", models.Credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	user := resp.User

	s.mu.Lock()
	s.tok = resp.Token
	s.mu.Unlock()
	s.update(func(st *State) { st.User = &user })

	if err := saveSession(s.sessionFile, session{Token: resp.Token, User: &user}); err != nil {
		s.logger.WithError(err).Warn("session not saved")
	}
	if err := s.RefreshCart(ctx); err != nil {
		return &user, err
	}
	return &user, nil
}

// Logout revokes the token server-side when possible and always clears the
// local user, cart and session file.
func (s *Store) Logout(ctx context.Context) error {
	var err error
	if s.token() != "" {
		err = s.do(ctx, http.MethodPost, "/logout", nil, nil)
	}
	s.clearSession()
	return err
}

func (s *Store) clearSession() {
	s.mu.Lock()
	s.tok = ""
	s.mu.Unlock()
	s.update(func(st *State) {
		st.User = nil
		st.Cart = nil
	})
	if err := removeSession(s.sessionFile); err != nil {
		s.logger.WithError(err).Warn("session not removed")
	}
}

func (s *Store) AddProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	var created models.Product
	if err := s.do(ctx, http.MethodPost, "/products", p, &created); err != nil {
		return nil, err
	}
	return &created, s.RefreshProducts(ctx)
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	var updated models.Product
	if err := s.do(ctx, http.MethodPut, "/products/"+url.PathEscape(id), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, s.RefreshProducts(ctx)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if err := s.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	return s.RefreshProducts(ctx)
}

func (s *Store) AddToCart(ctx context.Context, productID string) error {
	body := map[string]string{"productId": productID}
	if err := s.do(ctx, http.MethodPost, "/cart", body, nil); err != nil {
		return err
	}
	return s.RefreshCart(ctx)
}

func (s *Store) RemoveFromCart(ctx context.Context, productID string) error {
	if err := s.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(productID), nil, nil); err != nil {
		return err
	}
	return s.RefreshCart(ctx)
}

func (s *Store) UpdateCartQuantity(ctx context.Context, productID string, quantity int) error {
	body := map[string]int{"quantity": quantity}
	if err := s.do(ctx, http.MethodPut, "/cart/"+url.PathEscape(productID), body, nil); err != nil {
		return err
	}
	return s.RefreshCart(ctx)
}

// Checkout buys the whole cart, then refetches cart and catalog.
func (s *Store) Checkout(ctx context.Context) error {
	if err := s.do(ctx, http.MethodPost, "/cart/checkout", nil, nil); err != nil {
		return err
	}
	return errors.Join(s.RefreshCart(ctx), s.RefreshProducts(ctx))
}

// CreatePaymentOrder opens a gateway order. The caller completes payment
// with the gateway and then calls VerifyPayment.
func (s *Store) CreatePaymentOrder(ctx context.Context, in checkout.GatewayOrderInput) (*checkout.GatewayOrderResponse, error) {
	var resp checkout.GatewayOrderResponse
	if err := s.do(ctx, http.MethodPost, "/create-razorpay-order", in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Store) VerifyPayment(ctx context.Context, in pay.VerifyRequest) error {
	if err := s.do(ctx, http.MethodPost, "/verify-payment", in, nil); err != nil {
		return err
	}
	return errors.Join(s.RefreshCart(ctx), s.RefreshProducts(ctx))
}
