package storeclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fancystore/models"
	"fancystore/products"
	"fancystore/stockfeed"
	"fancystore/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeAPI speaks just enough of the store API for the client.
type fakeAPI struct {
	mu       sync.Mutex
	products []models.Product
	cart     map[string]int
	order    []string
	hub      *stockfeed.Hub
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{
		products: []models.Product{{ID: "vase", Name: "Vase", Cost: 500, Quantity: 3, Category: "Decor", Image: "v.jpg"}},
		cart:     map[string]int{},
		hub:      stockfeed.NewHub(quietLogger()),
	}
	go api.hub.Run()
	t.Cleanup(api.hub.Stop)

	authed := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next(w, r, ps)
		}
	}

	router := httprouter.New()
	router.POST("/login", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var c models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&c)
		if c.Password != "secret" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, models.LoginResponse{Token: "tok-1", User: models.UserSummary{Email: c.Email}})
	})
	router.POST("/register", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		utils.RespondWithError(w, http.StatusConflict, "User already exists")
	})
	router.POST("/logout", authed(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
	}))
	router.GET("/products", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		api.mu.Lock()
		defer api.mu.Unlock()
		utils.RespondWithJSON(w, http.StatusOK, api.products)
	})
	router.DELETE("/products/:id", authed(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		api.mu.Lock()
		defer api.mu.Unlock()
		for i, p := range api.products {
			if p.ID == ps.ByName("id") {
				api.products = append(api.products[:i], api.products[i+1:]...)
				utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Product deleted"})
				return
			}
		}
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
	}))
	router.GET("/cart", authed(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		api.mu.Lock()
		defer api.mu.Unlock()
		items := []models.CartItem{}
		for _, id := range api.order {
			for _, p := range api.products {
				if p.ID == id {
					items = append(items, models.CartItem{Product: p, CartQuantity: api.cart[id]})
				}
			}
		}
		utils.RespondWithJSON(w, http.StatusOK, items)
	}))
	router.POST("/cart", authed(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			ProductID string `json:"productId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.mu.Lock()
		defer api.mu.Unlock()
		if _, ok := api.cart[body.ProductID]; !ok {
			api.order = append(api.order, body.ProductID)
		}
		api.cart[body.ProductID]++
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Added to cart"})
	}))
	router.PUT("/cart/:productId", authed(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			Quantity int `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Quantity > 3 {
			utils.RespondWithJSON(w, http.StatusConflict, utils.M{"error": "Only 3 items available in stock", "available": 3})
			return
		}
		api.mu.Lock()
		api.cart[ps.ByName("productId")] = body.Quantity
		api.mu.Unlock()
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Cart updated successfully"})
	}))
	router.POST("/cart/checkout", authed(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		api.mu.Lock()
		for i := range api.products {
			api.products[i].Quantity -= api.cart[api.products[i].ID]
		}
		api.cart = map[string]int{}
		api.order = nil
		api.mu.Unlock()
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Checkout successful"})
	}))
	router.GET("/ws/products", api.hub.Handler)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return api, srv
}

func newStore(t *testing.T, srv *httptest.Server, sessionFile string) *Store {
	t.Helper()
	s, err := New(Options{BaseURL: srv.URL, SessionFile: sessionFile, PollInterval: time.Hour, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoginPersistsSessionAndLogoutClearsIt(t *testing.T) {
	_, srv := newFakeAPI(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	s := newStore(t, srv, sessionFile)
	if _, err := s.Login(ctx, "a@example.com", "wrong"); err == nil {
		t.Fatal("bad password should fail")
	} else {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid email or password" {
			t.Fatalf("got %v", err)
		}
	}
	if _, err := s.Login(ctx, "a@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(sessionFile); err != nil {
		t.Fatalf("session file: %v", err)
	}

	restored := newStore(t, srv, sessionFile)
	if u := restored.State().User; u == nil || u.Email != "a@example.com" {
		t.Fatalf("restored user = %+v", u)
	}
	if err := restored.AddToCart(ctx, "vase"); err != nil {
		t.Fatalf("restored token should work: %v", err)
	}

	if err := restored.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if st := restored.State(); st.User != nil || len(st.Cart) != 0 {
		t.Fatalf("state after logout = %+v", st)
	}
	if _, err := os.Stat(sessionFile); !os.IsNotExist(err) {
		t.Fatalf("session file should be gone: %v", err)
	}
}

func TestCartFlowRefetchesAfterEveryMutation(t *testing.T) {
	_, srv := newFakeAPI(t)
	ctx := context.Background()
	s := newStore(t, srv, "")
	if _, err := s.Login(ctx, "a@example.com", "secret"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := s.AddToCart(ctx, "vase"); err != nil {
			t.Fatal(err)
		}
	}
	if cart := s.State().Cart; len(cart) != 1 || cart[0].CartQuantity != 2 || cart[0].Name != "Vase" {
		t.Fatalf("cart = %+v", cart)
	}

	err := s.UpdateCartQuantity(ctx, "vase", 5)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict || apiErr.Available == nil || *apiErr.Available != 3 {
		t.Fatalf("got %v", err)
	}
	if s.State().Cart[0].CartQuantity != 2 {
		t.Fatal("rejected update must not change the mirrored cart")
	}

	if err := s.Checkout(ctx); err != nil {
		t.Fatal(err)
	}
	st := s.State()
	if len(st.Cart) != 0 || len(st.Products) != 1 || st.Products[0].Quantity != 1 {
		t.Fatalf("state after checkout = %+v", st)
	}
}

func TestSubscribeGetsSnapshots(t *testing.T) {
	_, srv := newFakeAPI(t)
	s := newStore(t, srv, "")

	var mu sync.Mutex
	var seen []State
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	if err := s.RefreshProducts(context.Background()); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	if len(seen) != 1 || len(seen[0].Products) != 1 {
		t.Fatalf("seen = %+v", seen)
	}
	seen[0].Products[0].Name = "mutated"
	mu.Unlock()
	if s.State().Products[0].Name != "Vase" {
		t.Fatal("subscriber snapshot must not alias store state")
	}

	unsubscribe()
	unsubscribe()
	_ = s.RefreshProducts(context.Background())
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 {
		t.Fatalf("notified after unsubscribe: %d", len(seen))
	}
}

func TestRejectedTokenSignsOut(t *testing.T) {
	_, srv := newFakeAPI(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	if err := saveSession(sessionFile, session{Token: "stale", User: &models.UserSummary{Email: "a@example.com"}}); err != nil {
		t.Fatal(err)
	}
	s := newStore(t, srv, sessionFile)
	if s.State().User == nil {
		t.Fatal("session should be restored")
	}
	if err := s.RefreshCart(context.Background()); err == nil {
		t.Fatal("stale token should be rejected")
	}
	if s.State().User != nil || s.token() != "" {
		t.Fatal("user should be signed out")
	}
	if _, err := os.Stat(sessionFile); !os.IsNotExist(err) {
		t.Fatal("stale session should be removed")
	}
}

func TestStartLoadsAndWatchesCatalog(t *testing.T) {
	api, srv := newFakeAPI(t)
	s, err := New(Options{BaseURL: srv.URL, PollInterval: time.Hour, Watch: true, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}
	if len(s.State().Products) != 1 {
		t.Fatal("Start should load products")
	}

	deadline := time.Now().Add(2 * time.Second)
	for api.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never subscribed to the catalog feed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	api.mu.Lock()
	api.products = append(api.products, models.Product{ID: "lamp", Name: "Lamp", Cost: 1200, Quantity: 1})
	api.mu.Unlock()
	api.hub.Publish(products.Event{Type: products.EventCreated, ProductIDs: []string{"lamp"}})

	for len(s.State().Products) != 2 {
		if time.Now().After(deadline) {
			t.Fatal("catalog event did not trigger a refresh")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDeleteProductAndRegisterErrors(t *testing.T) {
	_, srv := newFakeAPI(t)
	ctx := context.Background()
	s := newStore(t, srv, "")

	var apiErr *APIError
	if err := s.Register(ctx, "a@example.com", "secret"); !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("register: %v", err)
	}
	if err := s.DeleteProduct(ctx, "vase"); !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("anonymous delete: %v", err)
	}
	if _, err := s.Login(ctx, "admin@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteProduct(ctx, "vase"); err != nil {
		t.Fatal(err)
	}
	if len(s.State().Products) != 0 {
		t.Fatal("catalog should be refetched after delete")
	}
}
