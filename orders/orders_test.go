package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fancystore/errs"
	"fancystore/globals"
	"fancystore/models"
	"fancystore/products"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleOrder(id, gatewayID, userID string, created time.Time) *models.Order {
	return &models.Order{
		ID:             id,
		UserID:         userID,
		GatewayOrderID: gatewayID,
		Amount:         1400,
		Currency:       "INR",
		Status:         models.OrderPending,
		Products: []models.OrderLine{
			{ProductID: "vase", Name: "Vase", UnitCost: 500, Quantity: 2},
			{ProductID: "gone", Name: "Old Lamp", UnitCost: 400, Quantity: 1},
		},
		DeliveryDetails: models.DeliveryDetails{Name: "Asha", Phone: "9999999999", Address: "1 MG Road", City: "Pune", Pincode: "411001"},
		CreatedAt:       created,
	}
}

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	catalog := products.NewMemoryRepository(models.Product{ID: "vase", Name: "Vase", Cost: 550, Quantity: 1})
	now := time.Now()
	for _, o := range []*models.Order{
		sampleOrder("o1", "order_A", "u1", now.Add(-2*time.Hour)),
		sampleOrder("o2", "order_B", "u2", now),
		sampleOrder("o3", "order_C", "", now.Add(-time.Hour)),
	} {
		if err := repo.Create(context.Background(), o); err != nil {
			t.Fatal(err)
		}
	}
	return NewService(repo, catalog, quietLogger()), repo
}

func TestListNewestFirstWithProducts(t *testing.T) {
	svc, _ := newTestService(t)
	views, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 3 || views[0].ID != "o2" || views[1].ID != "o3" || views[2].ID != "o1" {
		t.Fatalf("order: %s %s %s", views[0].ID, views[1].ID, views[2].ID)
	}
	items := views[0].Items
	if items[0].Product == nil || items[0].Product.Cost != 550 {
		t.Fatalf("vase should carry the current product: %+v", items[0])
	}
	if items[1].Product != nil || items[1].Name != "Old Lamp" {
		t.Fatalf("deleted product should be nil with snapshot kept: %+v", items[1])
	}
}

func TestGetOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "o1", "u1", false); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := svc.Get(ctx, "o1", "u2", false); !errs.Is(err, errs.KindForbidden) {
		t.Fatalf("stranger: %v", err)
	}
	if _, err := svc.Get(ctx, "o3", "", false); !errs.Is(err, errs.KindForbidden) {
		t.Fatalf("ownerless order for non-admin: %v", err)
	}
	if _, err := svc.Get(ctx, "o3", "admin", true); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := svc.Get(ctx, "nope", "admin", true); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	_, repo := newTestService(t)
	ctx := context.Background()

	ok, _ := repo.MarkFailed(ctx, "order_A", "pay_1", "card declined")
	if !ok {
		t.Fatal("Pending -> Failed")
	}
	if ok, _ := repo.MarkFailed(ctx, "order_A", "", "again"); ok {
		t.Fatal("Failed -> Failed must not match")
	}
	if ok, _ := repo.MarkPaid(ctx, "order_A", "pay_2", "sig"); !ok {
		t.Fatal("Failed -> Paid on retry")
	}
	if ok, _ := repo.MarkPaid(ctx, "order_A", "pay_3", "sig"); ok {
		t.Fatal("Paid is terminal")
	}
	o, _ := repo.FindByGatewayID(ctx, "order_A")
	if o.Status != models.OrderPaid || o.GatewayPaymentID != "pay_2" || o.FailureReason != "" {
		t.Fatalf("order = %+v", o)
	}
}

func TestRenderReceipt(t *testing.T) {
	svc, _ := newTestService(t)
	v, err := svc.Get(context.Background(), "o1", "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	pdf, err := RenderReceipt(v)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", pdf[:8])
	}
	if got := QRPayload(&v.Order); got != "order_A|" {
		t.Fatalf("qr payload = %q", got)
	}
}

func TestReceiptAmountLabel(t *testing.T) {
	for status, want := range map[models.OrderStatus]string{
		models.OrderPaid:    "Amount paid",
		models.OrderPending: "Amount due",
		models.OrderFailed:  "Amount (payment failed)",
	} {
		if got := amountLabel(status); got != want {
			t.Errorf("%s: got %q, want %q", status, got, want)
		}
	}
}

func TestHandlers(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc, quietLogger())

	as := func(next httprouter.Handle, userID string, admin bool) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			ctx := context.WithValue(r.Context(), globals.UserIDKey, userID)
			ctx = context.WithValue(ctx, globals.IsAdminKey, admin)
			next(w, r.WithContext(ctx), ps)
		}
	}
	router := httprouter.New()
	router.GET("/orders", as(h.ListOrders, "admin", true))
	router.GET("/orders/:id/receipt", as(h.PrintReceipt, "u1", false))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	var views []models.OrderView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil || len(views) != 3 {
		t.Fatalf("list: %v %s", err, rec.Body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o1/receipt", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("receipt: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o2/receipt", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("someone else's receipt: %d", rec.Code)
	}
}
