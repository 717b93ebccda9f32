package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"fancystore/errs"
	"fancystore/models"
)

// MemoryRepository is an in-process Repository, used in tests.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*models.Order)}
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Products = append([]models.OrderLine(nil), o.Products...)
	return &cp
}

func (m *MemoryRepository) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orders {
		if existing.GatewayOrderID == o.GatewayOrderID {
			return errs.Conflict("Order already exists")
		}
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *MemoryRepository) byGateway(id string) *models.Order {
	for _, o := range m.orders {
		if o.GatewayOrderID == id {
			return o
		}
	}
	return nil
}

func (m *MemoryRepository) FindByGatewayID(_ context.Context, gatewayOrderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.byGateway(gatewayOrderID)
	if o == nil {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *MemoryRepository) List(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		list = append(list, *cloneOrder(o))
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *MemoryRepository) MarkPaid(_ context.Context, gatewayOrderID, paymentID, signature string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.byGateway(gatewayOrderID)
	if o == nil || (o.Status != models.OrderPending && o.Status != models.OrderFailed) {
		return false, nil
	}
	o.Status = models.OrderPaid
	o.GatewayPaymentID = paymentID
	o.Signature = signature
	o.FailureReason = ""
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryRepository) MarkFailed(_ context.Context, gatewayOrderID, paymentID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.byGateway(gatewayOrderID)
	if o == nil || o.Status != models.OrderPending {
		return false, nil
	}
	o.Status = models.OrderFailed
	o.FailureReason = reason
	if paymentID != "" {
		o.GatewayPaymentID = paymentID
	}
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}
