package products

import (
	"context"
	"sort"
	"sync"

	"fancystore/models"
)

// MemoryRepository is an in-process Repository, used in tests.
type MemoryRepository struct {
	mu            sync.Mutex
	items         map[string]models.Product
	failDecrement map[string]bool
}

func NewMemoryRepository(seed ...models.Product) *MemoryRepository {
	m := &MemoryRepository{items: make(map[string]models.Product), failDecrement: map[string]bool{}}
	for _, p := range seed {
		m.items[p.ID] = p
	}
	return m
}

func (m *MemoryRepository) List(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.Product, 0, len(m.items))
	for _, p := range m.items {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) GetMany(_ context.Context, ids []string) (map[string]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *MemoryRepository) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ID] = *p
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&p)
	m.items[id] = p
	return &p, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryRepository) Decrement(_ context.Context, id string, n int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || p.Quantity < n || m.failDecrement[id] {
		return false, nil
	}
	p.Quantity -= n
	m.items[id] = p
	return true, nil
}

func (m *MemoryRepository) Increment(_ context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.items[id]; ok {
		p.Quantity += n
		m.items[id] = p
	}
	return nil
}

// Quantity reports the stock of id, or -1 if it does not exist.
func (m *MemoryRepository) Quantity(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return -1
	}
	return p.Quantity
}

// SetFailDecrement toggles a simulated lost race on id.
func (m *MemoryRepository) SetFailDecrement(id string, fail bool) {
	m.mu.Lock()
	m.failDecrement[id] = fail
	m.mu.Unlock()
}
