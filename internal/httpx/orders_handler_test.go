package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nirajanoli4567/era-sub000/internal/auth"
	"github.com/Nirajanoli4567/era-sub000/internal/bargains"
	"github.com/Nirajanoli4567/era-sub000/internal/catalog"
	"github.com/Nirajanoli4567/era-sub000/internal/domain"
	"github.com/Nirajanoli4567/era-sub000/internal/orders"
)

type memOrderStore struct {
	orders map[string]*orders.Order
	seq    int
}

func (m *memOrderStore) Create(_ context.Context, o *orders.Order, _ *bargains.Bargain) error {
	m.seq++
	o.OrderNumber = fmt.Sprintf("ORD-260831-%d", m.seq)
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderStore) GetByID(_ context.Context, id string) (*orders.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderStore) ListAll(_ context.Context) ([]orders.Order, error) { return nil, nil }

func (m *memOrderStore) ListByUser(_ context.Context, _ string) ([]orders.Order, error) {
	return nil, nil
}

func (m *memOrderStore) UpdateStatus(_ context.Context, id string, from, to orders.Status) error {
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %s moved to %s: %w", id, o.Status, domain.ErrInvalidState)
	}
	o.Status = to
	return nil
}

func (m *memOrderStore) UpdatePaymentStatus(_ context.Context, id string, ps orders.PaymentStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	o.PaymentStatus = ps
	return nil
}

type noBargains struct{}

func (noBargains) GetByID(_ context.Context, id string) (*bargains.Bargain, error) {
	return nil, fmt.Errorf("bargain %s: %w", id, domain.ErrNotFound)
}

func newOrderRouter(t *testing.T) (*chi.Mux, *memOrderStore) {
	t.Helper()
	store := &memOrderStore{orders: map[string]*orders.Order{}}
	svc := &orders.Service{
		Store: store,
		Products: &memCatalog{products: map[string]*catalog.Product{
			"p1": {ID: "p1", VendorID: "v1", Name: "Lamp", PriceCents: 10000},
		}},
		Bargains: noBargains{},
		Name:     "test",
	}
	h := &OrdersHandler{Svc: svc, Guard: &auth.Guard{Secret: testSecret}}
	r := chi.NewMux()
	h.Register(r)
	return r, store
}

func TestOrderStatusPollEnforcesOwnership(t *testing.T) {
	r, store := newOrderRouter(t)
	owner := bearer(t, "u1", auth.RoleUser)

	body := `{"items":[{"product_id":"p1","qty":1}],"full_name":"Asha Rana","address":"12 Hill Rd","payment_method":"cod"}`
	rec := do(r, http.MethodPost, "/api/orders", owner, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var id string
	for k := range store.orders {
		id = k
	}

	rec = do(r, http.MethodGet, "/api/orders/"+id+"/status", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "pending", got.Status)

	rec = do(r, http.MethodGet, "/api/orders/"+id+"/status", bearer(t, "adm", auth.RoleAdmin), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// another buyer never sees the status, with or without a warm cache
	rec = do(r, http.MethodGet, "/api/orders/"+id+"/status", bearer(t, "u2", auth.RoleUser), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCachedStatusFor(t *testing.T) {
	entry := func(status, userID string) []byte {
		b, _ := json.Marshal(orders.StatusCache{Status: orders.Status(status), UserID: userID})
		return b
	}

	tests := []struct {
		name  string
		actor auth.Actor
		raw   []byte
		want  orders.Status
		ok    bool
	}{
		{"owner hit", auth.Actor{ID: "u1", Role: auth.RoleUser}, entry("pending", "u1"), orders.StatusPending, true},
		{"admin hit", auth.Actor{ID: "adm", Role: auth.RoleAdmin}, entry("shipped", "u1"), orders.StatusShipped, true},
		{"other buyer miss", auth.Actor{ID: "u2", Role: auth.RoleUser}, entry("pending", "u1"), "", false},
		{"vendor miss", auth.Actor{ID: "v1", Role: auth.RoleVendor}, entry("pending", "u1"), "", false},
		{"no owner recorded", auth.Actor{ID: "u1", Role: auth.RoleUser}, []byte(`{"status":"pending"}`), "", false},
		{"bad json", auth.Actor{ID: "u1", Role: auth.RoleUser}, []byte("not json"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := cachedStatusFor(tt.actor, tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, st)
		})
	}
}

func TestProductUpdateValidation(t *testing.T) {
	store := &memProducts{products: map[string]*catalog.Product{
		"p1": {ID: "p1", VendorID: "v1", Name: "Lamp", PriceCents: 10000},
	}}
	h := &ProductsHandler{Repo: store, Guard: &auth.Guard{Secret: testSecret}}
	r := chi.NewMux()
	h.Register(r)
	vendor := bearer(t, "v1", auth.RoleVendor)

	rec := do(r, http.MethodPut, "/api/products/p1", vendor, `{"name":"Lamp","price_cents":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(r, http.MethodPut, "/api/products/p1", vendor, `{"price_cents":9000}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(r, http.MethodPut, "/api/products/p1", vendor, `{"name":"Lamp XL","price_cents":12000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(12000), store.products["p1"].PriceCents)

	// vendors stay fenced to their own products
	rec = do(r, http.MethodPut, "/api/products/p1", bearer(t, "v2", auth.RoleVendor), `{"name":"Lamp","price_cents":5000}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type memProducts struct{ products map[string]*catalog.Product }

func (m *memProducts) Insert(_ context.Context, p *catalog.Product) error {
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) List(_ context.Context) ([]catalog.Product, error) { return nil, nil }

func (m *memProducts) Update(_ context.Context, p *catalog.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return fmt.Errorf("product %s: %w", p.ID, domain.ErrNotFound)
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	delete(m.products, id)
	return nil
}
