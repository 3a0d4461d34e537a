package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nirajanoli4567/era-sub000/internal/auth"
	"github.com/Nirajanoli4567/era-sub000/internal/bargains"
	"github.com/Nirajanoli4567/era-sub000/internal/catalog"
	"github.com/Nirajanoli4567/era-sub000/internal/domain"
)

// ---- fakes ----

type fakeCatalog struct{ products map[string]*catalog.Product }

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

type fakeBargains struct{ bargains map[string]*bargains.Bargain }

func (f *fakeBargains) GetByID(_ context.Context, id string) (*bargains.Bargain, error) {
	b, ok := f.bargains[id]
	if !ok {
		return nil, fmt.Errorf("bargain %s: %w", id, domain.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

type fakeStore struct {
	orders      map[string]*Order
	seq         int
	lastBargain *bargains.Bargain
}

func newFakeStore() *fakeStore { return &fakeStore{orders: map[string]*Order{}} }

func (f *fakeStore) Create(_ context.Context, o *Order, ob *bargains.Bargain) error {
	f.seq++
	o.OrderNumber = fmt.Sprintf("ORD-260831-%d", f.seq)
	if ob != nil {
		o.BargainID = ob.ID
		f.lastBargain = ob
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, from, to Status) error {
	o, ok := f.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %s moved to %s: %w", id, o.Status, domain.ErrInvalidState)
	}
	o.Status = to
	return nil
}

func (f *fakeStore) UpdatePaymentStatus(_ context.Context, id string, ps PaymentStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	o.PaymentStatus = ps
	return nil
}

var shipping = Shipping{
	FullName:      "Asha Rana",
	Email:         "asha@example.com",
	Phone:         "555-0101",
	Address:       "12 Hill Rd",
	PaymentMethod: "cod",
}

func newTestService() (*Service, *fakeStore, *fakeBargains) {
	store := newFakeStore()
	fb := &fakeBargains{bargains: map[string]*bargains.Bargain{}}
	svc := &Service{
		Store: store,
		Products: &fakeCatalog{products: map[string]*catalog.Product{
			"p1": {ID: "p1", VendorID: "v1", Name: "Lamp", PriceCents: 10000},
			"p2": {ID: "p2", VendorID: "v2", Name: "Rug", PriceCents: 20000},
		}},
		Bargains: fb,
		Name:     "test",
	}
	return svc, store, fb
}

// ---- tests ----

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", nil, shipping, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, "u1", []ItemInput{{ProductID: "p1", Qty: 0}}, shipping, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, "u1", []ItemInput{{ProductID: "missing", Qty: 1}}, shipping, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreatePlainOrder(t *testing.T) {
	svc, _, _ := newTestService()

	o, err := svc.Create(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 2},
		{ProductID: "p2", Qty: 1},
	}, shipping, 0)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, int64(2*10000+20000), o.TotalCents)
	assert.Equal(t, "ORD-260831-1", o.OrderNumber)
	assert.Empty(t, o.BargainID)
}

func TestCreateAppliesAcceptedBargainPrice(t *testing.T) {
	svc, _, fb := newTestService()
	fb.bargains["b1"] = &bargains.Bargain{
		ID: "b1", UserID: "u1", ProductID: "p1",
		Scope: bargains.ScopeProduct, Status: bargains.StatusAccepted,
		OriginalCents: 10000, ProposedCents: 7000,
	}

	o, err := svc.Create(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 3, BargainID: "b1"},
	}, shipping, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(21000), o.TotalCents)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(7000), o.Items[0].PriceCents)
	assert.Equal(t, "b1", o.Items[0].BargainID)
}

func TestCreateIgnoresNonMatchingBargain(t *testing.T) {
	tests := []struct {
		name    string
		bargain bargains.Bargain
	}{
		{"pending, not accepted", bargains.Bargain{
			ID: "b1", UserID: "u1", ProductID: "p1",
			Status: bargains.StatusPending, ProposedCents: 7000,
		}},
		{"another buyer's bargain", bargains.Bargain{
			ID: "b1", UserID: "someone-else", ProductID: "p1",
			Status: bargains.StatusAccepted, ProposedCents: 7000,
		}},
		{"different product", bargains.Bargain{
			ID: "b1", UserID: "u1", ProductID: "p2",
			Status: bargains.StatusAccepted, ProposedCents: 7000,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, fb := newTestService()
			b := tt.bargain
			fb.bargains[b.ID] = &b

			o, err := svc.Create(context.Background(), "u1", []ItemInput{
				{ProductID: "p1", Qty: 1, BargainID: "b1"},
			}, shipping, 0)
			require.NoError(t, err)

			// the live catalog price holds and no link is recorded
			assert.Equal(t, int64(10000), o.TotalCents)
			assert.Empty(t, o.Items[0].BargainID)
		})
	}
}

func TestLinePricesAreFrozenAtCheckout(t *testing.T) {
	svc, store, _ := newTestService()
	cat := svc.Products.(*fakeCatalog)

	o, err := svc.Create(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 1},
	}, shipping, 0)
	require.NoError(t, err)

	// a later catalog edit must not move the stored line
	cat.products["p1"].PriceCents = 99999

	got, err := store.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.TotalCents)
	assert.Equal(t, int64(10000), got.Items[0].PriceCents)
}

func TestCreateWithProposedTotal(t *testing.T) {
	svc, store, _ := newTestService()

	o, err := svc.Create(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 5},
	}, shipping, 40000)
	require.NoError(t, err)

	assert.Equal(t, StatusAwaitingBargain, o.Status)
	assert.Equal(t, int64(50000), o.TotalCents)
	assert.Equal(t, int64(40000), o.ProposedTotalCents)
	assert.NotEmpty(t, o.BargainID)

	ob := store.lastBargain
	require.NotNil(t, ob, "a whole-order bargain is persisted with the order")
	assert.Equal(t, bargains.ScopeOrder, ob.Scope)
	assert.Equal(t, int64(50000), ob.OriginalCents)
	assert.Equal(t, int64(40000), ob.ProposedCents)
	assert.Equal(t, []bargains.Item{{ProductID: "p1", Qty: 5}}, ob.Items)
}

func TestCreateRejectsBadProposedTotal(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", []ItemInput{{ProductID: "p1", Qty: 5}}, shipping, 50000)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, "u1", []ItemInput{{ProductID: "p1", Qty: 5}}, shipping, -100)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, store.orders, "nothing is persisted on a bad proposal")
}

func TestGetOwnerOrAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", []ItemInput{{ProductID: "p1", Qty: 1}}, shipping, 0)
	require.NoError(t, err)

	_, err = svc.Get(ctx, auth.Actor{ID: "u1", Role: auth.RoleUser}, o.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, auth.Actor{ID: "adm", Role: auth.RoleAdmin}, o.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, auth.Actor{ID: "u2", Role: auth.RoleUser}, o.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Get(ctx, auth.Actor{ID: "adm", Role: auth.RoleAdmin}, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", []ItemInput{{ProductID: "p1", Qty: 1}}, shipping, 0)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, o.ID, Status("teleported"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateStatus(ctx, o.ID, StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	for _, next := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		got, err := svc.UpdateStatus(ctx, o.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, got.Status)
	}

	// delivered is terminal
	_, err = svc.UpdateStatus(ctx, o.ID, StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestAwaitingOrderOnlyCancels(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", []ItemInput{{ProductID: "p1", Qty: 5}}, shipping, 40000)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingBargain, o.Status)

	_, err = svc.UpdateStatus(ctx, o.ID, StatusProcessing)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := svc.UpdateStatus(ctx, o.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestUpdatePaymentStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", []ItemInput{{ProductID: "p1", Qty: 1}}, shipping, 0)
	require.NoError(t, err)

	_, err = svc.UpdatePaymentStatus(ctx, o.ID, PaymentStatus("refunded"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := svc.UpdatePaymentStatus(ctx, o.ID, PaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, PaymentCompleted, got.PaymentStatus)
}
