package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/pricegame/go/clients/fakestore_client"
	"github.com/mcdev12/pricegame/go/internal/models"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListProducts(ctx context.Context) ([]fakestore_client.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fakestore_client.Product), args.Error(1)
}

type MockSupplier struct {
	mock.Mock
}

func (m *MockSupplier) Fetch(ctx context.Context) (models.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Product), args.Error(1)
}

func catalog() []fakestore_client.Product {
	return []fakestore_client.Product{
		{ID: 1, Title: "", Price: 10},
		{ID: 2, Title: "Backpack", Price: 109.95, Image: "b.jpg", Category: "bags"},
		{ID: 3, Title: "Free sample", Price: 0},
		{ID: 4, Title: "Ring", Price: 9.99, Image: "r.jpg"},
	}
}

func TestCatalogSupplier_SkipsUnusableProducts(t *testing.T) {
	client := new(MockCatalog)
	client.On("ListProducts", mock.Anything).Return(catalog(), nil)

	var seen int
	s := NewCatalogSupplier(client, WithPicker(func(n int) int {
		seen = n
		return n - 1
	}))

	p, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
	assert.Equal(t, models.Product{ID: 4, Title: "Ring", Image: "r.jpg", Price: 9.99}, p)
	client.AssertExpectations(t)
}

func TestCatalogSupplier_NoUsableProducts(t *testing.T) {
	client := new(MockCatalog)
	client.On("ListProducts", mock.Anything).Return([]fakestore_client.Product{{Title: "x", Price: -1}}, nil)

	_, err := NewCatalogSupplier(client).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCatalogSupplier_UpstreamError(t *testing.T) {
	client := new(MockCatalog)
	client.On("ListProducts", mock.Anything).Return(nil, errors.New("dial tcp: refused"))

	_, err := NewCatalogSupplier(client).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "refused")
}

func TestCatalogSupplier_FreshListEveryFetchByDefault(t *testing.T) {
	client := new(MockCatalog)
	client.On("ListProducts", mock.Anything).Return(catalog(), nil)

	s := NewCatalogSupplier(client)
	for i := 0; i < 3; i++ {
		_, err := s.Fetch(context.Background())
		require.NoError(t, err)
	}
	client.AssertNumberOfCalls(t, "ListProducts", 3)
}

func TestCatalogSupplier_CacheTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := new(MockCatalog)
	client.On("ListProducts", mock.Anything).Return(catalog(), nil)

	s := NewCatalogSupplier(client, WithCacheTTL(time.Minute), WithCatalogClock(clock))
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)
	_, err = s.Fetch(context.Background())
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "ListProducts", 1)

	clock.Advance(time.Minute)
	_, err = s.Fetch(context.Background())
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "ListProducts", 2)
}

func TestRetryingSupplier_NoRetriesFailsOnce(t *testing.T) {
	next := new(MockSupplier)
	next.On("Fetch", mock.Anything).Return(models.Product{}, ErrUnavailable).Once()

	_, err := NewRetryingSupplier(next, 0, time.Second, clockwork.NewFakeClock()).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	next.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestRetryingSupplier_RecoversAfterBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	want := models.Product{Title: "Lamp", Price: 30}
	next := new(MockSupplier)
	next.On("Fetch", mock.Anything).Return(models.Product{}, errors.New("timeout")).Once()
	next.On("Fetch", mock.Anything).Return(want, nil).Once()

	s := NewRetryingSupplier(next, 2, time.Second, clock)

	type result struct {
		p   models.Product
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := s.Fetch(context.Background())
		done <- result{p, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, want, res.p)
	case <-time.After(time.Second):
		t.Fatal("fetch did not return")
	}
	next.AssertExpectations(t)
}

func TestRetryingSupplier_CancelledDuringBackoff(t *testing.T) {
	next := new(MockSupplier)
	next.On("Fetch", mock.Anything).Return(models.Product{}, errors.New("timeout"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRetryingSupplier(next, 3, time.Hour, clockwork.NewFakeClock()).Fetch(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	next.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestStatic_Cycles(t *testing.T) {
	s := NewStatic(models.Product{Title: "a", Price: 1}, models.Product{Title: "b", Price: 2})
	var titles []string
	for i := 0; i < 3; i++ {
		p, err := s.Fetch(context.Background())
		require.NoError(t, err)
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"a", "b", "a"}, titles)

	_, err := NewStatic().Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
