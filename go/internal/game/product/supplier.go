package product

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pricegame/go/clients/fakestore_client"
	"github.com/mcdev12/pricegame/go/internal/models"
)

// ErrUnavailable is returned when no usable product could be obtained.
var ErrUnavailable = errors.New("product unavailable")

// Supplier yields one product for the next round.
type Supplier interface {
	Fetch(ctx context.Context) (models.Product, error)
}

// CatalogClient lists the upstream catalog.
type CatalogClient interface {
	ListProducts(ctx context.Context) ([]fakestore_client.Product, error)
}

// CatalogSupplier picks a random usable product from the catalog. With a
// positive cache TTL the catalog is listed at most once per TTL.
type CatalogSupplier struct {
	client   CatalogClient
	clock    clockwork.Clock
	cacheTTL time.Duration
	pick     func(n int) int

	mu       sync.Mutex
	cached   []models.Product
	cachedAt time.Time
}

type CatalogOption func(*CatalogSupplier)

func WithCacheTTL(ttl time.Duration) CatalogOption {
	return func(s *CatalogSupplier) { s.cacheTTL = ttl }
}

func WithCatalogClock(c clockwork.Clock) CatalogOption {
	return func(s *CatalogSupplier) { s.clock = c }
}

// WithPicker replaces the uniform index picker.
func WithPicker(pick func(n int) int) CatalogOption {
	return func(s *CatalogSupplier) { s.pick = pick }
}

func NewCatalogSupplier(client CatalogClient, opts ...CatalogOption) *CatalogSupplier {
	s := &CatalogSupplier{
		client: client,
		clock:  clockwork.NewRealClock(),
		pick:   rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CatalogSupplier) Fetch(ctx context.Context) (models.Product, error) {
	products, err := s.catalog(ctx)
	if err != nil {
		return models.Product{}, err
	}
	return products[s.pick(len(products))], nil
}

func (s *CatalogSupplier) catalog(ctx context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cacheTTL > 0 && len(s.cached) > 0 && s.clock.Since(s.cachedAt) < s.cacheTTL {
		return s.cached, nil
	}

	raw, err := s.client.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	usable := make([]models.Product, 0, len(raw))
	for _, p := range raw {
		prod := convert(p)
		if !prod.Valid() {
			continue
		}
		usable = append(usable, prod)
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: catalog returned %d products, none usable", ErrUnavailable, len(raw))
	}

	s.cached = usable
	s.cachedAt = s.clock.Now()
	return usable, nil
}

func convert(p fakestore_client.Product) models.Product {
	return models.Product{
		ID:       p.ID,
		Title:    p.Title,
		Image:    p.Image,
		Category: p.Category,
		Price:    p.Price,
	}
}

// RetryingSupplier retries a failed fetch with linear backoff.
type RetryingSupplier struct {
	next    Supplier
	retries int
	backoff time.Duration
	clock   clockwork.Clock
}

func NewRetryingSupplier(next Supplier, retries int, backoff time.Duration, clock clockwork.Clock) *RetryingSupplier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RetryingSupplier{next: next, retries: retries, backoff: backoff, clock: clock}
}

func (s *RetryingSupplier) Fetch(ctx context.Context) (models.Product, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			wait := s.backoff * time.Duration(attempt)
			log.Warn().Err(lastErr).Int("attempt", attempt).Dur("backoff", wait).Msg("retrying product fetch")
			select {
			case <-ctx.Done():
				return models.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-s.clock.After(wait):
			}
		}

		p, err := s.next.Fetch(ctx)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	if errors.Is(lastErr, ErrUnavailable) {
		return models.Product{}, lastErr
	}
	return models.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Static cycles through a fixed product list. Used for offline play.
type Static struct {
	mu       sync.Mutex
	products []models.Product
	next     int
}

func NewStatic(products ...models.Product) *Static {
	return &Static{products: products}
}

func (s *Static) Fetch(ctx context.Context) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) == 0 {
		return models.Product{}, ErrUnavailable
	}
	p := s.products[s.next%len(s.products)]
	s.next++
	return p, nil
}
