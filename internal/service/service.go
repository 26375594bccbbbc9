package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"savdo/backend/internal/cache"
	"savdo/backend/internal/domain"
	"savdo/backend/internal/draft"
	"savdo/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrDraftNotFound   = errors.New("draft not found")
)

// staleAfter is how long an untouched draft survives before it is
// pruned.
const staleAfter = 4 * time.Hour

// session pairs a draft with the lock that serialises its mutations.
// The draft engine itself holds no locks.
type session struct {
	mu        sync.Mutex
	draft     *draft.Draft
	owner     string
	touchedAt time.Time
}

type Service struct {
	repo         store.Repository
	rates        cache.RateCache
	rateCurrency string
	rateTTL      time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func New(repo store.Repository, rates cache.RateCache, rateCurrency string, rateTTL time.Duration) *Service {
	if rates == nil {
		rates = cache.NoopRateCache{}
	}
	if rateCurrency == "" {
		rateCurrency = "USD"
	}
	if rateTTL <= 0 {
		rateTTL = 5 * time.Minute
	}

	return &Service{
		repo:         repo,
		rates:        rates,
		rateCurrency: rateCurrency,
		rateTTL:      rateTTL,
		sessions:     map[string]*session{},
	}
}

// snapshotRate is the fixed rate a draft works with for its whole life.
type snapshotRate struct {
	rate decimal.Decimal
}

func (s snapshotRate) LatestRate() decimal.Decimal { return s.rate }

// currentRate reads the cache first, then the repository, caching what
// it finds. A zero rate means no snapshot exists and the draft engine
// falls back to its default.
func (s *Service) currentRate(ctx context.Context) decimal.Decimal {
	if cached, ok, err := s.rates.Get(ctx, s.rateCurrency); err != nil {
		log.Printf("[service] WARN: rate cache read failed: %v", err)
	} else if ok {
		return cached.Rate
	}

	rate, err := s.repo.LatestCurrencyRate(ctx, s.rateCurrency)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[service] WARN: rate lookup failed: %v", err)
		}
		return decimal.Zero
	}
	if err := s.rates.Set(ctx, s.rateCurrency, rate, s.rateTTL); err != nil {
		log.Printf("[service] WARN: rate cache write failed: %v", err)
	}
	return rate.Rate
}

func (s *Service) CurrentRate(ctx context.Context) (domain.CurrencyRate, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.CurrencyRate{}, ErrUnauthenticated
	}
	if rate := s.currentRate(ctx); rate.IsPositive() {
		return domain.CurrencyRate{Rate: rate, Currency: s.rateCurrency, FetchedAt: time.Now().UTC()}, nil
	}
	return domain.CurrencyRate{}, store.ErrNotFound
}

func operatorFrom(actor domain.Actor) domain.Operator {
	return domain.Operator{
		UserID:   actor.UserID,
		Username: actor.Username,
		Role:     actor.Role,
		StoreID:  actor.StoreID,
	}
}

// StartDraft opens a new sale draft for the authenticated operator. The
// exchange rate is snapshotted here; the draft never re-fetches it.
func (s *Service) StartDraft(ctx context.Context) (DraftView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return DraftView{}, ErrUnauthenticated
	}

	d := draft.New(operatorFrom(actor), snapshotRate{rate: s.currentRate(ctx)})

	s.mu.Lock()
	s.pruneLocked()
	s.sessions[d.ID()] = &session{draft: d, owner: actor.Username, touchedAt: time.Now()}
	s.mu.Unlock()

	return viewOf(d, nil), nil
}

// pruneLocked drops submitted and stale sessions. Caller holds s.mu.
func (s *Service) pruneLocked() {
	cutoff := time.Now().Add(-staleAfter)
	for id, sess := range s.sessions {
		if sess.draft.Submitted() || sess.touchedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

func (s *Service) session(ctx context.Context, draftID string) (*session, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	s.mu.Lock()
	sess, ok := s.sessions[draftID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}
	if sess.owner != actor.Username && actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}
	return sess, nil
}

// withDraft runs fn under the session lock and returns the refreshed
// view. A draft.ErrInsufficientStock from fn is demoted to a warning on
// the view; every other error aborts.
func (s *Service) withDraft(ctx context.Context, draftID string, fn func(d *draft.Draft) error) (DraftView, error) {
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return DraftView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()

	var warnings []string
	if err := fn(sess.draft); err != nil {
		if !errors.Is(err, draft.ErrInsufficientStock) {
			return DraftView{}, err
		}
		warnings = append(warnings, err.Error())
	}
	return viewOf(sess.draft, warnings), nil
}

func (s *Service) GetDraft(ctx context.Context, draftID string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(*draft.Draft) error { return nil })
}

func (s *Service) AddLine(ctx context.Context, draftID string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		_, err := d.AddLine()
		return err
	})
}

func (s *Service) RemoveLine(ctx context.Context, draftID, lineID string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.RemoveLine(lineID)
	})
}

// SelectProduct snapshots the product and binds it to the line. When
// the product sells from explicit stock batches the view's line carries
// the batch options and the caller must follow up with ResolveStock.
func (s *Service) SelectProduct(ctx context.Context, draftID, lineID string, productID int64) (DraftView, error) {
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return DraftView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()

	snap, err := s.repo.GetProduct(ctx, sess.draft.StoreID(), productID)
	if err != nil {
		return DraftView{}, err
	}
	pending, err := sess.draft.SelectProduct(lineID, *snap)
	if err != nil {
		return DraftView{}, err
	}
	if !pending {
		return viewOf(sess.draft, nil), nil
	}

	options, err := s.repo.ListStocks(ctx, sess.draft.StoreID(), productID)
	if err != nil {
		return DraftView{}, err
	}
	view := viewOf(sess.draft, nil)
	for i := range view.Lines {
		if view.Lines[i].ID == lineID {
			view.Lines[i].StockOptions = options
		}
	}
	return view, nil
}

func (s *Service) ResolveStock(ctx context.Context, draftID, lineID string, stockID int64) (DraftView, error) {
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return DraftView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()

	var productID int64
	for _, l := range sess.draft.Lines() {
		if l.ID == lineID && l.Product != nil {
			productID = l.Product.ID
		}
	}
	if productID == 0 {
		return DraftView{}, draft.ErrNoPendingStock
	}
	options, err := s.repo.ListStocks(ctx, sess.draft.StoreID(), productID)
	if err != nil {
		return DraftView{}, err
	}
	for _, opt := range options {
		if opt.ID == stockID {
			if err := sess.draft.ResolveStock(lineID, opt); err != nil {
				return DraftView{}, err
			}
			return viewOf(sess.draft, nil), nil
		}
	}
	return DraftView{}, fmt.Errorf("stock %d: %w", stockID, store.ErrNotFound)
}

func (s *Service) DiscardPendingStock(ctx context.Context, draftID, lineID string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.DiscardPendingStock(lineID)
	})
}

func (s *Service) SetQuantity(ctx context.Context, draftID, lineID, raw string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetQuantity(lineID, raw)
	})
}

func (s *Service) SetUnitPrice(ctx context.Context, draftID, lineID, raw string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetUnitPrice(lineID, raw)
	})
}

func (s *Service) SetSellingUnit(ctx context.Context, draftID, lineID string, unitID int64) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetSellingUnit(lineID, unitID)
	})
}

func (s *Service) SetDiscount(ctx context.Context, draftID, raw string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetDiscount(raw)
	})
}

func (s *Service) SetStore(ctx context.Context, draftID string, storeID int64) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetStore(storeID)
	})
}

func (s *Service) SetSoldBy(ctx context.Context, draftID string, userID int64) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetSoldBy(userID)
	})
}

func (s *Service) SetClient(ctx context.Context, draftID string, clientID int64) (DraftView, error) {
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return DraftView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()

	if _, err := s.repo.GetClient(ctx, clientID); err != nil {
		return DraftView{}, err
	}
	if err := sess.draft.SetClient(clientID); err != nil {
		return DraftView{}, err
	}
	return viewOf(sess.draft, nil), nil
}

func (s *Service) SetOnCredit(ctx context.Context, draftID string, on bool) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetOnCredit(on)
	})
}

func (s *Service) SetDueDate(ctx context.Context, draftID, date string) (DraftView, error) {
	due, err := time.Parse("2006-01-02", date)
	if err != nil {
		return DraftView{}, fmt.Errorf("%w: due date %q", draft.ErrMissingRequiredField, date)
	}
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetDueDate(due)
	})
}

func (s *Service) SetDeposit(ctx context.Context, draftID, raw string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetDeposit(raw)
	})
}

func (s *Service) SetDepositMethod(ctx context.Context, draftID, method string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetDepositMethod(method)
	})
}

func (s *Service) AddPayment(ctx context.Context, draftID string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.AddAllocation()
	})
}

func (s *Service) RemovePayment(ctx context.Context, draftID string, index int) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.RemoveAllocation(index)
	})
}

func (s *Service) SetPaymentMethod(ctx context.Context, draftID string, index int, method string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetAllocationMethod(index, method)
	})
}

func (s *Service) SetPaymentAmount(ctx context.Context, draftID string, index int, raw string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetAllocationAmount(index, raw)
	})
}

func (s *Service) SetPaymentForeign(ctx context.Context, draftID string, index int, raw string) (DraftView, error) {
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetForeignAmount(index, raw)
	})
}

func (s *Service) SetPaymentRate(ctx context.Context, draftID string, index int, raw string) (DraftView, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return DraftView{}, fmt.Errorf("%w: exchange rate %q", draft.ErrMissingRequiredField, raw)
	}
	return s.withDraft(ctx, draftID, func(d *draft.Draft) error {
		return d.SetExchangeRate(index, rate)
	})
}

// FinalizeDraft validates the draft, persists the sale and freezes the
// draft. When persistence fails the draft stays editable and the error
// is returned as-is.
func (s *Service) FinalizeDraft(ctx context.Context, draftID string) (domain.SaleRecord, error) {
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	payload, err := sess.draft.Finalize()
	if err != nil {
		return domain.SaleRecord{}, err
	}
	rec, err := s.repo.CreateSale(ctx, payload)
	if err != nil {
		log.Printf("[service] WARN: sale submission failed draft=%s: %v", draftID, err)
		return domain.SaleRecord{}, err
	}
	sess.draft.MarkSubmitted()

	s.mu.Lock()
	delete(s.sessions, draftID)
	s.mu.Unlock()

	return *rec, nil
}

func (s *Service) SearchProducts(ctx context.Context, query string, limit int) ([]domain.ProductSnapshot, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.repo.SearchProducts(ctx, actor.StoreID, strings.TrimSpace(query), limit)
}

func (s *Service) SearchClients(ctx context.Context, query string, limit int) ([]domain.Client, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, ErrUnauthenticated
	}
	return s.repo.SearchClients(ctx, strings.TrimSpace(query), limit)
}

// CreateClient registers a client mid-sale so a credit draft does not
// have to be abandoned for a missing counterparty.
func (s *Service) CreateClient(ctx context.Context, req domain.ClientCreateRequest) (domain.Client, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.Client{}, ErrUnauthenticated
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Client{}, fmt.Errorf("%w: client name", draft.ErrMissingRequiredField)
	}
	created, err := s.repo.CreateClient(ctx, req)
	if err != nil {
		return domain.Client{}, err
	}
	return *created, nil
}

func (s *Service) ListStores(ctx context.Context) ([]domain.Store, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListStores(ctx)
}

func (s *Service) ListSellers(ctx context.Context, storeID int64) ([]domain.SellerUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if actor.Role != domain.RoleAdmin {
		storeID = actor.StoreID
	}
	return s.repo.ListSellers(ctx, storeID)
}
