package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/draft"
	"savdo/backend/internal/service"
	"savdo/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/drafts", a.requireAuth(a.handleDrafts, domain.RoleSeller, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/drafts/", a.requireAuth(a.handleDraftActions, domain.RoleSeller, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, domain.RoleSeller, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/clients", a.requireAuth(a.handleClients, domain.RoleSeller, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/stores", a.requireAuth(a.handleStores, domain.RoleSeller, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/sellers", a.requireAuth(a.handleSellers, domain.RoleSeller, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/rates/current", a.requireAuth(a.handleCurrentRate, domain.RoleSeller, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/users/sellers", a.requireAuth(a.handleCreateSeller, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour
// bucket. Clients include it in the X-CSRF-Token header on mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleDrafts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	view, err := a.service.StartDraft(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"draft": view})
}

type draftPatchRequest struct {
	Discount             *string `json:"discount"`
	Store                *int64  `json:"store"`
	SoldBy               *int64  `json:"sold_by"`
	Client               *int64  `json:"client"`
	OnCredit             *bool   `json:"on_credit"`
	DueDate              *string `json:"due_date"`
	Deposit              *string `json:"deposit"`
	DepositPaymentMethod *string `json:"deposit_payment_method"`
}

type linePatchRequest struct {
	Quantity     *string `json:"quantity"`
	PricePerUnit *string `json:"price_per_unit"`
	SellingUnit  *int64  `json:"selling_unit"`
}

type paymentPatchRequest struct {
	PaymentMethod *string `json:"payment_method"`
	Amount        *string `json:"amount"`
	ForeignAmount *string `json:"foreign_amount"`
	ExchangeRate  *string `json:"exchange_rate"`
}

// handleDraftActions dispatches /api/v1/drafts/{id}[/...] paths.
func (a *API) handleDraftActions(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/drafts/"), "/")
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("draft id required"))
		return
	}
	parts := strings.Split(tail, "/")
	draftID := parts[0]
	rest := parts[1:]

	switch {
	case len(rest) == 0:
		a.handleDraft(w, r, draftID)
	case rest[0] == "lines":
		a.handleDraftLines(w, r, draftID, rest[1:])
	case rest[0] == "payments":
		a.handleDraftPayments(w, r, draftID, rest[1:])
	case rest[0] == "finalize" && len(rest) == 1:
		a.handleDraftFinalize(w, r, draftID)
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown draft action"))
	}
}

func (a *API) handleDraft(w http.ResponseWriter, r *http.Request, draftID string) {
	switch r.Method {
	case http.MethodGet:
		view, err := a.service.GetDraft(r.Context(), draftID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": view})
	case http.MethodPatch:
		var req draftPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		view, err := a.applyDraftPatch(r, draftID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": view})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) applyDraftPatch(r *http.Request, draftID string, req draftPatchRequest) (service.DraftView, error) {
	ctx := r.Context()
	var (
		view service.DraftView
		err  error
	)
	apply := func(fn func() (service.DraftView, error)) {
		if err != nil {
			return
		}
		view, err = fn()
	}

	if req.Store != nil {
		apply(func() (service.DraftView, error) { return a.service.SetStore(ctx, draftID, *req.Store) })
	}
	if req.SoldBy != nil {
		apply(func() (service.DraftView, error) { return a.service.SetSoldBy(ctx, draftID, *req.SoldBy) })
	}
	if req.Client != nil {
		apply(func() (service.DraftView, error) { return a.service.SetClient(ctx, draftID, *req.Client) })
	}
	if req.OnCredit != nil {
		apply(func() (service.DraftView, error) { return a.service.SetOnCredit(ctx, draftID, *req.OnCredit) })
	}
	if req.Discount != nil {
		apply(func() (service.DraftView, error) { return a.service.SetDiscount(ctx, draftID, *req.Discount) })
	}
	if req.DueDate != nil {
		apply(func() (service.DraftView, error) { return a.service.SetDueDate(ctx, draftID, *req.DueDate) })
	}
	if req.Deposit != nil {
		apply(func() (service.DraftView, error) { return a.service.SetDeposit(ctx, draftID, *req.Deposit) })
	}
	if req.DepositPaymentMethod != nil {
		apply(func() (service.DraftView, error) {
			return a.service.SetDepositMethod(ctx, draftID, *req.DepositPaymentMethod)
		})
	}
	if err != nil {
		return service.DraftView{}, err
	}
	if view.ID == "" {
		return a.service.GetDraft(ctx, draftID)
	}
	return view, nil
}

func (a *API) handleDraftLines(w http.ResponseWriter, r *http.Request, draftID string, rest []string) {
	ctx := r.Context()
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		view, err := a.service.AddLine(ctx, draftID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"draft": view})

	case len(rest) == 1:
		if r.Method != http.MethodPatch {
			writeMethodNotAllowed(w)
			return
		}
		lineID := rest[0]
		var req linePatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var (
			view service.DraftView
			err  error
		)
		if req.Quantity != nil {
			view, err = a.service.SetQuantity(ctx, draftID, lineID, *req.Quantity)
		}
		if err == nil && req.PricePerUnit != nil {
			view, err = a.service.SetUnitPrice(ctx, draftID, lineID, *req.PricePerUnit)
		}
		if err == nil && req.SellingUnit != nil {
			view, err = a.service.SetSellingUnit(ctx, draftID, lineID, *req.SellingUnit)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if view.ID == "" {
			if view, err = a.service.GetDraft(ctx, draftID); err != nil {
				writeServiceError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": view})

	case len(rest) == 2 && rest[1] == "remove":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		view, err := a.service.RemoveLine(ctx, draftID, rest[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": view})

	case len(rest) == 2 && rest[1] == "product":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req struct {
			ProductID int64 `json:"product_id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		view, err := a.service.SelectProduct(ctx, draftID, rest[0], req.ProductID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": view})

	case len(rest) == 2 && rest[1] == "stock":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req struct {
			StockID int64 `json:"stock_id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		view, err := a.service.ResolveStock(ctx, draftID, rest[0], req.StockID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": view})

	case len(rest) == 3 && rest[1] == "stock" && rest[2] == "discard":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		view, err := a.service.DiscardPendingStock(ctx, draftID, rest[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": view})

	default:
		writeError(w, http.StatusNotFound, errors.New("unknown line action"))
	}
}

func (a *API) handleDraftPayments(w http.ResponseWriter, r *http.Request, draftID string, rest []string) {
	ctx := r.Context()
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		view, err := a.service.AddPayment(ctx, draftID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"draft": view})

	case len(rest) == 1 || (len(rest) == 2 && rest[1] == "remove"):
		index, err := strconv.Atoi(rest[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid payment index"))
			return
		}

		if len(rest) == 2 {
			if r.Method != http.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			view, err := a.service.RemovePayment(ctx, draftID, index)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"draft": view})
			return
		}

		if r.Method != http.MethodPatch {
			writeMethodNotAllowed(w)
			return
		}
		var req paymentPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var view service.DraftView
		if req.PaymentMethod != nil {
			view, err = a.service.SetPaymentMethod(ctx, draftID, index, *req.PaymentMethod)
		}
		if err == nil && req.ExchangeRate != nil {
			view, err = a.service.SetPaymentRate(ctx, draftID, index, *req.ExchangeRate)
		}
		if err == nil && req.ForeignAmount != nil {
			view, err = a.service.SetPaymentForeign(ctx, draftID, index, *req.ForeignAmount)
		}
		if err == nil && req.Amount != nil {
			view, err = a.service.SetPaymentAmount(ctx, draftID, index, *req.Amount)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if view.ID == "" {
			if view, err = a.service.GetDraft(ctx, draftID); err != nil {
				writeServiceError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"draft": view})

	default:
		writeError(w, http.StatusNotFound, errors.New("unknown payment action"))
	}
}

func (a *API) handleDraftFinalize(w http.ResponseWriter, r *http.Request, draftID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	rec, err := a.service.FinalizeDraft(r.Context(), draftID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": rec})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 25, 100)
	products, err := a.service.SearchProducts(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 25, 100)
		clients, err := a.service.SearchClients(r.Context(), r.URL.Query().Get("query"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
	case http.MethodPost:
		var req domain.ClientCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		client, err := a.service.CreateClient(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"client": client})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleStores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	stores, err := a.service.ListStores(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

func (a *API) handleSellers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	var storeID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("store_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid store_id"))
			return
		}
		storeID = parsed
	}
	sellers, err := a.service.ListSellers(r.Context(), storeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sellers": sellers})
}

func (a *API) handleCurrentRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	rate, err := a.service.CurrentRate(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rate": rate})
}

func (a *API) handleCreateSeller(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.SellerCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	seller, err := a.auth.CreateSeller(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"seller": seller})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// writeServiceError maps service and draft errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, draft.ErrLineNotFound),
		errors.Is(err, draft.ErrAllocationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, draft.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, draft.ErrSubmitted):
		status = http.StatusConflict
	case errors.Is(err, store.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, store.ErrInvalidSale):
		status = http.StatusBadRequest
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses return a generic message so internals never leak;
	// 4xx messages are user-facing and kept as-is.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
