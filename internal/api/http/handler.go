package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"carshare-settlement/internal/repository"
	"carshare-settlement/internal/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	settlement service.SettlementService
	charges    service.ChargeService
	ledger     service.LedgerService
}

func NewHandler(settlement service.SettlementService, charges service.ChargeService, ledger service.LedgerService) *Handler {
	return &Handler{settlement: settlement, charges: charges, ledger: ledger}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// CancelBooking handles POST /api/v1/bookings/{id}/cancel. The caller must be
// the booking's guest; the id in the token decides, the path only selects the
// booking.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/bookings/{id}/cancel"))
	defer timer.ObserveDuration()
	track := tracker("POST", "/bookings/{id}/cancel")

	bookingID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		track(respondWithError(w, http.StatusBadRequest, "Invalid booking id"))
		return
	}

	var req cancelBookingRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	claims := ClaimsFromContext(r.Context())
	result, err := h.settlement.CancelBooking(r.Context(), claims.UserID, bookingID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			track(respondWithError(w, http.StatusNotFound, "Booking not found"))
		case errors.Is(err, service.ErrUnauthorized):
			track(respondWithError(w, http.StatusForbidden, "You do not own this booking"))
		case errors.Is(err, service.ErrBookingConflict):
			track(respondWithError(w, http.StatusConflict, "Booking cannot be cancelled in its current state"))
		default:
			track(respondWithError(w, http.StatusInternalServerError, "Cancellation failed"))
		}
		return
	}
	track(respondWithJSON(w, http.StatusOK, result))
}

type clearChargesRequest struct {
	Reason string `json:"reason"`
}

// ClearCharges handles POST /api/v1/bookings/{id}/clear-charges. Admin only.
func (h *Handler) ClearCharges(w http.ResponseWriter, r *http.Request) {
	track := tracker("POST", "/bookings/{id}/clear-charges")

	bookingID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		track(respondWithError(w, http.StatusBadRequest, "Invalid booking id"))
		return
	}

	var req clearChargesRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		track(respondWithError(w, http.StatusBadRequest, "A reason is required to clear charges"))
		return
	}

	claims := ClaimsFromContext(r.Context())
	result, err := h.settlement.ClearCharges(r.Context(), claims.UserID, bookingID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			track(respondWithError(w, http.StatusNotFound, "Booking not found"))
		case errors.Is(err, service.ErrNothingToClear):
			track(respondWithError(w, http.StatusConflict, "Booking has no pending charges"))
		default:
			track(respondWithError(w, http.StatusInternalServerError, "Clearing charges failed"))
		}
		return
	}
	track(respondWithJSON(w, http.StatusOK, result))
}

// ListCharges handles GET /api/v1/charges. Admin only.
func (h *Handler) ListCharges(w http.ResponseWriter, r *http.Request) {
	track := tracker("GET", "/charges")

	q := service.ChargeQuery{Status: r.URL.Query().Get("status")}
	if v := r.URL.Query().Get("older_than_hours"); v != "" {
		q.OlderThanHours, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		q.Limit, _ = strconv.Atoi(v)
	}

	report, err := h.charges.QueryCharges(r.Context(), q)
	if err != nil {
		track(respondWithError(w, http.StatusBadRequest, err.Error()))
		return
	}
	track(respondWithJSON(w, http.StatusOK, report))
}

type processChargesRequest struct {
	Mode       string  `json:"mode"`
	BookingIDs []int64 `json:"booking_ids"`
	DryRun     bool    `json:"dry_run"`
	MaxRetries int     `json:"max_retries"`
	HoldHours  int     `json:"hold_hours"`
}

// ProcessCharges handles POST /api/v1/charges/process. Admin only.
func (h *Handler) ProcessCharges(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/charges/process"))
	defer timer.ObserveDuration()
	track := tracker("POST", "/charges/process")

	var req processChargesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		track(respondWithError(w, http.StatusBadRequest, "Malformed JSON body"))
		return
	}

	mode := service.ProcessMode(req.Mode)
	switch mode {
	case service.ProcessModeExpired, service.ProcessModeAll:
	case service.ProcessModeSpecific:
		if len(req.BookingIDs) == 0 {
			track(respondWithError(w, http.StatusBadRequest, "booking_ids required for specific mode"))
			return
		}
	default:
		track(respondWithError(w, http.StatusBadRequest, "mode must be expired, all, or specific"))
		return
	}

	report, err := h.charges.ProcessCharges(r.Context(), service.ProcessRequest{
		Mode:       mode,
		BookingIDs: req.BookingIDs,
		DryRun:     req.DryRun,
		MaxRetries: req.MaxRetries,
		HoldHours:  req.HoldHours,
	})
	if err != nil {
		track(respondWithError(w, http.StatusInternalServerError, "Charge processing failed"))
		return
	}
	track(respondWithJSON(w, http.StatusOK, report))
}

// GetAccount handles GET /api/v1/ledger/account for the authenticated guest.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	track := tracker("GET", "/ledger/account")

	claims := ClaimsFromContext(r.Context())
	account, err := h.ledger.GetAccount(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			track(respondWithError(w, http.StatusNotFound, "Account not found"))
			return
		}
		track(respondWithError(w, http.StatusInternalServerError, "Account lookup failed"))
		return
	}
	track(respondWithJSON(w, http.StatusOK, account))
}

// ListTransactions handles GET /api/v1/ledger/transactions for the
// authenticated guest.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	track := tracker("GET", "/ledger/transactions")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	claims := ClaimsFromContext(r.Context())
	transactions, total, err := h.ledger.GetTransactions(r.Context(), claims.UserID, page, pageSize)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			track(respondWithError(w, http.StatusNotFound, "Account not found"))
			return
		}
		track(respondWithError(w, http.StatusInternalServerError, "Transaction lookup failed"))
		return
	}
	track(respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"total":        total,
	}))
}

// Helpers

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
	return code
}

func respondWithError(w http.ResponseWriter, code int, msg string) int {
	return respondWithJSON(w, code, map[string]string{"error": msg})
}

func tracker(method, endpoint string) func(code int) {
	return func(code int) {
		httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	}
}
