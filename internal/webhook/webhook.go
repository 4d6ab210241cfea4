// Package webhook exposes the inbound HTTP endpoint that accepts trading signals.
//
// Routes:
//   - POST /webhook: run one swap for the posted signal
//   - GET /healthz: liveness
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fastbot-go/internal/execution"
	"fastbot-go/internal/metrics"
	"fastbot-go/internal/signal"
	"fastbot-go/internal/swap"
)

const maxBodyBytes = 64 << 10

// Submitter runs a resolved order.
type Submitter interface {
	Submit(ctx context.Context, order execution.Order) signal.SwapResult
}

// Request is the webhook body.
type Request struct {
	TokenAddress string           `json:"token_address"`
	PairID       string           `json:"pair_id"`
	Amount       *decimal.Decimal `json:"amount"`
	SlippageBps  *int             `json:"slippageBps"`
	TradeMode    string           `json:"tradeMode"`
}

// Receipt carries the settlement id of a submitted swap.
type Receipt struct {
	TxID           string `json:"txid"`
	TransactionURL string `json:"transaction_url"`
}

// Response is the webhook reply for both outcomes.
type Response struct {
	Status  string   `json:"status"`
	Receipt *Receipt `json:"transaction_receipt,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Handler implements the webhook routes.
type Handler struct {
	submitter  Submitter
	defaultBps int
	log        zerolog.Logger
}

// NewHandler builds a handler; defaultBps applies when a request omits slippageBps.
func NewHandler(submitter Submitter, defaultBps int, log zerolog.Logger) *Handler {
	return &Handler{
		submitter:  submitter,
		defaultBps: defaultBps,
		log:        log.With().Str("component", "webhook").Logger(),
	}
}

// RegisterRoutes registers the HTTP routes with the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook", h.Webhook)
	mux.HandleFunc("GET /healthz", h.Health)
}

// NewServer returns an unstarted server serving the webhook routes on addr.
func NewServer(addr string, h *Handler) *http.Server {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Webhook decodes a signal, runs it and replies with the swap result.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	order, err := h.decode(w, r)
	if err != nil {
		h.log.Debug().Err(err).Msg("malformed webhook body")
		h.respond(w, http.StatusBadRequest, Response{Status: "error", Kind: string(swap.KindInvalidRequest), Message: err.Error()})
		return
	}

	// A swap that reached the submitter must finish even if the caller hangs up.
	res := h.submitter.Submit(context.WithoutCancel(r.Context()), order)
	if res.OK() {
		h.respond(w, http.StatusOK, Response{
			Status:  "success",
			Receipt: &Receipt{TxID: res.SettlementID, TransactionURL: res.ReferenceURL},
		})
		return
	}
	status := http.StatusUnprocessableEntity
	switch swap.Kind(res.ErrorKind) {
	case swap.KindConfiguration:
		status = http.StatusInternalServerError
	case swap.KindInvalidRequest:
		status = http.StatusBadRequest
	}
	h.respond(w, status, Response{Status: "error", Kind: res.ErrorKind, Reason: res.Reason, Message: res.Message})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (execution.Order, error) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return execution.Order{}, fmt.Errorf("decode body: %w", err)
	}
	token := strings.TrimSpace(req.TokenAddress)
	pair := strings.TrimSpace(req.PairID)
	if (token == "") == (pair == "") {
		return execution.Order{}, errors.New("exactly one of token_address or pair_id is required")
	}
	if req.Amount == nil {
		return execution.Order{}, errors.New("amount is required")
	}
	if strings.TrimSpace(req.TradeMode) == "" {
		return execution.Order{}, errors.New("tradeMode is required")
	}
	bps := h.defaultBps
	if req.SlippageBps != nil {
		bps = *req.SlippageBps
	}
	return execution.Order{
		TokenAddress: token,
		PairID:       pair,
		Mode:         req.TradeMode,
		Amount:       *req.Amount,
		SlippageBps:  bps,
	}, nil
}

func (h *Handler) respond(w http.ResponseWriter, status int, body Response) {
	metrics.WebhookRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}
