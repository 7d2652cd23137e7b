// Package webhook exposes the health endpoint and the deposit callback used by the
// payment processor.
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skyrush/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	secretHeader = "X-Webhook-Secret"
	maxBodyBytes = 1 << 16
)

// Crediter adds points to a user's balance.
type Crediter interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error
}

// Deposit is the payload sent by the processor once a transfer confirms.
type Deposit struct {
	UserID  string          `json:"userId"`
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

// Points converts the deposited LTC to whole points, truncating fractions.
func (d Deposit) Points() decimal.Decimal {
	return d.Amount.Mul(decimal.NewFromInt(utils.PointsPerLTC)).Truncate(0)
}

func (d Deposit) validate() error {
	switch {
	case strings.TrimSpace(d.UserID) == "":
		return errors.New("userId is required")
	case strings.TrimSpace(d.Address) == "":
		return errors.New("address is required")
	case !d.Points().IsPositive():
		return errors.New("amount must be positive")
	}
	return nil
}

type Server struct {
	ledger  Crediter
	secret  string
	status  func() string
	timeout time.Duration
	logger  *zap.Logger
}

// NewServer builds the HTTP side of the bot. status reports the Discord connection
// state for /health. An empty secret leaves /webhook unauthenticated.
func NewServer(ledger Crediter, secret string, status func() string, timeout time.Duration, logger *zap.Logger) *Server {
	if status == nil {
		status = func() string { return "unknown" }
	}
	return &Server{
		ledger:  ledger,
		secret:  secret,
		status:  status,
		timeout: timeout,
		logger:  logger.Named("webhook"),
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(s.logRequests)

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Post("/webhook", s.deposit)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Discord Bot Status: %s", s.status())
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	BotStatus string `json:"bot_status"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: "skyrush", BotStatus: s.status()})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var d Deposit
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&d); err != nil {
		http.Error(w, "Invalid deposit data", http.StatusBadRequest)
		return
	}
	if err := d.validate(); err != nil {
		http.Error(w, "Invalid deposit data: "+err.Error(), http.StatusBadRequest)
		return
	}

	points := d.Points()
	if err := s.ledger.Credit(r.Context(), d.UserID, points); err != nil {
		s.logger.Error("failed to credit deposit",
			zap.String("user_id", d.UserID),
			zap.String("points", points.String()),
			zap.Error(err),
		)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("deposit credited",
		zap.String("user_id", d.UserID),
		zap.String("address", d.Address),
		zap.String("amount", d.Amount.String()),
		zap.String("points", points.String()),
	)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return true
	}
	got := r.Header.Get(secretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) == 1
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
