package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"economy-ledger/internal/handler"
	"economy-ledger/internal/service"
)

// Server serves the economy API over HTTP.
type Server struct {
	router *mux.Router
	server *http.Server
	logger *slog.Logger
	port   string
}

// NewServer wires the handlers for economyService into a router.
func NewServer(economyService *service.EconomyService, money handler.Money, logger *slog.Logger) *Server {
	accountHandler := handler.NewAccountHandler(economyService, money)
	transactionHandler := handler.NewTransactionHandler(economyService, money)
	healthHandler := handler.NewHealthHandler(economyService)

	router := mux.NewRouter()

	router.Use(requestLogger(logger))

	router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/lock", accountHandler.LockAccount).Methods("POST")
	router.HandleFunc("/accounts/{account_id}/unlock", accountHandler.UnlockAccount).Methods("POST")
	router.HandleFunc("/accounts/{account_id}/transactions", transactionHandler.ListAccountTransactions).Methods("GET")

	router.HandleFunc("/transactions", transactionHandler.ListTransactions).Methods("GET")
	router.HandleFunc("/transactions", transactionHandler.Exchange).Methods("POST")
	router.HandleFunc("/transactions/{account_id}", transactionHandler.ListAccountTransactions).Methods("GET")

	router.HandleFunc("/health", healthHandler.Health).Methods("GET")

	return &Server{
		router: router,
		logger: logger,
	}
}

// requestLogger logs one line per request once the handler has returned.
func requestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Info("Handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Start listens on port and serves in the background. Port "0" picks a
// free port; the bound one is returned.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Economy API listening", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Economy API stopped unexpectedly", "error", err)
		}
	}()

	return s.port, nil
}

// Stop waits for in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping economy API")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort is empty until Start succeeds.
func (s *Server) GetPort() string {
	return s.port
}

func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter exposes the router for in-process requests.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}
