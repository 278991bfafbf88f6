package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/primitives"
	"github.com/johnayoung/cowsolver/pkg/solver"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// Server exposes the solver over HTTP (spec §6): POST /solve, GET
// /health. It holds no auction state between requests — every call to
// driver.Solve is independent, matching spec §9's "no cross-auction
// memory beyond the oracle's last-known cache" design note.
type Server struct {
	driver *solver.Driver
	router *mux.Router
	logger *zap.Logger
}

// NewServer builds a Server around driver. logger may be nil (no-op).
func NewServer(driver *solver.Driver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{driver: driver, router: mux.NewRouter(), logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/solve", s.handleSolve).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the fully wrapped HTTP handler (CORS + recovery), for
// http.ListenAndServe or httptest.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return s.recoverMiddleware(c.Handler(s.router))
}

// recoverMiddleware turns a panicking handler into a 500 response (spec
// §6: "500 on internal panic") instead of crashing the process (spec §6
// exit codes: only SIGINT/SIGTERM should stop it cleanly).
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered in http handler", zap.Any("panic", rec))
				respondError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.NewString()
	logger := s.logger.With(zap.String("trace_id", traceID))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	auction, err := decodeAuction(body)
	if err != nil {
		logger.Warn("malformed auction", zap.Error(err))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info("solving auction", zap.String("auction_id", auction.ID), zap.Int("orders", len(auction.Orders)))

	solutions, drops := s.driver.Solve(context.Background(), auction)

	if len(solutions) == 0 && hasTimeoutDrop(drops) {
		logger.Warn("auction deadline exceeded with no completed solutions")
		respondError(w, http.StatusRequestTimeout, "auction deadline exceeded")
		return
	}

	logger.Info("solved auction",
		zap.Int("solutions", len(solutions)),
		zap.Int("dropped", len(drops)),
		zap.String("total_score", totalScoreDecimal(solutions).String()),
	)
	respondJSON(w, http.StatusOK, encodeSolutions(solutions))
}

// totalScoreDecimal sums every solution's score and renders it as a
// human-readable decimal for structured logs, via the same
// uint256->Decimal adapter the JSON response's presentation layer would
// use for display-only amounts (pkg/primitives never feeds back into
// solving or scoring).
func totalScoreDecimal(solutions []types.Solution) primitives.Decimal {
	total := new(uint256.Int)
	for _, s := range solutions {
		if s.Score != nil {
			total.Add(total, s.Score)
		}
	}
	return primitives.DecimalFromScaled(total, fixedpoint.PrecisionExp)
}

func hasTimeoutDrop(drops []solver.DropEvent) bool {
	for _, d := range drops {
		if d.Reason == solver.ReasonTimeout {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
