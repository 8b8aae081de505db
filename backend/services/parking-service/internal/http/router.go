package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"parkingledger/backend/services/parking-service/internal/http/handlers"
	"parkingledger/backend/services/parking-service/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Sessions *handlers.SessionsHandlers
	Reports  *handlers.ReportsHandlers
	Vehicles *handlers.VehiclesHandlers
	Health   http.HandlerFunc
	Metrics  http.Handler
	Logger   *zap.Logger
}

// NewRouter registers endpoints.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/permanencias", method(http.MethodGet, deps.Sessions.List))
	mux.Handle("/api/permanencias/entrada", method(http.MethodPost, deps.Sessions.Entry))
	mux.Handle("/api/permanencias/encerrar-dia", method(http.MethodPost, deps.Sessions.CloseDay))
	mux.Handle("/api/permanencias/{id}/saida", method(http.MethodPut, deps.Sessions.Exit))
	mux.Handle("/api/permanencias/{id}", method(http.MethodDelete, deps.Sessions.Delete))

	mux.Handle("/api/relatorios/vagas", method(http.MethodGet, deps.Reports.Occupancy))
	mux.Handle("/api/relatorios/financeiro", method(http.MethodGet, deps.Reports.Financial))

	mux.Handle("/api/veiculos", method(http.MethodGet, deps.Vehicles.List))
	mux.Handle("/api/veiculos/{id}", methods(map[string]http.HandlerFunc{
		http.MethodPut:    deps.Vehicles.Update,
		http.MethodDelete: deps.Vehicles.Delete,
	}))

	if deps.Health != nil {
		mux.Handle("/api/health", method(http.MethodGet, deps.Health))
	}
	if deps.Metrics != nil {
		mux.Handle("/metrics", method(http.MethodGet, deps.Metrics.ServeHTTP))
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return middleware.Chain(mux, middleware.CORS, middleware.AccessLog(logger))
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return methods(map[string]http.HandlerFunc{expected: handler})
}

func methods(byMethod map[string]http.HandlerFunc) http.HandlerFunc {
	allowed := make([]string, 0, len(byMethod))
	for m := range byMethod {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
