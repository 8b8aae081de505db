package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"parkingledger/backend/services/parking-service/internal/service"
)

// ReportsHandlers serves the occupancy and financial reports.
type ReportsHandlers struct {
	svc    *service.ParkingService
	logger *zap.Logger
}

// NewReportsHandlers builds handler set.
func NewReportsHandlers(svc *service.ParkingService, logger *zap.Logger) *ReportsHandlers {
	return &ReportsHandlers{svc: svc, logger: logger}
}

// Occupancy handles GET /api/relatorios/vagas.
func (h *ReportsHandlers) Occupancy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toOccupancy(h.svc.Occupancy(r.Context())))
}

// Financial handles GET /api/relatorios/financeiro.
func (h *ReportsHandlers) Financial(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Financial(r.Context())
	if err != nil {
		writeAppError(w, h.logger, "financial report", err)
		return
	}
	writeJSON(w, http.StatusOK, toFinancial(rows))
}
