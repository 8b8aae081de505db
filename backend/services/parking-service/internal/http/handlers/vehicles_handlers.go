package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"parkingledger/backend/services/parking-service/internal/service"
)

// VehiclesHandlers serves the vehicle registry.
type VehiclesHandlers struct {
	svc    *service.ParkingService
	logger *zap.Logger
}

// NewVehiclesHandlers builds handler set.
func NewVehiclesHandlers(svc *service.ParkingService, logger *zap.Logger) *VehiclesHandlers {
	return &VehiclesHandlers{svc: svc, logger: logger}
}

type vehicleRequest struct {
	Plate string `json:"placa"`
	Model string `json:"modelo"`
	Color string `json:"cor"`
	Make  string `json:"marca"`
	Year  *int   `json:"ano"`
}

// List handles GET /api/veiculos.
func (h *VehiclesHandlers) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.svc.ListVehicles(r.Context())
	if err != nil {
		writeAppError(w, h.logger, "list vehicles", err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicles(vehicles))
}

// Update handles PUT /api/veiculos/{id}.
func (h *VehiclesHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, h.logger, "update vehicle", err)
		return
	}
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, "update vehicle", err)
		return
	}
	err = h.svc.UpdateVehicle(r.Context(), id, service.VehicleUpdate{
		Plate: req.Plate,
		Model: req.Model,
		Color: req.Color,
		Make:  req.Make,
		Year:  req.Year,
	})
	if err != nil {
		writeAppError(w, h.logger, "update vehicle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mensagem": "Veículo atualizado"})
}

// Delete handles DELETE /api/veiculos/{id}.
func (h *VehiclesHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, h.logger, "delete vehicle", err)
		return
	}
	if err := h.svc.DeleteVehicle(r.Context(), id); err != nil {
		writeAppError(w, h.logger, "delete vehicle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mensagem": "Veículo removido"})
}
