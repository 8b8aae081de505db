package handlers

import (
	"net/http"

	"parkingledger/backend/services/parking-service/internal/service"
)

// NewHealthHandler reports storage reachability.
func NewHealthHandler(svc *service.ParkingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
