package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"parkingledger/backend/services/parking-service/internal/service"
)

// SessionsHandlers serves the session lifecycle endpoints.
type SessionsHandlers struct {
	svc    *service.ParkingService
	logger *zap.Logger
}

// NewSessionsHandlers builds handler set.
func NewSessionsHandlers(svc *service.ParkingService, logger *zap.Logger) *SessionsHandlers {
	return &SessionsHandlers{svc: svc, logger: logger}
}

type entryRequest struct {
	Plate  string `json:"placa"`
	Model  string `json:"modelo"`
	Color  string `json:"cor"`
	Client string `json:"cliente"`
}

// List handles GET /api/permanencias?status=.
func (h *SessionsHandlers) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeAppError(w, h.logger, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessions(sessions, h.svc.Location()))
}

// Entry handles POST /api/permanencias/entrada.
func (h *SessionsHandlers) Entry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, "entry", err)
		return
	}
	id, err := h.svc.Enter(r.Context(), service.EntryRequest{
		Plate:      req.Plate,
		Model:      req.Model,
		Color:      req.Color,
		ClientName: req.Client,
	})
	if err != nil {
		writeAppError(w, h.logger, "entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"mensagem":       "Entrada registrada",
		"permanencia_id": id,
	})
}

// Exit handles PUT /api/permanencias/{id}/saida.
func (h *SessionsHandlers) Exit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, h.logger, "exit", err)
		return
	}
	closed, err := h.svc.Exit(r.Context(), id)
	if err != nil {
		writeAppError(w, h.logger, "exit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mensagem": "Saída registrada",
		"dados":    toClosedSession(closed, h.svc.Location()),
	})
}

// Delete handles DELETE /api/permanencias/{id}.
func (h *SessionsHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, h.logger, "delete session", err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeAppError(w, h.logger, "delete session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mensagem": "Permanência excluída"})
}

// CloseDay handles POST /api/permanencias/encerrar-dia.
func (h *SessionsHandlers) CloseDay(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CloseDay(r.Context())
	if err != nil {
		writeAppError(w, h.logger, "close day", err)
		return
	}
	writeJSON(w, http.StatusOK, toDayClose(result, h.svc.Location()))
}
