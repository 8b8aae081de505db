package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"parkingledger/backend/services/parking-service/internal/models"
	"parkingledger/backend/services/parking-service/internal/service"
)

// wireTime is the dashboard's local timestamp layout.
const wireTime = "2006-01-02 15:04:05"

var statusLabels = map[models.SessionStatus]string{
	models.SessionStatusActive: "ativo",
	models.SessionStatusClosed: "finalizado",
}

type sessionResponse struct {
	ID             int64   `json:"id"`
	VehicleID      int64   `json:"veiculo_id"`
	ClientID       *int64  `json:"cliente_id"`
	EntryTime      string  `json:"data_entrada"`
	ExitTime       *string `json:"data_saida"`
	HourlyRate     string  `json:"valor_hora"`
	Status         string  `json:"status"`
	Plate          string  `json:"placa"`
	Model          string  `json:"modelo"`
	Color          string  `json:"cor"`
	ClientName     string  `json:"cliente_nome"`
	ElapsedMinutes int64   `json:"minutos_decorridos"`
	AmountDue      string  `json:"valor_atual"`
	AmountCharged  *string `json:"valor_cobrado"`
}

type closedSessionResponse struct {
	sessionResponse
	FinalAmountDue string `json:"valor_final"`
}

type occupancyResponse struct {
	Occupied  int     `json:"vagas_ocupadas"`
	Available int     `json:"vagas_disponiveis"`
	Total     int     `json:"total_vagas"`
	Percent   float64 `json:"percentual_ocupacao"`
}

type financialResponse struct {
	Day            string `json:"data"`
	ClosedSessions int64  `json:"total_permanencias"`
	Revenue        string `json:"faturamento_total"`
	AverageMinutes string `json:"tempo_medio_minutos"`
}

type vehicleResponse struct {
	ID         int64  `json:"id"`
	Plate      string `json:"placa"`
	Model      string `json:"modelo"`
	Color      string `json:"cor"`
	Make       string `json:"marca"`
	Year       *int   `json:"ano"`
	ClientID   *int64 `json:"cliente_id"`
	ClientName string `json:"cliente_nome,omitempty"`
}

type dayCloseResponse struct {
	Message string `json:"mensagem"`
	Removed int64  `json:"removidas"`
	Policy  string `json:"politica"`
	From    string `json:"inicio"`
	To      string `json:"fim"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func localTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(wireTime)
}

func toSession(v models.SessionView, loc *time.Location) sessionResponse {
	out := sessionResponse{
		ID:             v.ID,
		VehicleID:      v.VehicleID,
		ClientID:       v.ClientID,
		EntryTime:      localTime(v.EntryTime, loc),
		HourlyRate:     money(v.HourlyRate),
		Status:         statusLabels[v.Status],
		Plate:          v.Plate,
		Model:          v.Model,
		Color:          v.Color,
		ClientName:     v.ClientName,
		ElapsedMinutes: v.ElapsedMinutes,
		AmountDue:      money(v.AmountDue),
	}
	if v.ExitTime != nil {
		exit := localTime(*v.ExitTime, loc)
		out.ExitTime = &exit
	}
	if v.AmountCharged.Valid {
		charged := money(v.AmountCharged.Decimal)
		out.AmountCharged = &charged
	}
	return out
}

func toSessions(views []models.SessionView, loc *time.Location) []sessionResponse {
	out := make([]sessionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toSession(v, loc))
	}
	return out
}

func toClosedSession(c *models.ClosedSession, loc *time.Location) closedSessionResponse {
	return closedSessionResponse{
		sessionResponse: toSession(c.SessionView, loc),
		FinalAmountDue:  money(c.FinalAmountDue),
	}
}

func toOccupancy(o models.Occupancy) occupancyResponse {
	return occupancyResponse{
		Occupied:  o.Occupied,
		Available: o.Available,
		Total:     o.Total,
		Percent:   o.OccupancyPercent,
	}
}

func toFinancial(rows []models.FinancialRow) []financialResponse {
	out := make([]financialResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, financialResponse{
			Day:            r.Day,
			ClosedSessions: r.ClosedSessions,
			Revenue:        money(r.Revenue),
			AverageMinutes: money(r.AverageMinutes),
		})
	}
	return out
}

func toVehicles(vehicles []models.Vehicle) []vehicleResponse {
	out := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleResponse{
			ID:         v.ID,
			Plate:      v.Plate,
			Model:      v.Model,
			Color:      v.Color,
			Make:       v.Make,
			Year:       v.Year,
			ClientID:   v.ClientID,
			ClientName: v.ClientName,
		})
	}
	return out
}

func toDayClose(r service.DayCloseResult, loc *time.Location) dayCloseResponse {
	return dayCloseResponse{
		Message: "Dia encerrado com sucesso",
		Removed: r.Removed,
		Policy:  r.Policy,
		From:    localTime(r.From, loc),
		To:      localTime(r.To, loc),
	}
}
