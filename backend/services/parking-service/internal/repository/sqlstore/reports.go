package sqlstore

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"parkingledger/backend/services/parking-service/internal/models"
)

const dayLayout = "2006-01-02"

var msPerMinute = decimal.NewFromInt(int64(time.Minute / time.Millisecond))

type dayTotals struct {
	count   int64
	revenue decimal.Decimal
	millis  int64
}

// FinancialReport rolls closed sessions up per exit day in the store location,
// newest day first.
func (s *Store) FinancialReport(ctx context.Context) ([]models.FinancialRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entry_time, exit_time, amount_charged FROM v_closed_sessions ORDER BY exit_time`)
	if err != nil {
		return nil, classify(s.dialect, "financial report", err)
	}
	defer rows.Close()

	days := make(map[string]*dayTotals)
	for rows.Next() {
		var (
			entry, exit dbTime
			charged     decimal.NullDecimal
		)
		if err := rows.Scan(&entry, &exit, &charged); err != nil {
			return nil, classify(s.dialect, "scan financial row", err)
		}
		if !exit.Valid {
			continue
		}
		day := exit.Time.In(s.loc).Format(dayLayout)
		t, ok := days[day]
		if !ok {
			t = &dayTotals{}
			days[day] = t
		}
		t.count++
		if charged.Valid {
			t.revenue = t.revenue.Add(charged.Decimal)
		}
		t.millis += exit.Time.Sub(entry.Time).Milliseconds()
	}
	if err := rows.Err(); err != nil {
		return nil, classify(s.dialect, "financial report", err)
	}

	report := make([]models.FinancialRow, 0, len(days))
	for day, t := range days {
		minutes := decimal.NewFromInt(t.millis).Div(msPerMinute)
		report = append(report, models.FinancialRow{
			Day:            day,
			ClosedSessions: t.count,
			Revenue:        t.revenue,
			AverageMinutes: minutes.Div(decimal.NewFromInt(t.count)).Round(2),
		})
	}
	sort.Slice(report, func(i, j int) bool { return report[i].Day > report[j].Day })
	return report, nil
}
