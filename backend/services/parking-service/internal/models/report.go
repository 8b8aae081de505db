package models

import "github.com/shopspring/decimal"

// Occupancy summarizes how many spaces are in use.
type Occupancy struct {
	Occupied         int
	Available        int
	Total            int
	OccupancyPercent float64
}

// FinancialRow totals the sessions closed on one facility day.
type FinancialRow struct {
	Day            string
	ClosedSessions int64
	Revenue        decimal.Decimal
	AverageMinutes decimal.Decimal
}

// ClosedSession is the outcome of an exit.
type ClosedSession struct {
	SessionView
	FinalAmountDue decimal.Decimal
}
