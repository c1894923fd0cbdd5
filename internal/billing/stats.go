package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/poolhall-manager/internal/repository"
)

// DateRange bounds the historical aggregates to start_time in [From, To).
// Either end may be nil.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Summary is the dashboard view of the hall.
type Summary struct {
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalGames         int             `json:"total_games"`
	UnpaidCount        int             `json:"unpaid_count"`
	PeakHour           int             `json:"peak_hour"`
	TodayRevenue       decimal.Decimal `json:"today_revenue"`
	TodayCount         int             `json:"today_count"`
	ActiveCount        int             `json:"active_count"`
	AvailableTables    int             `json:"available_tables"`
	TotalTables        int             `json:"total_tables"`
	TablesAvailability string          `json:"tables_availability"`
	TotalClients       int             `json:"total_clients"`
}

// SummaryInput is everything Summarize needs. Sessions is the (possibly
// date-bounded) history, Today the sessions started on the current day.
type SummaryInput struct {
	Sessions        []repository.StatRow
	Today           []repository.StatRow
	ActiveCount     int
	TotalTables     int
	AvailableTables int
	TotalClients    int
	Location        *time.Location
}

// Summarize aggregates the input. The peak hour is the local hour of day
// with the highest summed price; on a tie the lowest hour wins, and with no
// revenue at all it is 0.
func Summarize(in SummaryInput) Summary {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}

	out := Summary{
		TotalRevenue:    decimal.Zero,
		TodayRevenue:    decimal.Zero,
		ActiveCount:     in.ActiveCount,
		TotalTables:     in.TotalTables,
		AvailableTables: in.AvailableTables,
		TotalClients:    in.TotalClients,
	}
	out.TablesAvailability = fmt.Sprintf("%d/%d", in.AvailableTables, in.TotalTables)

	var byHour [24]decimal.Decimal
	for _, row := range in.Sessions {
		out.TotalRevenue = out.TotalRevenue.Add(row.Price)
		out.TotalGames++
		if !row.Paid {
			out.UnpaidCount++
		}
		h := row.StartTime.In(loc).Hour()
		byHour[h] = byHour[h].Add(row.Price)
	}
	for h := 1; h < len(byHour); h++ {
		if byHour[h].GreaterThan(byHour[out.PeakHour]) {
			out.PeakHour = h
		}
	}

	for _, row := range in.Today {
		out.TodayRevenue = out.TodayRevenue.Add(row.Price)
		out.TodayCount++
	}
	return out
}

// Stats reads the aggregates for the dashboard. Only revenue, games, unpaid
// count and peak hour honour the range.
func (s *Service) Stats(ctx context.Context, r *DateRange) (Summary, error) {
	var from, to *time.Time
	if r != nil {
		from, to = r.From, r.To
	}
	if from != nil && to != nil && !to.After(*from) {
		return Summary{}, fmt.Errorf("%w: range end must be after its start", repository.ErrValidation)
	}

	history, err := s.sessions.ListForStats(ctx, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("list sessions: %w", err)
	}

	local := s.now().In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	today, err := s.sessions.ListForStats(ctx, &dayStart, &dayEnd)
	if err != nil {
		return Summary{}, fmt.Errorf("list today: %w", err)
	}

	active, err := s.sessions.CountInProgress(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count active: %w", err)
	}
	total, available, err := s.tables.Counts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count tables: %w", err)
	}
	clients, err := s.clients.Count(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count clients: %w", err)
	}

	return Summarize(SummaryInput{
		Sessions:        history,
		Today:           today,
		ActiveCount:     active,
		TotalTables:     total,
		AvailableTables: available,
		TotalClients:    clients,
		Location:        s.loc,
	}), nil
}
