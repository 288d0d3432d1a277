package projections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conference/internal/adapters/storage/report"
	domainActivity "conference/internal/domain/activity"
)

// ErrInvalidKindFilter is returned when the kind filter is not an activity kind.
var ErrInvalidKindFilter = errors.New("kind must be TALLER or COMPETENCIA")

// AttendanceReportQuery carries the optional report filters.
type AttendanceReportQuery struct {
	Year int
	Kind string
}

// CountsView pairs registrations with attendances.
type CountsView struct {
	Registered int `json:"inscritos"`
	Attended   int `json:"asistieron"`
}

// KindCountsView is one row of by_kind.
type KindCountsView struct {
	Kind string `json:"kind"`
	CountsView
}

// ActivityCountsView is one row of by_activity.
type ActivityCountsView struct {
	ActivityID int64  `json:"activity_id"`
	Title      string `json:"title"`
	Kind       string `json:"kind"`
	Year       int    `json:"year"`
	CountsView
}

// AttendanceReport is the aggregate attendance report.
type AttendanceReport struct {
	Totals     CountsView           `json:"totals"`
	ByKind     []KindCountsView     `json:"by_kind"`
	ByActivity []ActivityCountsView `json:"by_activity"`
}

// QueryAttendanceReport aggregates registrations and attendances, optionally by year and kind.
// A registration counts as attended when its status, its attended_at or an attendance-log row says so.
// PRE: query.Kind is empty or an activity kind
// POST: ByKind and ByActivity are never nil
func QueryAttendanceReport(ctx context.Context, query AttendanceReportQuery, store ReportStore) (AttendanceReport, error) {
	kind := strings.ToUpper(strings.TrimSpace(query.Kind))
	if kind != "" && kind != domainActivity.KindWorkshop && kind != domainActivity.KindCompetition {
		return AttendanceReport{}, ErrInvalidKindFilter
	}
	f := report.Filter{Year: query.Year, Kind: kind}

	totals, err := store.Totals(ctx, f)
	if err != nil {
		return AttendanceReport{}, fmt.Errorf("report totals: %w", err)
	}
	byKind, err := store.ByKind(ctx, f)
	if err != nil {
		return AttendanceReport{}, fmt.Errorf("report by kind: %w", err)
	}
	byActivity, err := store.ByActivity(ctx, f)
	if err != nil {
		return AttendanceReport{}, fmt.Errorf("report by activity: %w", err)
	}

	out := AttendanceReport{
		Totals:     countsView(totals),
		ByKind:     make([]KindCountsView, 0, len(byKind)),
		ByActivity: make([]ActivityCountsView, 0, len(byActivity)),
	}
	for _, k := range byKind {
		out.ByKind = append(out.ByKind, KindCountsView{Kind: k.Kind, CountsView: countsView(k.Counts)})
	}
	for _, a := range byActivity {
		out.ByActivity = append(out.ByActivity, ActivityCountsView{
			ActivityID: a.ActivityID,
			Title:      a.Title,
			Kind:       a.Kind,
			Year:       a.Year,
			CountsView: countsView(a.Counts),
		})
	}
	return out, nil
}

func countsView(c report.Counts) CountsView {
	return CountsView{Registered: c.Registered, Attended: c.Attended}
}
