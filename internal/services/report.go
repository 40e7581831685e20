package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/minesafe-compliance/internal/compliance"
	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/domain/user"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

const (
	DefaultRangeDays   = 7
	overviewListLimit  = 5
	overviewAlertLimit = 20
	heatmapWindow      = 24 * time.Hour
	unspecifiedZone    = "Unspecified"
)

type TrendPoint struct {
	Date            string          `json:"date"`
	ComplianceScore int             `json:"complianceScore"`
	RiskLevel       types.RiskLevel `json:"riskLevel"`
}

type PersonalTrend struct {
	Latest *types.DailyComplianceSnapshot `json:"latest"`
	Trend  []TrendPoint                   `json:"trend"`
}

type OverviewSummary struct {
	TotalWorkers    int64 `json:"totalWorkers"`
	AverageScore    int   `json:"averageScore"`
	HighRiskCount   int   `json:"highRiskCount"`
	LowRiskCount    int   `json:"lowRiskCount"`
	InactiveWorkers int64 `json:"inactiveWorkers"`
}

type AverageTrendPoint struct {
	Date         string `json:"date"`
	AverageScore int    `json:"averageScore"`
}

type ZoneHeat struct {
	Zone            string          `json:"zone"`
	TotalEvents     int             `json:"totalEvents"`
	PPEIncidents    int             `json:"ppeIncidents"`
	HazardsReported int             `json:"hazardsReported"`
	RiskLevel       types.RiskLevel `json:"riskLevel"`
}

type SupervisorOverview struct {
	Summary             OverviewSummary     `json:"summary"`
	Trend               []AverageTrendPoint `json:"trend"`
	TopCompliantWorkers []SnapshotView      `json:"topCompliantWorkers"`
	AtRiskWorkers       []SnapshotView      `json:"atRiskWorkers"`
	Heatmap             []ZoneHeat          `json:"heatmap"`
	Alerts              []AlertView         `json:"alerts"`
}

type ReportService interface {
	PersonalTrend(ctx context.Context, userID uuid.UUID, rangeDays int) (*PersonalTrend, error)
	SupervisorOverview(ctx context.Context, rangeDays int) (*SupervisorOverview, error)
}

type ReportServiceDeps struct {
	Log       *logger.Logger
	Users     repos.UserRepo
	Events    repos.EngagementEventRepo
	Snapshots repos.DailySnapshotRepo
	Alerts    repos.BehaviorAlertRepo
	Now       func() time.Time
}

type reportService struct {
	log       *logger.Logger
	users     repos.UserRepo
	events    repos.EngagementEventRepo
	snapshots repos.DailySnapshotRepo
	alerts    repos.BehaviorAlertRepo
	now       func() time.Time
}

func NewReportService(deps ReportServiceDeps) ReportService {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &reportService{
		log:       log.With("service", "ReportService"),
		users:     deps.Users,
		events:    deps.Events,
		snapshots: deps.Snapshots,
		alerts:    deps.Alerts,
		now:       now,
	}
}

func (s *reportService) PersonalTrend(ctx context.Context, userID uuid.UUID, rangeDays int) (out *PersonalTrend, err error) {
	ctx, span := observability.StartSpan(ctx, "reports.personal_trend", attribute.Int("range_days", rangeDays))
	defer func() { observability.EndSpan(span, err) }()

	start, end := compliance.DateRange(s.now(), rangeDays)
	snaps, err := s.snapshots.ListByUserBetween(dbctx.Background(ctx), userID, start, end)
	if err != nil {
		return nil, err
	}
	out = &PersonalTrend{Trend: make([]TrendPoint, 0, len(snaps))}
	for _, snap := range snaps {
		out.Trend = append(out.Trend, TrendPoint{
			Date:            snap.Date,
			ComplianceScore: snap.ComplianceScore,
			RiskLevel:       snap.RiskLevel,
		})
	}
	if len(snaps) > 0 {
		out.Latest = snaps[len(snaps)-1]
	}
	return out, nil
}

func (s *reportService) SupervisorOverview(ctx context.Context, rangeDays int) (out *SupervisorOverview, err error) {
	ctx, span := observability.StartSpan(ctx, "reports.supervisor_overview", attribute.Int("range_days", rangeDays))
	defer func() { observability.EndSpan(span, err) }()

	now := s.now()
	start, today := compliance.DateRange(now, rangeDays)

	var (
		snaps        []*types.DailyComplianceSnapshot
		totalWorkers int64
		openAlerts   []*types.BehaviorAlert
		zones        []repos.ZoneActivity
	)
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Background(gctx)
	g.Go(func() error {
		var err error
		snaps, err = s.snapshots.ListBetween(dbc, start, today)
		return err
	})
	g.Go(func() error {
		var err error
		totalWorkers, err = s.users.CountByRoles(dbc, user.RosterRoles)
		return err
	})
	g.Go(func() error {
		var err error
		openAlerts, err = s.alerts.ListOpen(dbc, overviewAlertLimit, nil)
		return err
	})
	g.Go(func() error {
		var err error
		zones, err = s.events.ZoneActivitySince(dbc, now.Add(-heatmapWindow))
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Failed to load supervisor overview", "error", err)
		return nil, err
	}

	var todays []*types.DailyComplianceSnapshot
	for _, snap := range snaps {
		if snap.Date == today {
			todays = append(todays, snap)
		}
	}

	ids := alertUserIDs(openAlerts)
	for _, snap := range todays {
		ids = append(ids, snap.UserID)
	}
	byID, err := userSummaries(dbctx.Background(ctx), s.users, ids)
	if err != nil {
		return nil, err
	}

	return &SupervisorOverview{
		Summary:             summarize(snaps, todays, totalWorkers),
		Trend:               averageTrend(snaps),
		TopCompliantWorkers: snapshotViews(topCompliant(todays), byID),
		AtRiskWorkers:       snapshotViews(atRisk(todays), byID),
		Heatmap:             heatmap(zones),
		Alerts:              alertViews(openAlerts, byID),
	}, nil
}

func summarize(snaps, todays []*types.DailyComplianceSnapshot, totalWorkers int64) OverviewSummary {
	sum := OverviewSummary{TotalWorkers: totalWorkers}
	if len(snaps) > 0 {
		total := 0
		for _, snap := range snaps {
			total += snap.ComplianceScore
		}
		sum.AverageScore = roundHalfUp(float64(total) / float64(len(snaps)))
	}
	for _, snap := range todays {
		switch snap.RiskLevel {
		case types.RiskHigh:
			sum.HighRiskCount++
		case types.RiskLow:
			sum.LowRiskCount++
		}
	}
	if inactive := totalWorkers - int64(len(todays)); inactive > 0 {
		sum.InactiveWorkers = inactive
	}
	return sum
}

func averageTrend(snaps []*types.DailyComplianceSnapshot) []AverageTrendPoint {
	type acc struct{ sum, n int }
	byDate := map[string]*acc{}
	for _, snap := range snaps {
		a, ok := byDate[snap.Date]
		if !ok {
			a = &acc{}
			byDate[snap.Date] = a
		}
		a.sum += snap.ComplianceScore
		a.n++
	}
	out := make([]AverageTrendPoint, 0, len(byDate))
	for date, a := range byDate {
		out = append(out, AverageTrendPoint{Date: date, AverageScore: roundHalfUp(float64(a.sum) / float64(a.n))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func topCompliant(todays []*types.DailyComplianceSnapshot) []*types.DailyComplianceSnapshot {
	ranked := append([]*types.DailyComplianceSnapshot(nil), todays...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].ComplianceScore > ranked[j].ComplianceScore })
	return limitSnapshots(ranked, overviewListLimit)
}

func atRisk(todays []*types.DailyComplianceSnapshot) []*types.DailyComplianceSnapshot {
	var ranked []*types.DailyComplianceSnapshot
	for _, snap := range todays {
		if snap.RiskLevel != types.RiskLow {
			ranked = append(ranked, snap)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].ComplianceScore < ranked[j].ComplianceScore })
	return limitSnapshots(ranked, overviewListLimit)
}

func limitSnapshots(in []*types.DailyComplianceSnapshot, n int) []*types.DailyComplianceSnapshot {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func snapshotViews(snaps []*types.DailyComplianceSnapshot, byID map[uuid.UUID]*types.UserSummary) []SnapshotView {
	out := make([]SnapshotView, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, SnapshotView{DailyComplianceSnapshot: snap, User: byID[snap.UserID]})
	}
	return out
}

func heatmap(zones []repos.ZoneActivity) []ZoneHeat {
	out := make([]ZoneHeat, 0, len(zones))
	for _, z := range zones {
		name := z.Zone
		if name == "" {
			name = unspecifiedZone
		}
		out = append(out, ZoneHeat{
			Zone:            name,
			TotalEvents:     z.Events,
			PPEIncidents:    z.PPESkips,
			HazardsReported: z.Hazards,
			RiskLevel:       zoneRisk(z.PPESkips),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalEvents != out[j].TotalEvents {
			return out[i].TotalEvents > out[j].TotalEvents
		}
		return out[i].Zone < out[j].Zone
	})
	return out
}

func zoneRisk(ppeSkips int) types.RiskLevel {
	switch {
	case ppeSkips > 2:
		return types.RiskHigh
	case ppeSkips > 0:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
