package safety

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

// ZoneActivity is one row of the zone heatmap aggregation.
type ZoneActivity struct {
	Zone     string
	Events   int
	PPESkips int
	Hazards  int
}

type EngagementEventRepo interface {
	Create(dbc dbctx.Context, ev *types.EngagementEvent) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EngagementEvent, error)
	ZoneActivitySince(dbc dbctx.Context, since time.Time) ([]ZoneActivity, error)
}

type engagementEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngagementEventRepo(db *gorm.DB, baseLog *logger.Logger) EngagementEventRepo {
	return &engagementEventRepo{db: db, log: baseLog.With("repo", "EngagementEventRepo")}
}

func (r *engagementEventRepo) Create(dbc dbctx.Context, ev *types.EngagementEvent) error {
	if ev == nil {
		return nil
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return dbc.Conn(r.db).Create(ev).Error
}

func (r *engagementEventRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EngagementEvent, error) {
	var out types.EngagementEvent
	if err := dbc.Conn(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ZoneActivitySince groups zone-tagged events that occurred at or after since.
func (r *engagementEventRepo) ZoneActivitySince(dbc dbctx.Context, since time.Time) ([]ZoneActivity, error) {
	type row struct {
		Zone     string
		Events   int
		PPESkips int
		Hazards  int
	}
	var rows []row
	err := dbc.Conn(r.db).
		Model(&types.EngagementEvent{}).
		Select(
			"zone AS zone, COUNT(*) AS events, "+
				"SUM(CASE WHEN type = ? THEN 1 ELSE 0 END) AS ppe_skips, "+
				"SUM(CASE WHEN type = ? THEN 1 ELSE 0 END) AS hazards",
			types.EventPPESkipped, types.EventHazardReported,
		).
		Where("occurred_at >= ? AND zone IS NOT NULL", since.UTC()).
		Group("zone").
		Order("zone ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ZoneActivity, 0, len(rows))
	for _, z := range rows {
		out = append(out, ZoneActivity{Zone: z.Zone, Events: z.Events, PPESkips: z.PPESkips, Hazards: z.Hazards})
	}
	return out, nil
}
