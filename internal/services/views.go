package services

import (
	"github.com/google/uuid"

	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
)

// AlertView is an alert with its worker's public fields attached.
type AlertView struct {
	*types.BehaviorAlert
	User *types.UserSummary `json:"user,omitempty"`
}

// SnapshotView is a snapshot with its worker's public fields attached.
type SnapshotView struct {
	*types.DailyComplianceSnapshot
	User *types.UserSummary `json:"user,omitempty"`
}

// userSummaries loads the users behind ids in one query. Missing users are absent from the map.
func userSummaries(dbc dbctx.Context, users repos.UserRepo, ids []uuid.UUID) (map[uuid.UUID]*types.UserSummary, error) {
	out := make(map[uuid.UUID]*types.UserSummary, len(ids))
	if users == nil || len(ids) == 0 {
		return out, nil
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	uniq := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	rows, err := users.GetByIDs(dbc, uniq)
	if err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func alertViews(alerts []*types.BehaviorAlert, byID map[uuid.UUID]*types.UserSummary) []AlertView {
	out := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertView{BehaviorAlert: a, User: byID[a.UserID]})
	}
	return out
}

func alertUserIDs(alerts []*types.BehaviorAlert) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.UserID)
	}
	return ids
}
