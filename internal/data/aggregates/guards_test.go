package aggregates

import (
	"testing"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
)

func TestRequireStatusAllowed(t *testing.T) {
	if err := RequireStatusAllowed("open", "open"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireStatusAllowed("acknowledged", "open"); err == nil {
		t.Fatalf("expected conflict error")
	}
	if err := RequireStatusAllowed("open"); err == nil {
		t.Fatalf("expected validation error for empty allow list")
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := MapError("compliance.acknowledge_alert", RequireCASSuccess(false, "alert status changed during acknowledge"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("lost CAS: want=conflict got=%q (%v)", domainagg.CodeOf(err), err)
	}
}
