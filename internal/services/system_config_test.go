package services

import (
	"context"
	"testing"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

func TestSystemConfigService_SetAndGet(t *testing.T) {
	svc := NewSystemConfigService(newTestDB(t))

	if got := svc.GetWithDefault("missing", "fallback"); got != "fallback" {
		t.Errorf("GetWithDefault() = %q, expected %q", got, "fallback")
	}

	if err := svc.Set("greeting", "hello"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := svc.Set("greeting", "bonjour"); err != nil {
		t.Fatalf("Set() update error = %v", err)
	}
	got, err := svc.Get("greeting")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "bonjour" {
		t.Errorf("Get() = %q, expected %q", got, "bonjour")
	}
}

func TestSystemConfigService_GetByGroup(t *testing.T) {
	db := newTestDB(t)
	if err := models.Seed(db); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	configs, err := NewSystemConfigService(db).GetByGroup("learning")
	if err != nil {
		t.Fatalf("GetByGroup() error = %v", err)
	}
	if len(configs) != 1 || configs[0].Key != models.ConfigLearningForceBaseline {
		t.Errorf("GetByGroup(learning) = %+v, expected only %s", configs, models.ConfigLearningForceBaseline)
	}
}

func TestSystemConfigService_ForceBaseline(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)
	ctx := WithRequestID(context.Background(), "req-42")

	on, err := svc.ForceBaseline(ctx)
	if err != nil || on {
		t.Fatalf("ForceBaseline() on empty db = %v, %v; expected false, nil", on, err)
	}

	admin := uint(1)
	if err := svc.SetForceBaseline(ctx, true, &admin); err != nil {
		t.Fatalf("SetForceBaseline(true) error = %v", err)
	}
	if on, _ := svc.ForceBaseline(ctx); !on {
		t.Error("ForceBaseline() should be true after reset")
	}

	if err := svc.SetForceBaseline(ctx, false, &admin); err != nil {
		t.Fatalf("SetForceBaseline(false) error = %v", err)
	}
	if on, _ := svc.ForceBaseline(ctx); on {
		t.Error("ForceBaseline() should be false after resume")
	}

	var logs []models.SystemLog
	if err := db.Order("id").Find(&logs).Error; err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit logs, got %d", len(logs))
	}
	if logs[0].Action != "learning_reset_to_baseline" || logs[1].Action != "learning_resumed" {
		t.Errorf("audit actions = %q, %q", logs[0].Action, logs[1].Action)
	}
	if logs[0].RequestID != "req-42" {
		t.Errorf("RequestID = %q, expected %q", logs[0].RequestID, "req-42")
	}
	if logs[0].UserID == nil || *logs[0].UserID != admin {
		t.Errorf("UserID = %v, expected %d", logs[0].UserID, admin)
	}
}

func TestSystemConfigService_ForceBaselineUnparseable(t *testing.T) {
	svc := NewSystemConfigService(newTestDB(t))
	if err := svc.Set(models.ConfigLearningForceBaseline, "maybe"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	on, err := svc.ForceBaseline(context.Background())
	if err != nil || on {
		t.Errorf("ForceBaseline() = %v, %v; expected false, nil", on, err)
	}
}
