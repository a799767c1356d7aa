package service

import (
	"testing"

	"github.com/neurohabit/internal/db"
)

func TestApplyCompletionGrantsExperience(t *testing.T) {
	next := ApplyCompletion(PetState{Level: 1, Experience: 0, Happiness: 50})

	if next.Experience != 10 {
		t.Fatalf("expected 10 xp, got %d", next.Experience)
	}
	if next.Level != 1 {
		t.Fatalf("expected level unchanged, got %d", next.Level)
	}
	if next.Happiness != 52 {
		t.Fatalf("expected happiness 52, got %d", next.Happiness)
	}
}

func TestApplyCompletionLevelUp(t *testing.T) {
	// 95 + 10 = 105 >= 100：升到 2 级，溢出 5 点保留
	next := ApplyCompletion(PetState{Level: 1, Experience: 95, Happiness: 50})

	if next.Level != 2 {
		t.Fatalf("expected level 2, got %d", next.Level)
	}
	if next.Experience != 5 {
		t.Fatalf("expected 5 xp carried over, got %d", next.Experience)
	}
}

func TestApplyCompletionHigherLevelThreshold(t *testing.T) {
	// 2 级阈值为 200，195+10=205 刚好跨过
	next := ApplyCompletion(PetState{Level: 2, Experience: 195, Happiness: 50})

	if next.Level != 3 {
		t.Fatalf("expected level 3, got %d", next.Level)
	}
	if next.Experience != 5 {
		t.Fatalf("expected 5 xp carried over, got %d", next.Experience)
	}
}

func TestApplyCompletionHappinessClamped(t *testing.T) {
	next := ApplyCompletion(PetState{Level: 1, Experience: 0, Happiness: 99})
	if next.Happiness != 100 {
		t.Fatalf("expected happiness clamped to 100, got %d", next.Happiness)
	}

	next = ApplyCompletion(next)
	if next.Happiness != 100 {
		t.Fatalf("expected happiness to stay at 100, got %d", next.Happiness)
	}
}

func TestRewardPersistsPetState(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	user, _ := seedUserAndHabit(t, gdb, db.FrequencyDaily, 1)
	if err := gdb.Model(&db.User{}).Where("id = ?", user.ID).
		Update("pet_experience", 95).Error; err != nil {
		t.Fatalf("seed pet experience: %v", err)
	}

	svc := NewPetService(gdb)
	state, err := svc.Reward(gdb, user.ID)
	if err != nil {
		t.Fatalf("reward: %v", err)
	}
	if state.Level != 2 || state.Experience != 5 {
		t.Fatalf("expected level 2 with 5 xp, got level %d xp %d", state.Level, state.Experience)
	}

	var stored db.User
	if err := gdb.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.PetLevel != 2 || stored.PetExperience != 5 || stored.PetHappiness != 52 {
		t.Fatalf("expected persisted pet state 2/5/52, got %d/%d/%d",
			stored.PetLevel, stored.PetExperience, stored.PetHappiness)
	}
}

func TestRewardUnknownUser(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPetService(gdb)
	if _, err := svc.Reward(gdb, 9999); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
