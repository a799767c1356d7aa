package service

import (
	"testing"
	"time"

	"github.com/neurohabit/internal/db"
	"github.com/neurohabit/internal/ml"
)

func baseFeatureInput(now time.Time) FeatureInput {
	return FeatureInput{
		Habit: db.Habit{
			Frequency:        db.FrequencyDaily,
			TargetCount:      1,
			DifficultyRating: 2,
			ImportanceRating: 5,
		},
		Pet:           PetState{Level: 3, Experience: 40, Happiness: 80},
		CurrentStreak: 6,
		Now:           now,
		Loc:           time.UTC,
	}
}

func TestBuildFeaturesSlotContract(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC) // 周四上午
	in := baseFeatureInput(now)
	in.Habit.CreatedAt = now.AddDate(0, 0, -30)

	v := BuildFeatures(in)

	if v[ml.FeatDifficulty] != 2 || v[ml.FeatImportance] != 5 {
		t.Fatalf("unexpected rating slots: %v / %v", v[ml.FeatDifficulty], v[ml.FeatImportance])
	}
	if v[ml.FeatHabitAgeDays] != 30 {
		t.Fatalf("expected habit age 30, got %v", v[ml.FeatHabitAgeDays])
	}
	if v[ml.FeatTimeOfDay] != 0 {
		t.Fatalf("expected morning ordinal 0, got %v", v[ml.FeatTimeOfDay])
	}
	if v[ml.FeatDayOfWeek] != 3 {
		t.Fatalf("expected Thursday as 3, got %v", v[ml.FeatDayOfWeek])
	}
	if v[ml.FeatIsWeekend] != 0 {
		t.Fatalf("expected weekday, got is_weekend=%v", v[ml.FeatIsWeekend])
	}
	if v[ml.FeatCurrentStreak] != 6 {
		t.Fatalf("expected streak 6, got %v", v[ml.FeatCurrentStreak])
	}
	if v[ml.FeatPetLevel] != 3 || v[ml.FeatPetHappiness] != 80 {
		t.Fatalf("unexpected pet slots: %v / %v", v[ml.FeatPetLevel], v[ml.FeatPetHappiness])
	}
	if v[ml.FeatTargetCount] != 1 {
		t.Fatalf("expected target count 1, got %v", v[ml.FeatTargetCount])
	}
}

func TestBuildFeaturesNeutralDefaults(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	in := baseFeatureInput(now)
	in.Habit.CreatedAt = now.AddDate(0, 0, -10)

	// 无历史事件、无上下文：mood/energy 落到中性 3，完成率为 0
	v := BuildFeatures(in)

	if v[ml.FeatAvgMood] != 3 || v[ml.FeatAvgEnergy] != 3 {
		t.Fatalf("expected neutral mood/energy 3, got %v / %v", v[ml.FeatAvgMood], v[ml.FeatAvgEnergy])
	}
	if v[ml.FeatCompletionRate30d] != 0 || v[ml.FeatCompletionRate7d] != 0 {
		t.Fatalf("expected zero completion rates, got %v / %v", v[ml.FeatCompletionRate30d], v[ml.FeatCompletionRate7d])
	}
}

func TestBuildFeaturesContextOverridesHistory(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	historyMood := 1
	contextMood := 5

	in := baseFeatureInput(now)
	in.Habit.CreatedAt = now.AddDate(0, 0, -10)
	in.Events = []db.HabitEvent{{HabitID: 1, CompletedAt: now.AddDate(0, 0, -1), Mood: &historyMood}}
	in.Context = FeatureContext{Mood: &contextMood, TimeOfDay: TimeOfDayNight}

	v := BuildFeatures(in)

	if v[ml.FeatAvgMood] != 5 {
		t.Fatalf("expected context mood to win, got %v", v[ml.FeatAvgMood])
	}
	if v[ml.FeatTimeOfDay] != 3 {
		t.Fatalf("expected night ordinal 3, got %v", v[ml.FeatTimeOfDay])
	}
}

func TestBuildFeaturesCompletionRates(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	in := baseFeatureInput(now)
	in.Habit.CreatedAt = now.AddDate(0, 0, -60)

	// 最近 7 天每天打卡
	for i := 0; i < 7; i++ {
		in.Events = append(in.Events, db.HabitEvent{HabitID: 1, CompletedAt: now.AddDate(0, 0, -i)})
	}

	v := BuildFeatures(in)

	if v[ml.FeatCompletionRate7d] != 1 {
		t.Fatalf("expected 7d rate 1.0, got %v", v[ml.FeatCompletionRate7d])
	}
	want := 7.0 / 30.0
	if diff := v[ml.FeatCompletionRate30d] - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected 30d rate %v, got %v", want, v[ml.FeatCompletionRate30d])
	}
}

func TestBuildFeaturesReproducible(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	in := baseFeatureInput(now)
	in.Habit.CreatedAt = now.AddDate(0, 0, -30)

	first := BuildFeatures(in)
	for i := 0; i < 5; i++ {
		if again := BuildFeatures(in); again != first {
			t.Fatalf("expected element-wise identical vectors, got %v then %v", first, again)
		}
	}
}

func TestBuildForHabitRecoversFromBadCache(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	user, habit := seedUserAndHabit(t, gdb, db.FrequencyDaily, 1)
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	// 连续两天的真实事件，但缓存计数被破坏成 current > longest
	for i := 1; i >= 0; i-- {
		if err := gdb.Create(&db.HabitEvent{HabitID: habit.ID, CompletedAt: now.AddDate(0, 0, -i)}).Error; err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
	if err := gdb.Model(&db.Habit{}).Where("id = ?", habit.ID).
		Updates(map[string]interface{}{"current_streak": 50, "longest_streak": 1}).Error; err != nil {
		t.Fatalf("corrupt cache: %v", err)
	}

	var corrupted db.Habit
	if err := gdb.First(&corrupted, habit.ID).Error; err != nil {
		t.Fatalf("reload habit: %v", err)
	}

	svc := NewFeatureService(gdb, time.UTC)
	v, err := svc.BuildForHabit(&corrupted, user, FeatureContext{}, now)
	if err != nil {
		t.Fatalf("build features: %v", err)
	}

	// 特征应来自事件历史重算的值，而不是被破坏的缓存
	if v[ml.FeatCurrentStreak] != 2 {
		t.Fatalf("expected recomputed streak 2, got %v", v[ml.FeatCurrentStreak])
	}

	// 只读路径不回写缓存
	var stored db.Habit
	if err := gdb.First(&stored, habit.ID).Error; err != nil {
		t.Fatalf("reload habit: %v", err)
	}
	if stored.CurrentStreak != 50 {
		t.Fatalf("expected read path to leave cache untouched, got %d", stored.CurrentStreak)
	}
}
