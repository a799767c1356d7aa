package service

import (
	"errors"
	"testing"
	"time"

	"github.com/neurohabit/internal/db"
)

func TestLogEventCascadesStreakAndPet(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	user, habit := seedUserAndHabit(t, gdb, db.FrequencyDaily, 1)
	streaks := NewStreakService(gdb, time.UTC)
	pets := NewPetService(gdb)
	svc := NewEventService(gdb, streaks, pets, time.UTC)

	now := time.Date(2026, 3, 12, 8, 30, 0, 0, time.UTC)
	result, err := svc.Log(habit.ID, user.ID, EventInput{}, now)
	if err != nil {
		t.Fatalf("log event: %v", err)
	}

	if result.Habit.CurrentStreak != 1 {
		t.Fatalf("expected streak 1 after first completion, got %d", result.Habit.CurrentStreak)
	}
	if result.Pet.Experience != 10 {
		t.Fatalf("expected 10 xp, got %d", result.Pet.Experience)
	}
	if result.Pet.Happiness != 52 {
		t.Fatalf("expected happiness 52, got %d", result.Pet.Happiness)
	}
	if result.Event.TimeOfDay != TimeOfDayMorning {
		t.Fatalf("expected derived time_of_day morning, got %q", result.Event.TimeOfDay)
	}
	if result.Event.DayOfWeek != 3 {
		t.Fatalf("expected Thursday as weekday 3, got %d", result.Event.DayOfWeek)
	}
}

func TestLogEventDuplicateRejected(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	user, habit := seedUserAndHabit(t, gdb, db.FrequencyDaily, 1)
	streaks := NewStreakService(gdb, time.UTC)
	pets := NewPetService(gdb)
	svc := NewEventService(gdb, streaks, pets, time.UTC)

	now := time.Date(2026, 3, 12, 8, 30, 0, 0, time.UTC)
	completedAt := now.Add(-time.Hour)
	input := EventInput{CompletedAt: &completedAt}

	if _, err := svc.Log(habit.ID, user.ID, input, now); err != nil {
		t.Fatalf("first log: %v", err)
	}
	if _, err := svc.Log(habit.ID, user.ID, input, now); !errors.Is(err, ErrDuplicateCompletion) {
		t.Fatalf("expected ErrDuplicateCompletion, got %v", err)
	}

	// 拒绝的重复不得改变宠物状态
	var stored db.User
	if err := gdb.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.PetExperience != 10 {
		t.Fatalf("expected xp to stay at 10 after rejected duplicate, got %d", stored.PetExperience)
	}
}

func TestLogEventUnknownHabit(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	user, _ := seedUserAndHabit(t, gdb, db.FrequencyDaily, 1)
	streaks := NewStreakService(gdb, time.UTC)
	pets := NewPetService(gdb)
	svc := NewEventService(gdb, streaks, pets, time.UTC)

	if _, err := svc.Log(9999, user.ID, EventInput{}, time.Now()); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestLogEventValidatesRatings(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	user, habit := seedUserAndHabit(t, gdb, db.FrequencyDaily, 1)
	streaks := NewStreakService(gdb, time.UTC)
	pets := NewPetService(gdb)
	svc := NewEventService(gdb, streaks, pets, time.UTC)

	badMood := 6
	if _, err := svc.Log(habit.ID, user.ID, EventInput{Mood: &badMood}, time.Now()); !errors.Is(err, ErrInvalidEventRating) {
		t.Fatalf("expected ErrInvalidEventRating, got %v", err)
	}
	if _, err := svc.Log(habit.ID, user.ID, EventInput{TimeOfDay: "midnightish"}, time.Now()); !errors.Is(err, ErrInvalidTimeOfDay) {
		t.Fatalf("expected ErrInvalidTimeOfDay, got %v", err)
	}
}

func TestTimeOfDayBuckets(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{5, TimeOfDayMorning},
		{11, TimeOfDayMorning},
		{12, TimeOfDayAfternoon},
		{16, TimeOfDayAfternoon},
		{17, TimeOfDayEvening},
		{20, TimeOfDayEvening},
		{21, TimeOfDayNight},
		{2, TimeOfDayNight},
	}

	for _, tc := range cases {
		at := time.Date(2026, 3, 12, tc.hour, 0, 0, 0, time.UTC)
		if got := TimeOfDayFor(at); got != tc.want {
			t.Fatalf("hour %d: expected %q, got %q", tc.hour, tc.want, got)
		}
	}
}

func TestMondayIndexedWeekday(t *testing.T) {
	monday := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	if got := mondayIndexedWeekday(monday); got != 0 {
		t.Fatalf("expected Monday=0, got %d", got)
	}
	sunday := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	if got := mondayIndexedWeekday(sunday); got != 6 {
		t.Fatalf("expected Sunday=6, got %d", got)
	}
}
