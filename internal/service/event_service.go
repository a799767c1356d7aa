package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neurohabit/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrDuplicateCompletion 在同一逻辑完成被重复提交时返回（客户端重试）
	ErrDuplicateCompletion = errors.New("completion already recorded")
	// ErrInvalidEventRating 在 mood/energy 超出 1-5 时返回
	ErrInvalidEventRating = errors.New("invalid event rating: must be between 1 and 5")
	// ErrInvalidTimeOfDay 在时段取值不合法时返回
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)

// 时段取值
const (
	TimeOfDayMorning   = "morning"
	TimeOfDayAfternoon = "afternoon"
	TimeOfDayEvening   = "evening"
	TimeOfDayNight     = "night"
)

// EventService 负责完成事件的写入与查询。
// 写路径在单个事务内完成：事件落库（唯一索引去重）→ 连胜重算（习惯行锁）
// → 宠物奖励（用户行锁），同一习惯/用户的并发完成因此串行生效。
type EventService struct {
	db      *gorm.DB
	streaks *StreakService
	pets    *PetService
	loc     *time.Location
}

// EventInput 定义打卡时的输入对象；CompletedAt 为空时取当前时间
type EventInput struct {
	CompletedAt *time.Time
	Notes       string
	Mood        *int
	EnergyLevel *int
	TimeOfDay   string
}

// CompletionResult 汇总一次完成事件写入后的最新状态。
type CompletionResult struct {
	Event db.HabitEvent
	Habit db.Habit
	Pet   PetState
}

// NewEventService 构造 EventService
func NewEventService(gdb *gorm.DB, streaks *StreakService, pets *PetService, loc *time.Location) *EventService {
	if loc == nil {
		loc = time.Local
	}
	return &EventService{db: gdb, streaks: streaks, pets: pets, loc: loc}
}

// Log 记录一次习惯完成并级联更新连胜与宠物状态。
// now 由调用方显式传入，保持可测试性。
func (s *EventService) Log(habitID, userID uint, input EventInput, now time.Time) (*CompletionResult, error) {
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	var habit db.Habit
	if err := s.db.Where("id = ? AND user_id = ?", habitID, userID).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("load habit: %w", err)
	}

	completedAt := now
	if input.CompletedAt != nil {
		completedAt = *input.CompletedAt
	}

	timeOfDay := strings.TrimSpace(strings.ToLower(input.TimeOfDay))
	if timeOfDay == "" {
		timeOfDay = TimeOfDayFor(completedAt.In(s.loc))
	}

	event := db.HabitEvent{
		HabitID:     habitID,
		CompletedAt: completedAt,
		Notes:       strings.TrimSpace(input.Notes),
		Mood:        input.Mood,
		EnergyLevel: input.EnergyLevel,
		TimeOfDay:   timeOfDay,
		DayOfWeek:   mondayIndexedWeekday(completedAt.In(s.loc)),
	}

	result := &CompletionResult{}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "completed_at"}},
			DoNothing: true,
		}).Create(&event)
		if insert.Error != nil {
			return fmt.Errorf("insert event: %w", insert.Error)
		}
		if insert.RowsAffected == 0 {
			return ErrDuplicateCompletion
		}

		updated, err := s.streaks.Recompute(tx, habitID, now)
		if err != nil {
			return err
		}

		pet, err := s.pets.Reward(tx, habit.UserID)
		if err != nil {
			return err
		}

		result.Event = event
		result.Habit = *updated
		result.Pet = pet
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListRecent 返回习惯最近的完成事件，按时间倒序
func (s *EventService) ListRecent(habitID, userID uint, limit int) ([]db.HabitEvent, error) {
	if _, err := s.habitOwned(habitID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var events []db.HabitEvent
	if err := s.db.Where("habit_id = ?", habitID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *EventService) habitOwned(habitID, userID uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.Where("id = ? AND user_id = ?", habitID, userID).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("load habit: %w", err)
	}
	return &habit, nil
}

// TimeOfDayFor 按小时划分时段：5-12 早晨，12-17 下午，17-21 晚间，其余夜间。
func TimeOfDayFor(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 5 && hour < 12:
		return TimeOfDayMorning
	case hour >= 12 && hour < 17:
		return TimeOfDayAfternoon
	case hour >= 17 && hour < 21:
		return TimeOfDayEvening
	default:
		return TimeOfDayNight
	}
}

// mondayIndexedWeekday 返回周一为 0 的星期序号（0-6）。
func mondayIndexedWeekday(t time.Time) int {
	weekday := int(t.Weekday())
	if weekday == 0 {
		return 6
	}
	return weekday - 1
}

func validateEventInput(input EventInput) error {
	if input.Mood != nil && (*input.Mood < 1 || *input.Mood > 5) {
		return ErrInvalidEventRating
	}
	if input.EnergyLevel != nil && (*input.EnergyLevel < 1 || *input.EnergyLevel > 5) {
		return ErrInvalidEventRating
	}

	if timeOfDay := strings.TrimSpace(strings.ToLower(input.TimeOfDay)); timeOfDay != "" {
		switch timeOfDay {
		case TimeOfDayMorning, TimeOfDayAfternoon, TimeOfDayEvening, TimeOfDayNight:
		default:
			return ErrInvalidTimeOfDay
		}
	}

	return nil
}
