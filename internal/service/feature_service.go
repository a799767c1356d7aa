package service

import (
	"fmt"
	"log"
	"time"

	"github.com/neurohabit/internal/db"
	"github.com/neurohabit/internal/ml"
	"gorm.io/gorm"
)

// 特征窗口与默认值
const (
	featureWindowDays  = 30
	shortWindowDays    = 7
	neutralRating      = 3.0
	maxFeatureAgeYears = 10
)

// FeatureContext 枚举预测请求可携带的上下文字段，未提供的字段落到文档化的中性默认值。
// 不在此结构内的键在绑定层即被拒绝。
type FeatureContext struct {
	Mood        *int
	EnergyLevel *int
	TimeOfDay   string
}

// FeatureInput 是一次特征构建的全部显式输入，便于纯函数复现。
type FeatureInput struct {
	Habit         db.Habit
	Pet           PetState
	Events        []db.HabitEvent
	Context       FeatureContext
	CurrentStreak int
	Now           time.Time
	Loc           *time.Location
}

// BuildFeatures 组装定长 14 维特征向量，纯函数：相同输入产出逐位相同的向量。
// 槽位顺序见 ml.FeatureNames，该顺序即与训练端共享的契约。
func BuildFeatures(in FeatureInput) ml.Vector {
	loc := in.Loc
	if loc == nil {
		loc = time.Local
	}
	local := in.Now.In(loc)

	var v ml.Vector
	v[ml.FeatDifficulty] = float64(in.Habit.DifficultyRating)
	v[ml.FeatImportance] = float64(in.Habit.ImportanceRating)
	v[ml.FeatHabitAgeDays] = habitAgeDays(in.Habit.CreatedAt, in.Now)

	timeOfDay := in.Context.TimeOfDay
	if timeOfDay == "" {
		timeOfDay = TimeOfDayFor(local)
	}
	v[ml.FeatTimeOfDay] = float64(encodeTimeOfDay(timeOfDay))

	v[ml.FeatAvgMood] = contextOrAverage(in.Context.Mood, in.Events, func(e db.HabitEvent) *int { return e.Mood })
	v[ml.FeatAvgEnergy] = contextOrAverage(in.Context.EnergyLevel, in.Events, func(e db.HabitEvent) *int { return e.EnergyLevel })

	dow := mondayIndexedWeekday(local)
	v[ml.FeatDayOfWeek] = float64(dow)
	if dow >= 5 {
		v[ml.FeatIsWeekend] = 1
	}

	v[ml.FeatCompletionRate30d] = completionRate(in.Events, in.Habit.Frequency, in.Habit.TargetCount, featureWindowDays, in.Now, loc)
	v[ml.FeatCompletionRate7d] = completionRate(in.Events, in.Habit.Frequency, in.Habit.TargetCount, shortWindowDays, in.Now, loc)

	v[ml.FeatCurrentStreak] = float64(in.CurrentStreak)
	v[ml.FeatPetLevel] = float64(in.Pet.Level)
	v[ml.FeatPetHappiness] = float64(in.Pet.Happiness)
	v[ml.FeatTargetCount] = float64(in.Habit.TargetCount)

	return v
}

// FeatureService 从数据库装配特征构建所需的事件窗口与连胜值。
// 只读：即使发现缓存计数异常也不写回，只上报并改用事件历史重算。
type FeatureService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewFeatureService 构造 FeatureService
func NewFeatureService(gdb *gorm.DB, loc *time.Location) *FeatureService {
	if loc == nil {
		loc = time.Local
	}
	return &FeatureService{db: gdb, loc: loc}
}

// BuildForHabit 为预测请求装配特征向量。
func (s *FeatureService) BuildForHabit(habit *db.Habit, user *db.User, ctx FeatureContext, now time.Time) (ml.Vector, error) {
	since := now.AddDate(0, 0, -featureWindowDays)
	var events []db.HabitEvent
	if err := s.db.Where("habit_id = ? AND completed_at >= ?", habit.ID, since).
		Order("completed_at ASC").
		Find(&events).Error; err != nil {
		return ml.Vector{}, fmt.Errorf("load feature events: %w", err)
	}

	currentStreak := habit.CurrentStreak
	if err := VerifyCached(habit); err != nil {
		// 缓存不可信：上报异常并以全量事件历史为准重算
		log.Printf("habit %d: %v, recomputing from event history", habit.ID, err)

		var history []db.HabitEvent
		if err := s.db.Where("habit_id = ?", habit.ID).
			Order("completed_at ASC").
			Find(&history).Error; err != nil {
			return ml.Vector{}, fmt.Errorf("load event history: %w", err)
		}
		currentStreak = ComputeStreak(history, habit.Frequency, habit.TargetCount, now, s.loc).Current
	}

	return BuildFeatures(FeatureInput{
		Habit: *habit,
		Pet: PetState{
			Level:      user.PetLevel,
			Experience: user.PetExperience,
			Happiness:  user.PetHappiness,
		},
		Events:        events,
		Context:       ctx,
		CurrentStreak: currentStreak,
		Now:           now,
		Loc:           s.loc,
	}), nil
}

// habitAgeDays 返回习惯存在的天数，至少为 1，并截断明显异常的时间戳。
func habitAgeDays(createdAt, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24
	if days < 1 {
		return 1
	}
	if max := float64(maxFeatureAgeYears * 365); days > max {
		return max
	}
	return float64(int(days))
}

func encodeTimeOfDay(timeOfDay string) int {
	switch timeOfDay {
	case TimeOfDayAfternoon:
		return 1
	case TimeOfDayEvening:
		return 2
	case TimeOfDayNight:
		return 3
	default:
		return 0
	}
}

// contextOrAverage 优先取请求上下文的值，其次取事件窗口内的均值，最后落到中性默认 3。
func contextOrAverage(override *int, events []db.HabitEvent, pick func(db.HabitEvent) *int) float64 {
	if override != nil {
		return float64(*override)
	}

	sum, count := 0, 0
	for _, event := range events {
		if v := pick(event); v != nil {
			sum += *v
			count++
		}
	}
	if count == 0 {
		return neutralRating
	}
	return float64(sum) / float64(count)
}

// completionRate 计算最近 windowDays 天内满足周期数占窗口周期数的比例。
// daily 按天计；weekly/custom 按 ISO 周计（窗口取 windowDays/7 周，最少一周）。
// 空历史或零周期一律退化为 0，不会除零。
func completionRate(events []db.HabitEvent, frequency string, targetCount int, windowDays int, now time.Time, loc *time.Location) float64 {
	if windowDays <= 0 {
		return 0
	}

	required := 1
	periods := windowDays
	if frequency == db.FrequencyWeekly || frequency == db.FrequencyCustom {
		if targetCount > 1 {
			required = targetCount
		}
		periods = windowDays / 7
		if periods < 1 {
			periods = 1
		}
	}

	nowKey := periodKey(now, frequency, loc)
	oldestKey := nowKey - periods + 1

	counts := make(map[int]int)
	for _, event := range events {
		key := periodKey(event.CompletedAt, frequency, loc)
		if key >= oldestKey && key <= nowKey {
			counts[key]++
		}
	}

	satisfied := 0
	for _, count := range counts {
		if count >= required {
			satisfied++
		}
	}

	rate := float64(satisfied) / float64(periods)
	if rate > 1 {
		rate = 1
	}
	return rate
}
