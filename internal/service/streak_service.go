package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/neurohabit/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStreakInconsistent 在缓存的连胜计数违反不变量（current > longest）时返回，
// 此时应以事件历史重新计算，而不是信任缓存值。
var ErrStreakInconsistent = errors.New("cached streak counters are inconsistent")

// StreakResult 是一次连胜计算的输出。
type StreakResult struct {
	Current int
	Longest int
}

// ComputeStreak 由有序事件历史推导当前/最长连胜，纯函数，不读时钟。
// 周期按习惯所有者的时区对齐：daily 为自然日，weekly/custom 为 ISO 周，
// 每周需达到 targetCount 次才算满足；daily 一次完成即满足当日。
// 包含 now 的周期若已满足则立即计入当前连胜；若未满足但尚未结束，
// 该周期被跳过而不中断连胜。对同一历史重复计算结果恒等。
func ComputeStreak(events []db.HabitEvent, frequency string, targetCount int, now time.Time, loc *time.Location) StreakResult {
	if loc == nil {
		loc = time.Local
	}

	required := 1
	if frequency == db.FrequencyWeekly || frequency == db.FrequencyCustom {
		if targetCount > 1 {
			required = targetCount
		}
	}

	counts := make(map[int]int, len(events))
	for _, event := range events {
		counts[periodKey(event.CompletedAt, frequency, loc)]++
	}

	satisfied := make([]int, 0, len(counts))
	for key, count := range counts {
		if count >= required {
			satisfied = append(satisfied, key)
		}
	}

	if len(satisfied) == 0 {
		return StreakResult{}
	}

	sort.Ints(satisfied)

	satisfiedSet := make(map[int]struct{}, len(satisfied))
	for _, key := range satisfied {
		satisfiedSet[key] = struct{}{}
	}

	// 最长连胜：一次正序扫描，统计连续满足周期的最大长度
	longest, run := 1, 1
	for i := 1; i < len(satisfied); i++ {
		if satisfied[i] == satisfied[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	// 当前连胜：从包含 now 的周期向前回溯；
	// 未满足的当前周期尚未结束，跳过但不中断
	current := 0
	key := periodKey(now, frequency, loc)
	if _, ok := satisfiedSet[key]; ok {
		current++
	}
	key--
	for {
		if _, ok := satisfiedSet[key]; !ok {
			break
		}
		current++
		key--
	}

	return StreakResult{Current: current, Longest: longest}
}

// periodKey 把时间点映射为周期序号：daily 为自 Unix 纪元起的天数，
// weekly/custom 为所在 ISO 周（周一起始）的序号。同周期内的事件自然合并。
func periodKey(t time.Time, frequency string, loc *time.Location) int {
	local := t.In(loc)
	day := civilDays(local.Date())

	if frequency == db.FrequencyWeekly || frequency == db.FrequencyCustom {
		// 回退到本周周一后再按周归一
		weekday := int(local.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := day - (weekday - 1)
		return monday / 7
	}

	return day
}

// civilDays 将日历日期折算为自 1970-01-01 起的天数，借道 UTC 规避夏令时偏移。
func civilDays(year int, month time.Month, day int) int {
	return int(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// StreakService 负责把连胜计算结果落回 Habit 行。
type StreakService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewStreakService 构造 StreakService，loc 为空时使用本地时区。
func NewStreakService(gdb *gorm.DB, loc *time.Location) *StreakService {
	if loc == nil {
		loc = time.Local
	}
	return &StreakService{db: gdb, loc: loc}
}

// Recompute 以事件历史为权威来源重算连胜并写回缓存计数。
// 必须在调用方的事务内对同一习惯串行执行；这里通过行锁保证。
func (s *StreakService) Recompute(tx *gorm.DB, habitID uint, now time.Time) (*db.Habit, error) {
	var habit db.Habit
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&habit, habitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("lock habit: %w", err)
	}

	events, err := loadHabitEvents(tx, habitID)
	if err != nil {
		return nil, err
	}

	result := ComputeStreak(events, habit.Frequency, habit.TargetCount, now, s.loc)

	habit.CurrentStreak = result.Current
	if result.Longest > habit.LongestStreak {
		habit.LongestStreak = result.Longest
	}
	if habit.CurrentStreak > habit.LongestStreak {
		habit.LongestStreak = habit.CurrentStreak
	}

	if err := tx.Model(&db.Habit{}).Where("id = ?", habit.ID).
		Updates(map[string]interface{}{
			"current_streak": habit.CurrentStreak,
			"longest_streak": habit.LongestStreak,
		}).Error; err != nil {
		return nil, fmt.Errorf("update streaks: %w", err)
	}

	return &habit, nil
}

// VerifyCached 检查缓存计数是否满足不变量，违反时返回 ErrStreakInconsistent。
// 只读路径（特征构建）据此决定是否回退到事件历史重算。
func VerifyCached(habit *db.Habit) error {
	if habit.CurrentStreak < 0 || habit.LongestStreak < 0 || habit.CurrentStreak > habit.LongestStreak {
		return fmt.Errorf("%w: current=%d longest=%d", ErrStreakInconsistent, habit.CurrentStreak, habit.LongestStreak)
	}
	return nil
}

func loadHabitEvents(tx *gorm.DB, habitID uint) ([]db.HabitEvent, error) {
	var events []db.HabitEvent
	if err := tx.Where("habit_id = ?", habitID).
		Order("completed_at ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load habit events: %w", err)
	}
	return events, nil
}
