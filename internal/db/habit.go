package db

import (
	"time"

	"gorm.io/gorm"
)

// 习惯频率取值
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
	FrequencyCustom = "custom"
)

// Habit 定义了习惯模型
// Frequency 取 daily/weekly/custom，custom 表示每周完成 TargetCount 次
// DifficultyRating/ImportanceRating 为 1-5 的主观评分，供风险模型使用
// CurrentStreak/LongestStreak 为缓存的连胜计数，权威来源始终是事件历史
// 不变量：0 <= CurrentStreak <= LongestStreak
type Habit struct {
	gorm.Model
	UserID           uint   `gorm:"index;not null"`
	User             User   `gorm:"constraint:OnDelete:CASCADE"`
	Title            string `gorm:"not null"`
	Description      string
	Category         string
	Frequency        string `gorm:"default:daily"`
	TargetCount      int    `gorm:"default:1"`
	Color            string `gorm:"default:#3B82F6"`
	Icon             string `gorm:"default:⭐"`
	IsActive         bool   `gorm:"default:true"`
	CurrentStreak    int    `gorm:"default:0"`
	LongestStreak    int    `gorm:"default:0"`
	DifficultyRating int    `gorm:"default:3"`
	ImportanceRating int    `gorm:"default:3"`
}

// HabitEvent 记录一次习惯完成事件
// Habit + CompletedAt 采用唯一索引：同一逻辑完成的重复提交（客户端重试）
// 在事件落库前即被拒绝，核心计算因此无需自查重
// TimeOfDay/DayOfWeek 为落库时派生的上下文特征，事件创建后不可变
type HabitEvent struct {
	gorm.Model
	HabitID     uint      `gorm:"index;index:idx_habit_event_unique,unique;not null"`
	Habit       Habit     `gorm:"constraint:OnDelete:CASCADE"`
	CompletedAt time.Time `gorm:"index:idx_habit_event_unique,unique;not null"`
	Notes       string
	Mood        *int
	EnergyLevel *int
	TimeOfDay   string
	DayOfWeek   int
}

// TableName 重写确保唯一索引作用到 habit_id + completed_at
func (HabitEvent) TableName() string {
	return "habit_events"
}
