package service

import (
	"fmt"
	"time"

	"github.com/neurohabit/internal/db"
	"gorm.io/gorm"
)

// DashboardService 聚合用户层面的只读统计，供仪表盘投影使用。
type DashboardService struct {
	db *gorm.DB
}

// UserStats 汇总仪表盘所需的基础统计数据。
type UserStats struct {
	TotalHabits      int64
	ActiveHabits     int64
	TotalCompletions int64
	AverageStreak    float64
	CompletionRate   float64
}

// NewDashboardService 构造 DashboardService
func NewDashboardService(gdb *gorm.DB) *DashboardService {
	return &DashboardService{db: gdb}
}

// Stats 计算用户的习惯总量、完成总量、平均连胜与近 7 天完成率。
// 完成率以活跃习惯每日一次为期望口径；无活跃习惯时退化为 0。
func (s *DashboardService) Stats(userID uint, now time.Time) (*UserStats, error) {
	stats := &UserStats{}

	if err := s.db.Model(&db.Habit{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalHabits).Error; err != nil {
		return nil, fmt.Errorf("count habits: %w", err)
	}

	if err := s.db.Model(&db.Habit{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&stats.ActiveHabits).Error; err != nil {
		return nil, fmt.Errorf("count active habits: %w", err)
	}

	if err := s.db.Model(&db.HabitEvent{}).
		Joins("JOIN habits ON habits.id = habit_events.habit_id").
		Where("habits.user_id = ?", userID).
		Count(&stats.TotalCompletions).Error; err != nil {
		return nil, fmt.Errorf("count completions: %w", err)
	}

	var avgStreak *float64
	if err := s.db.Model(&db.Habit{}).
		Select("AVG(current_streak)").
		Where("user_id = ?", userID).
		Scan(&avgStreak).Error; err != nil {
		return nil, fmt.Errorf("average streak: %w", err)
	}
	if avgStreak != nil {
		stats.AverageStreak = *avgStreak
	}

	weekAgo := now.AddDate(0, 0, -7)
	var recentCompletions int64
	if err := s.db.Model(&db.HabitEvent{}).
		Joins("JOIN habits ON habits.id = habit_events.habit_id").
		Where("habits.user_id = ? AND habit_events.completed_at >= ?", userID, weekAgo).
		Count(&recentCompletions).Error; err != nil {
		return nil, fmt.Errorf("count recent completions: %w", err)
	}

	expected := stats.ActiveHabits * 7
	if expected > 0 {
		stats.CompletionRate = float64(recentCompletions) / float64(expected) * 100
	}

	return stats, nil
}

// RecentEvents 返回用户最近的完成事件，跨习惯按时间倒序。
func (s *DashboardService) RecentEvents(userID uint, limit int) ([]db.HabitEvent, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var events []db.HabitEvent
	if err := s.db.
		Joins("JOIN habits ON habits.id = habit_events.habit_id").
		Where("habits.user_id = ?", userID).
		Order("habit_events.completed_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	return events, nil
}
