package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neurohabit/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在或不属于当前用户时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidFrequency 当频率配置异常时返回
	ErrHabitInvalidFrequency = errors.New("invalid habit frequency configuration")
	// ErrHabitInvalidRating 当难度/重要性评分超出 1-5 时返回
	ErrHabitInvalidRating = errors.New("invalid habit rating: must be between 1 and 5")
)

// HabitService 负责 Habit 数据的增删改查
// 所有操作都以 userID 为作用域，跨用户访问一律视为不存在
// Frequency 支持 daily/weekly/custom，custom 表示每周 TargetCount 次

type HabitService struct {
	db *gorm.DB
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Title            string
	Description      string
	Category         string
	Frequency        string
	TargetCount      int
	Color            string
	Icon             string
	IsActive         *bool
	DifficultyRating int
	ImportanceRating int
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// List 返回用户的全部习惯，按创建时间倒序
func (s *HabitService) List(userID uint) ([]db.Habit, error) {
	var habits []db.Habit
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// Get 根据 ID 获取用户的习惯
func (s *HabitService) Get(id, userID uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯
func (s *HabitService) Create(userID uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:           userID,
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		Category:         strings.TrimSpace(input.Category),
		Frequency:        normalizeFrequency(input.Frequency),
		TargetCount:      input.TargetCount,
		Color:            strings.TrimSpace(input.Color),
		Icon:             strings.TrimSpace(input.Icon),
		IsActive:         true,
		DifficultyRating: defaultRating(input.DifficultyRating),
		ImportanceRating: defaultRating(input.ImportanceRating),
	}
	if input.IsActive != nil {
		habit.IsActive = *input.IsActive
	}
	if habit.Color == "" {
		habit.Color = "#3B82F6"
	}
	if habit.Icon == "" {
		habit.Icon = "⭐"
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯；连胜计数只能由事件路径改写，这里不触碰
func (s *HabitService) Update(id, userID uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	existing, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.Description = strings.TrimSpace(input.Description)
	existing.Category = strings.TrimSpace(input.Category)
	existing.Frequency = normalizeFrequency(input.Frequency)
	existing.TargetCount = input.TargetCount
	existing.DifficultyRating = defaultRating(input.DifficultyRating)
	existing.ImportanceRating = defaultRating(input.ImportanceRating)
	if color := strings.TrimSpace(input.Color); color != "" {
		existing.Color = color
	}
	if icon := strings.TrimSpace(input.Icon); icon != "" {
		existing.Icon = icon
	}
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return existing, nil
}

// Delete 删除用户的习惯及其事件
func (s *HabitService) Delete(id, userID uint) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&db.Habit{})
	if result.Error != nil {
		return fmt.Errorf("delete habit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrHabitNotFound
	}
	return nil
}

func validateHabitInput(input HabitInput) error {
	freq := normalizeFrequency(input.Frequency)
	if freq != db.FrequencyDaily && freq != db.FrequencyWeekly && freq != db.FrequencyCustom {
		return fmt.Errorf("%w: unsupported frequency %s", ErrHabitInvalidFrequency, input.Frequency)
	}

	if input.TargetCount <= 0 {
		return fmt.Errorf("%w: target count must be positive", ErrHabitInvalidFrequency)
	}

	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("habit title is required")
	}

	if !validOptionalRating(input.DifficultyRating) || !validOptionalRating(input.ImportanceRating) {
		return ErrHabitInvalidRating
	}

	return nil
}

func normalizeFrequency(frequency string) string {
	return strings.TrimSpace(strings.ToLower(frequency))
}

// validOptionalRating 允许零值表示“未指定”，由 defaultRating 落到默认 3
func validOptionalRating(rating int) bool {
	return rating == 0 || (rating >= 1 && rating <= 5)
}

func defaultRating(rating int) int {
	if rating == 0 {
		return 3
	}
	return rating
}
