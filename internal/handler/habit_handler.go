package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neurohabit/internal/db"
	"github.com/neurohabit/internal/service"
)

type habitPayload struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Frequency        string `json:"frequency"`
	TargetCount      int    `json:"target_count"`
	Color            string `json:"color"`
	Icon             string `json:"icon"`
	IsActive         *bool  `json:"is_active"`
	DifficultyRating int    `json:"difficulty_rating"`
	ImportanceRating int    `json:"importance_rating"`
}

// ListHabits 返回当前用户的习惯列表
func (a *API) ListHabits(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	habits, err := a.habits.List(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}

	c.JSON(http.StatusOK, gin.H{"habits": items})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Get(id, user.ID)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	input, ok := parseHabitInput(c)
	if !ok {
		return
	}

	habit, err := a.habits.Create(user.ID, input)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habitToPayload(*habit)})
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	input, ok := parseHabitInput(c)
	if !ok {
		return
	}

	habit, err := a.habits.Update(id, user.ID, input)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// DeleteHabit 删除习惯
func (a *API) DeleteHabit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habits.Delete(id, user.ID); err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func parseHabitInput(c *gin.Context) (service.HabitInput, bool) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return service.HabitInput{}, false
	}

	if payload.Frequency == "" {
		payload.Frequency = db.FrequencyDaily
	}
	if payload.TargetCount == 0 {
		payload.TargetCount = 1
	}

	return service.HabitInput{
		Title:            payload.Title,
		Description:      payload.Description,
		Category:         payload.Category,
		Frequency:        payload.Frequency,
		TargetCount:      payload.TargetCount,
		Color:            payload.Color,
		Icon:             payload.Icon,
		IsActive:         payload.IsActive,
		DifficultyRating: payload.DifficultyRating,
		ImportanceRating: payload.ImportanceRating,
	}, true
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":                habit.ID,
		"title":             habit.Title,
		"description":       habit.Description,
		"category":          habit.Category,
		"frequency":         habit.Frequency,
		"target_count":      habit.TargetCount,
		"color":             habit.Color,
		"icon":              habit.Icon,
		"is_active":         habit.IsActive,
		"current_streak":    habit.CurrentStreak,
		"longest_streak":    habit.LongestStreak,
		"difficulty_rating": habit.DifficultyRating,
		"importance_rating": habit.ImportanceRating,
		"created_at":        habit.CreatedAt.Format(time.RFC3339),
	}
}

func handleHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitInvalidFrequency):
		respondError(c, http.StatusBadRequest, "频率配置无效")
	case errors.Is(err, service.ErrHabitInvalidRating):
		respondError(c, http.StatusBadRequest, "评分应在 1-5 之间")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
