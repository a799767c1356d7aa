package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neurohabit/internal/db"
	"github.com/neurohabit/internal/service"
)

const defaultEventPageSize = 30

type eventPayload struct {
	CompletedAt *time.Time `json:"completed_at"`
	Notes       string     `json:"notes"`
	Mood        *int       `json:"mood"`
	EnergyLevel *int       `json:"energy_level"`
	TimeOfDay   string     `json:"time_of_day"`
}

// LogEvent 记录一次习惯完成，返回事件、最新连胜与宠物状态
func (a *API) LogEvent(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload eventPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	result, err := a.events.Log(habitID, user.ID, service.EventInput{
		CompletedAt: payload.CompletedAt,
		Notes:       payload.Notes,
		Mood:        payload.Mood,
		EnergyLevel: payload.EnergyLevel,
		TimeOfDay:   payload.TimeOfDay,
	}, a.now())
	if err != nil {
		handleEventError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"event": eventToPayload(result.Event),
		"habit": gin.H{
			"id":             result.Habit.ID,
			"current_streak": result.Habit.CurrentStreak,
			"longest_streak": result.Habit.LongestStreak,
		},
		"pet": gin.H{
			"level":      result.Pet.Level,
			"experience": result.Pet.Experience,
			"happiness":  result.Pet.Happiness,
		},
	})
}

// ListEvents 返回习惯最近的完成记录
func (a *API) ListEvents(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	events, err := a.events.ListRecent(habitID, user.ID, defaultEventPageSize)
	if err != nil {
		handleEventError(c, err)
		return
	}

	items := make([]gin.H, 0, len(events))
	for _, event := range events {
		items = append(items, eventToPayload(event))
	}

	c.JSON(http.StatusOK, gin.H{"events": items})
}

func eventToPayload(event db.HabitEvent) gin.H {
	return gin.H{
		"id":           event.ID,
		"habit_id":     event.HabitID,
		"completed_at": event.CompletedAt.Format(time.RFC3339),
		"notes":        event.Notes,
		"mood":         event.Mood,
		"energy_level": event.EnergyLevel,
		"time_of_day":  event.TimeOfDay,
		"day_of_week":  event.DayOfWeek,
	}
}

func handleEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrDuplicateCompletion):
		respondError(c, http.StatusConflict, "该时间点已记录过完成")
	case errors.Is(err, service.ErrInvalidEventRating):
		respondError(c, http.StatusBadRequest, "心情与精力评分应在 1-5 之间")
	case errors.Is(err, service.ErrInvalidTimeOfDay):
		respondError(c, http.StatusBadRequest, "无效的时段取值")
	default:
		respondError(c, http.StatusInternalServerError, "记录完成失败")
	}
}
