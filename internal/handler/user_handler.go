package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type userUpdatePayload struct {
	FullName *string `json:"full_name"`
}

// CurrentUserProfile 返回当前登录用户的资料与宠物状态
func (a *API) CurrentUserProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// UpdateCurrentUser 更新当前用户的可编辑资料
func (a *API) UpdateCurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	var payload userUpdatePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	updates := map[string]interface{}{}
	if payload.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*payload.FullName)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
		return
	}

	if err := a.db.Model(user).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "更新用户资料失败")
		return
	}
	if payload.FullName != nil {
		user.FullName = strings.TrimSpace(*payload.FullName)
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// Dashboard 汇总用户的习惯统计与最近完成事件
func (a *API) Dashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	stats, err := a.dashboard.Stats(user.ID, a.now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取仪表盘数据失败")
		return
	}

	events, err := a.dashboard.RecentEvents(user.ID, defaultEventPageSize)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取最近记录失败")
		return
	}

	recent := make([]gin.H, 0, len(events))
	for _, event := range events {
		recent = append(recent, eventToPayload(event))
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": gin.H{
			"total_habits":      stats.TotalHabits,
			"active_habits":     stats.ActiveHabits,
			"total_completions": stats.TotalCompletions,
			"average_streak":    stats.AverageStreak,
			"completion_rate":   stats.CompletionRate,
		},
		"recent_events": recent,
		"pet": gin.H{
			"level":      user.PetLevel,
			"experience": user.PetExperience,
			"happiness":  user.PetHappiness,
		},
	})
}
