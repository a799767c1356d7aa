package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neurohabit/internal/db"
	"github.com/neurohabit/internal/ml"
	"github.com/neurohabit/internal/service"
)

type predictPayload struct {
	HabitID uint                  `json:"habit_id"`
	Context predictContextPayload `json:"context"`
}

type predictContextPayload struct {
	Mood        *int   `json:"mood"`
	EnergyLevel *int   `json:"energy_level"`
	TimeOfDay   string `json:"time_of_day"`
}

// PredictRisk 对单个习惯执行放弃风险评估并持久化预测记录
func (a *API) PredictRisk(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	// 上下文字段采用严格绑定：未知键直接拒绝，避免拼写错误静默落到默认值
	var payload predictPayload
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "请求参数不合法")
		return
	}
	if payload.HabitID == 0 {
		respondError(c, http.StatusBadRequest, "缺少 habit_id")
		return
	}

	habit, err := a.habits.Get(payload.HabitID, user.ID)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	features, err := a.features.BuildForHabit(habit, user, service.FeatureContext{
		Mood:        payload.Context.Mood,
		EnergyLevel: payload.Context.EnergyLevel,
		TimeOfDay:   payload.Context.TimeOfDay,
	}, a.now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "特征构建失败")
		return
	}

	result, err := a.predictor.Predict(features)
	if err != nil {
		if errors.Is(err, service.ErrModelNotReady) {
			respondError(c, http.StatusServiceUnavailable, "模型尚未就绪，请先运行 trainer 生成模型工件")
			return
		}
		respondError(c, http.StatusInternalServerError, "预测失败")
		return
	}

	featuresJSON, err := json.Marshal(featureMap(features))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "预测记录序列化失败")
		return
	}

	record := db.Prediction{
		UserID:         user.ID,
		HabitID:        habit.ID,
		RiskScore:      result.RiskScore,
		PredictionType: "abandonment_risk",
		FeaturesUsed:   string(featuresJSON),
		ModelID:        result.ModelID,
	}
	if err := a.db.Create(&record).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "预测记录保存失败")
		return
	}

	importances := make([]gin.H, 0, len(result.FeatureImportance))
	for _, item := range result.FeatureImportance {
		importances = append(importances, gin.H{
			"feature":    item.Feature,
			"importance": item.Importance,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"habit_id":            habit.ID,
		"risk_score":          result.RiskScore,
		"success_probability": result.SuccessProbability,
		"tier":                result.Tier,
		"recommendation":      result.Recommendation,
		"feature_importance":  importances,
		"model_id":            result.ModelID,
	})
}

// featureMap 把特征向量展开为按名索引的映射，便于审计预测输入
func featureMap(features ml.Vector) map[string]float64 {
	out := make(map[string]float64, ml.NumFeatures)
	for i, name := range ml.FeatureNames {
		out[name] = features[i]
	}
	return out
}
