// Package ml 实现风险模型的离线训练与在线推理：
// 合成数据生成、梯度提升树、带版本号的模型工件。
package ml

// NumFeatures 是特征向量的固定长度
const NumFeatures = 14

// 特征向量各槽位的下标。顺序即契约：训练出的模型按该顺序理解输入，
// 任何新增或重排都必须提升工件的 SchemaVersion。
const (
	FeatDifficulty = iota
	FeatImportance
	FeatHabitAgeDays
	FeatTimeOfDay
	FeatAvgMood
	FeatAvgEnergy
	FeatDayOfWeek
	FeatIsWeekend
	FeatCompletionRate30d
	FeatCompletionRate7d
	FeatCurrentStreak
	FeatPetLevel
	FeatPetHappiness
	FeatTargetCount
)

// FeatureNames 按槽位顺序给出人类可读的特征名，用于工件元数据与重要度输出。
var FeatureNames = [NumFeatures]string{
	"difficulty_rating",
	"importance_rating",
	"habit_age_days",
	"time_of_day",
	"avg_mood",
	"avg_energy",
	"day_of_week",
	"is_weekend",
	"completion_rate_30d",
	"completion_rate_7d",
	"current_streak",
	"pet_level",
	"pet_happiness",
	"target_count",
}

// Vector 是一条定长特征向量
type Vector [NumFeatures]float64
