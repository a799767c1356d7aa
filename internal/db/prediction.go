package db

import (
	"gorm.io/gorm"
)

// Prediction 记录一次已返回给调用方的风险评估
// 仅用于事后分析，推理路径本身不依赖该表
// FeaturesUsed 为特征向量的 JSON 文本，ModelID 对应模型工件的唯一标识
type Prediction struct {
	gorm.Model
	UserID         uint `gorm:"index;not null"`
	HabitID        uint `gorm:"index"`
	RiskScore      float64
	PredictionType string
	FeaturesUsed   string
	ModelID        string
}
