package service

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/neurohabit/internal/ml"
)

// ErrModelNotReady 在模型工件缺失、损坏或版本不符时返回。
// 调用方应向操作者给出“先训练模型”的明确提示，绝不以伪造分数兜底。
var ErrModelNotReady = errors.New("model not ready")

// 返回给调用方的重要度条数
const topImportanceCount = 5

// RecommendationRule 是一条按风险分数匹配的建议规则。
type RecommendationRule struct {
	MinScore float64
	Tier     string
	Message  string
}

// 风险层级
const (
	TierHighRisk     = "high_risk"
	TierModerateRisk = "moderate_risk"
	TierOnTrack      = "on_track"
)

// DefaultRecommendationRules 返回默认规则表，按 MinScore 降序排列，
// 阈值与文案集中在这里调整，推理代码不感知具体分界。
func DefaultRecommendationRules() []RecommendationRule {
	return []RecommendationRule{
		{
			MinScore: 0.7,
			Tier:     TierHighRisk,
			Message:  "This habit needs attention. Consider breaking it into smaller steps, adjusting the timing, or seeking support from the community.",
		},
		{
			MinScore: 0.4,
			Tier:     TierModerateRisk,
			Message:  "You're doing well, but there's room for improvement. Try to maintain consistency in your completions.",
		},
		{
			MinScore: 0,
			Tier:     TierOnTrack,
			Message:  "Great momentum! Keep up the excellent work. Your habit is on track.",
		},
	}
}

// PredictionResult 是一次风险评估的完整输出，临时对象，按请求创建即弃。
type PredictionResult struct {
	RiskScore          float64
	SuccessProbability float64
	FeatureImportance  []ml.FeatureImportance
	Recommendation     string
	Tier               string
	ModelID            string
}

// loadedModel 把工件与装载时一次性算好的全局重要度打包为只读快照。
type loadedModel struct {
	artifact *ml.Artifact
	top      []ml.FeatureImportance
}

// PredictorService 持有当前模型工件并对外提供推理。
// 工件引用通过原子指针整体替换：重训后 Reload 换入新快照，
// 进行中的推理始终看到完整的旧模型或完整的新模型。
type PredictorService struct {
	path    string
	rules   []RecommendationRule
	current atomic.Pointer[loadedModel]
	loadMu  sync.Mutex
}

// NewPredictorService 构造 PredictorService；模型在首次调用或显式 Load 时装载。
func NewPredictorService(modelPath string, rules []RecommendationRule) *PredictorService {
	if len(rules) == 0 {
		rules = DefaultRecommendationRules()
	}
	return &PredictorService{path: modelPath, rules: rules}
}

// Load 装载（或重新装载）模型工件并原子替换当前引用。
func (s *PredictorService) Load() error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	artifact, err := ml.LoadArtifact(s.path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrModelNotReady, err)
	}

	s.current.Store(&loadedModel{
		artifact: artifact,
		top:      artifact.TopImportances(topImportanceCount),
	})
	return nil
}

// Reload 与 Load 等价，语义上供重训后换入新工件使用。
func (s *PredictorService) Reload() error {
	return s.Load()
}

// Ready 报告当前是否有可用模型。
func (s *PredictorService) Ready() bool {
	return s.current.Load() != nil
}

// ModelID 返回当前工件的唯一标识，未装载时为空串。
func (s *PredictorService) ModelID() string {
	if m := s.current.Load(); m != nil {
		return m.artifact.ModelID
	}
	return ""
}

// Predict 对特征向量执行纯推理：对数据模型只读，重复调用结果恒等。
// risk_score 为正类（放弃）概率，防御性钳制到 [0,1]。
func (s *PredictorService) Predict(features ml.Vector) (*PredictionResult, error) {
	m := s.current.Load()
	if m == nil {
		if err := s.Load(); err != nil {
			return nil, err
		}
		m = s.current.Load()
	}

	risk := m.artifact.Model.Predict(features)
	if risk < 0 {
		risk = 0
	}
	if risk > 1 {
		risk = 1
	}

	rule := s.matchRule(risk)

	importance := make([]ml.FeatureImportance, len(m.top))
	copy(importance, m.top)

	return &PredictionResult{
		RiskScore:          risk,
		SuccessProbability: 1 - risk,
		FeatureImportance:  importance,
		Recommendation:     rule.Message,
		Tier:               rule.Tier,
		ModelID:            m.artifact.ModelID,
	}, nil
}

func (s *PredictorService) matchRule(risk float64) RecommendationRule {
	for _, rule := range s.rules {
		if risk >= rule.MinScore {
			return rule
		}
	}
	return s.rules[len(s.rules)-1]
}
