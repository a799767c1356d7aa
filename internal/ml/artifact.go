package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SchemaVersion 是当前模型工件的格式版本。
// 特征顺序或序列化结构变更时必须递增，服务端据此拒绝不兼容的旧工件。
const SchemaVersion = 1

var (
	// ErrArtifactMissing 在工件文件不存在时返回
	ErrArtifactMissing = errors.New("model artifact not found")
	// ErrArtifactVersion 在工件版本与当前代码不兼容时返回
	ErrArtifactVersion = errors.New("model artifact schema version mismatch")
	// ErrArtifactFeatures 在工件的特征顺序与当前契约不一致时返回
	ErrArtifactFeatures = errors.New("model artifact feature order mismatch")
)

// Metrics 汇总留出集上的评估结果。
type Metrics struct {
	Accuracy   float64 `json:"accuracy"`
	AUC        float64 `json:"auc"`
	NumSamples int     `json:"n_samples"`
	NumTrain   int     `json:"n_train"`
	NumTest    int     `json:"n_test"`
}

// FeatureImportance 是一条（特征名，增益）记录。
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Artifact 是训练产出的完整模型工件：模型本体加特征顺序等元数据。
// 工件是服务端与训练端之间唯一的交接物，整体序列化为一个 JSON 文件。
type Artifact struct {
	SchemaVersion int         `json:"schema_version"`
	ModelID       string      `json:"model_id"`
	TrainedAt     time.Time   `json:"trained_at"`
	FeatureNames  []string    `json:"feature_names"`
	Params        TrainParams `json:"params"`
	Model         *Model      `json:"model"`
	Metrics       Metrics     `json:"metrics"`
}

// TopImportances 按增益降序返回前 n 条特征重要度；增益同分时按槽位顺序。
func (a *Artifact) TopImportances(n int) []FeatureImportance {
	items := make([]FeatureImportance, 0, NumFeatures)
	for i, name := range a.FeatureNames {
		items = append(items, FeatureImportance{Feature: name, Importance: a.Model.Gain[i]})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Importance > items[j].Importance
	})

	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// Save 将工件原子化写入 path：先写临时文件再重命名，
// 保证与训练并行的服务进程不会读到半截工件。
func (a *Artifact) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".habit_model-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish artifact: %w", err)
	}

	return nil
}

// LoadArtifact 读取并校验模型工件。
// 文件缺失、解析失败、版本不符、特征顺序不符分别返回可区分的错误。
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}

	if artifact.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrArtifactVersion, artifact.SchemaVersion, SchemaVersion)
	}

	if artifact.Model == nil || len(artifact.Model.Trees) == 0 {
		return nil, fmt.Errorf("parse artifact: model is empty")
	}

	if len(artifact.FeatureNames) != NumFeatures {
		return nil, fmt.Errorf("%w: %d features", ErrArtifactFeatures, len(artifact.FeatureNames))
	}
	for i, name := range artifact.FeatureNames {
		if name != FeatureNames[i] {
			return nil, fmt.Errorf("%w: slot %d is %s, want %s", ErrArtifactFeatures, i, name, FeatureNames[i])
		}
	}

	return &artifact, nil
}
