package ml

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TrainConfig 描述一次完整的离线训练。
type TrainConfig struct {
	Seed         int64
	NumSamples   int
	TestFraction float64
	Params       TrainParams
}

// DefaultTrainConfig 返回默认训练配置：5000 条样本，80/20 划分，seed=42。
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Seed:         42,
		NumSamples:   5000,
		TestFraction: 0.2,
		Params:       DefaultTrainParams(),
	}
}

// Train 生成合成数据、划分训练/测试集、拟合模型并在留出集上评估，
// 返回可直接持久化的工件。同一配置（含各处 seed）的结果完全可复现。
func Train(cfg TrainConfig) (*Artifact, error) {
	if cfg.NumSamples <= 0 {
		return nil, fmt.Errorf("invalid sample count %d", cfg.NumSamples)
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		return nil, fmt.Errorf("invalid test fraction %v", cfg.TestFraction)
	}

	examples := GenerateDataset(cfg.Seed, cfg.NumSamples)
	train, test := Split(examples, cfg.Seed, cfg.TestFraction)
	if len(train) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("split produced empty set: train=%d test=%d", len(train), len(test))
	}

	params := cfg.Params
	if params.NumTrees <= 0 {
		params = DefaultTrainParams()
	}
	params.Seed = cfg.Seed

	model, err := TrainGBDT(train, params)
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	metrics := Evaluate(model, test)
	metrics.NumSamples = len(examples)
	metrics.NumTrain = len(train)
	metrics.NumTest = len(test)

	return &Artifact{
		SchemaVersion: SchemaVersion,
		ModelID:       uuid.NewString(),
		TrainedAt:     time.Now().UTC(),
		FeatureNames:  FeatureNames[:],
		Params:        params,
		Model:         model,
		Metrics:       metrics,
	}, nil
}

// Evaluate 计算模型在样本集上的准确率与 AUC-ROC。
func Evaluate(model *Model, examples []Example) Metrics {
	if len(examples) == 0 {
		return Metrics{}
	}

	probs := make([]float64, len(examples))
	correct := 0
	for i, ex := range examples {
		probs[i] = model.Predict(ex.Features)
		predicted := 0
		if probs[i] > 0.5 {
			predicted = 1
		}
		if predicted == ex.Label {
			correct++
		}
	}

	return Metrics{
		Accuracy: float64(correct) / float64(len(examples)),
		AUC:      aucROC(probs, examples),
	}
}

// aucROC 以秩和（Mann-Whitney U）方式计算 AUC，概率相同的样本计半分。
func aucROC(probs []float64, examples []Example) float64 {
	type scored struct {
		prob  float64
		label int
	}

	items := make([]scored, len(examples))
	positives, negatives := 0, 0
	for i, ex := range examples {
		items[i] = scored{prob: probs[i], label: ex.Label}
		if ex.Label == 1 {
			positives++
		} else {
			negatives++
		}
	}

	if positives == 0 || negatives == 0 {
		return 0
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].prob < items[j].prob
	})

	// 平均秩处理并列分数
	ranks := make([]float64, len(items))
	for i := 0; i < len(items); {
		j := i
		for j < len(items) && items[j].prob == items[i].prob {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[k] = avg
		}
		i = j
	}

	rankSum := 0.0
	for i, item := range items {
		if item.label == 1 {
			rankSum += ranks[i]
		}
	}

	u := rankSum - float64(positives)*float64(positives+1)/2
	return u / (float64(positives) * float64(negatives))
}
