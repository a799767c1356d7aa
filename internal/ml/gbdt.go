package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// TrainParams 控制梯度提升树的拟合过程。
type TrainParams struct {
	NumTrees        int     `json:"num_trees"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	FeatureFraction float64 `json:"feature_fraction"`
	BaggingFraction float64 `json:"bagging_fraction"`
	Seed            int64   `json:"seed"`
}

// DefaultTrainParams 返回一组经验上足够稳的默认参数。
func DefaultTrainParams() TrainParams {
	return TrainParams{
		NumTrees:        100,
		LearningRate:    0.05,
		MaxDepth:        4,
		MinSamplesLeaf:  20,
		FeatureFraction: 0.9,
		BaggingFraction: 0.8,
		Seed:            42,
	}
}

// TreeNode 是回归树的一个节点；Leaf 为真时只有 Value 有效。
type TreeNode struct {
	Leaf      bool      `json:"leaf"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
}

func (n *TreeNode) eval(v Vector) float64 {
	for !n.Leaf {
		if v[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// Model 是训练完成的梯度提升分类器。
// 各棵树的叶子输出按 LearningRate 缩放后累加到 Bias 上，经 sigmoid 得到正类概率。
// Gain 为训练期按分裂增益累计的全局特征重要度。
type Model struct {
	Bias         float64              `json:"bias"`
	LearningRate float64              `json:"learning_rate"`
	Trees        []*TreeNode          `json:"trees"`
	Gain         [NumFeatures]float64 `json:"gain"`
}

// ErrEmptyDataset 在训练集为空时返回
var ErrEmptyDataset = errors.New("training dataset is empty")

// 叶子权重的 L2 正则系数
const regLambda = 1.0

// TrainGBDT 在给定样本上拟合二分类梯度提升树（对数损失，牛顿法叶子权重）。
// 相同的样本与参数（含 Seed）产出逐位相同的模型。
func TrainGBDT(examples []Example, params TrainParams) (*Model, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyDataset
	}

	n := len(examples)
	rng := rand.New(rand.NewSource(params.Seed))

	// 初始分数取正类先验的对数几率
	positives := 0
	for _, ex := range examples {
		positives += ex.Label
	}
	prior := clampFloat(float64(positives)/float64(n), 1e-6, 1-1e-6)
	bias := math.Log(prior / (1 - prior))

	model := &Model{
		Bias:         bias,
		LearningRate: params.LearningRate,
		Trees:        make([]*TreeNode, 0, params.NumTrees),
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = bias
	}

	grads := make([]float64, n)
	hess := make([]float64, n)
	allRows := make([]int, n)
	for i := range allRows {
		allRows[i] = i
	}

	for t := 0; t < params.NumTrees; t++ {
		for i, ex := range examples {
			p := sigmoid(scores[i])
			grads[i] = float64(ex.Label) - p
			hess[i] = p * (1 - p)
		}

		rows := sampleRows(rng, allRows, params.BaggingFraction)
		features := sampleFeatures(rng, params.FeatureFraction)

		builder := &treeBuilder{
			examples: examples,
			grads:    grads,
			hess:     hess,
			features: features,
			params:   params,
			gain:     &model.Gain,
		}
		root := builder.build(rows, 0)
		model.Trees = append(model.Trees, root)

		for i, ex := range examples {
			scores[i] += params.LearningRate * root.eval(ex.Features)
		}
	}

	return model, nil
}

// Predict 返回正类（放弃）概率。
func (m *Model) Predict(v Vector) float64 {
	score := m.Bias
	for _, tree := range m.Trees {
		score += m.LearningRate * tree.eval(v)
	}
	return sigmoid(score)
}

type treeBuilder struct {
	examples []Example
	grads    []float64
	hess     []float64
	features []int
	params   TrainParams
	gain     *[NumFeatures]float64
}

func (b *treeBuilder) build(rows []int, depth int) *TreeNode {
	sumG, sumH := 0.0, 0.0
	for _, r := range rows {
		sumG += b.grads[r]
		sumH += b.hess[r]
	}

	if depth >= b.params.MaxDepth || len(rows) < 2*b.params.MinSamplesLeaf {
		return &TreeNode{Leaf: true, Value: sumG / (sumH + regLambda)}
	}

	feature, threshold, gain, ok := b.bestSplit(rows, sumG, sumH)
	if !ok {
		return &TreeNode{Leaf: true, Value: sumG / (sumH + regLambda)}
	}

	b.gain[feature] += gain

	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, r := range rows {
		if b.examples[r].Features[feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      b.build(left, depth+1),
		Right:     b.build(right, depth+1),
	}
}

// bestSplit 在候选特征上扫描全部分裂点，返回增益最大的一个。
// 增益采用带 L2 正则的二阶近似：GL²/(HL+λ) + GR²/(HR+λ) − G²/(H+λ)。
func (b *treeBuilder) bestSplit(rows []int, sumG, sumH float64) (feature int, threshold, gain float64, ok bool) {
	parentScore := sumG * sumG / (sumH + regLambda)
	bestGain := 1e-12

	order := make([]int, len(rows))

	for _, f := range b.features {
		copy(order, rows)
		sort.Slice(order, func(i, j int) bool {
			return b.examples[order[i]].Features[f] < b.examples[order[j]].Features[f]
		})

		leftG, leftH := 0.0, 0.0
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			leftG += b.grads[r]
			leftH += b.hess[r]

			cur := b.examples[r].Features[f]
			next := b.examples[order[i+1]].Features[f]
			if cur == next {
				continue
			}
			if i+1 < b.params.MinSamplesLeaf || len(order)-i-1 < b.params.MinSamplesLeaf {
				continue
			}

			rightG := sumG - leftG
			rightH := sumH - leftH
			candidate := leftG*leftG/(leftH+regLambda) + rightG*rightG/(rightH+regLambda) - parentScore
			if candidate > bestGain {
				bestGain = candidate
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}

	return feature, threshold, bestGain, ok
}

func sampleRows(rng *rand.Rand, all []int, fraction float64) []int {
	if fraction >= 1 || fraction <= 0 {
		return all
	}

	k := int(math.Round(float64(len(all)) * fraction))
	if k < 1 {
		k = 1
	}

	shuffled := make([]int, len(all))
	copy(shuffled, all)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	picked := shuffled[:k]
	sort.Ints(picked)
	return picked
}

func sampleFeatures(rng *rand.Rand, fraction float64) []int {
	all := make([]int, NumFeatures)
	for i := range all {
		all[i] = i
	}

	if fraction >= 1 || fraction <= 0 {
		return all
	}

	k := int(math.Round(NumFeatures * fraction))
	if k < 1 {
		k = 1
	}

	rng.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})

	picked := all[:k]
	sort.Ints(picked)
	return picked
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
