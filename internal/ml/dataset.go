package ml

import (
	"math"
	"math/rand"
)

// Example 是一条带标签的训练样本，label=1 表示习惯在观察窗口内被放弃。
type Example struct {
	Features Vector
	Label    int
}

// 合成数据的潜在评分权重。评分刻画“坚持下去的可能”，
// 标签在取反后表示放弃风险，因此已知的真值关系可以被测试验证。
const (
	latentWeightRate30     = 0.30
	latentWeightDifficulty = 0.20
	latentWeightImportance = 0.20
	latentWeightStreak     = 0.15
	latentWeightEnergy     = 0.10
	latentWeightHappiness  = 0.05
	latentNoiseSigma       = 0.10
	latentThreshold        = 0.5
)

// GenerateDataset 按固定分布生成 n 条合成样本。
// 同一 seed 生成的序列逐位相同；分布如下：
//   - difficulty/importance 均匀取 {1..5}
//   - habit_age_days 指数分布（均值 60 天），截断到 [1, 365]
//   - time_of_day 均匀取 {0..3}，day_of_week 均匀取 {0..6}，is_weekend 由其派生
//   - avg_mood/avg_energy 均匀取 [1, 5]
//   - completion_rate_30d/7d 均匀取 [0, 1]
//   - current_streak 均匀取 {0..99}，pet_level 均匀取 {1..50}
//   - pet_happiness 均匀取 {0..100}，target_count 均匀取 {1..7}
func GenerateDataset(seed int64, n int) []Example {
	rng := rand.New(rand.NewSource(seed))
	examples := make([]Example, 0, n)

	for i := 0; i < n; i++ {
		var v Vector
		v[FeatDifficulty] = float64(1 + rng.Intn(5))
		v[FeatImportance] = float64(1 + rng.Intn(5))
		v[FeatHabitAgeDays] = clampFloat(math.Floor(rng.ExpFloat64()*60)+1, 1, 365)
		v[FeatTimeOfDay] = float64(rng.Intn(4))
		v[FeatAvgMood] = 1 + rng.Float64()*4
		v[FeatAvgEnergy] = 1 + rng.Float64()*4
		v[FeatDayOfWeek] = float64(rng.Intn(7))
		if v[FeatDayOfWeek] >= 5 {
			v[FeatIsWeekend] = 1
		}
		v[FeatCompletionRate30d] = rng.Float64()
		v[FeatCompletionRate7d] = rng.Float64()
		v[FeatCurrentStreak] = float64(rng.Intn(100))
		v[FeatPetLevel] = float64(1 + rng.Intn(50))
		v[FeatPetHappiness] = float64(rng.Intn(101))
		v[FeatTargetCount] = float64(1 + rng.Intn(7))

		score := latentScore(v) + rng.NormFloat64()*latentNoiseSigma
		score = clampFloat(score, 0, 1)

		label := 0
		if score <= latentThreshold {
			// 低坚持评分意味着放弃
			label = 1
		}

		examples = append(examples, Example{Features: v, Label: label})
	}

	return examples
}

// latentScore 计算样本的“坚持评分”，高完成率、低难度、高重要性更可能坚持。
func latentScore(v Vector) float64 {
	score := latentWeightRate30 * v[FeatCompletionRate30d]
	score += latentWeightDifficulty * (6 - v[FeatDifficulty]) / 5
	score += latentWeightImportance * v[FeatImportance] / 5
	if v[FeatCurrentStreak] > 7 {
		score += latentWeightStreak
	}
	score += latentWeightEnergy * v[FeatAvgEnergy] / 5
	score += latentWeightHappiness * v[FeatPetHappiness] / 100
	return score
}

// Split 以固定 seed 打乱后按 testFraction 划分训练/测试集。
func Split(examples []Example, seed int64, testFraction float64) (train, test []Example) {
	if testFraction < 0 {
		testFraction = 0
	}
	if testFraction > 1 {
		testFraction = 1
	}

	shuffled := make([]Example, len(examples))
	copy(shuffled, examples)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := len(shuffled) - int(math.Round(float64(len(shuffled))*testFraction))
	if cut < 0 {
		cut = 0
	}
	if cut > len(shuffled) {
		cut = len(shuffled)
	}

	return shuffled[:cut], shuffled[cut:]
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
