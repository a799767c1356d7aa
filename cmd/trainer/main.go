package main

import (
	"flag"
	"log"

	"github.com/neurohabit/internal/ml"
)

// 离线训练入口：生成合成数据集、训练 GBDT 模型并落盘为版本化工件。
// 服务端重启或调用 Reload 后即可使用新模型。
func main() {
	cfg := ml.DefaultTrainConfig()

	output := flag.String("output", "models/habit_model.json", "模型工件输出路径")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "随机种子，固定种子可复现训练")
	flag.IntVar(&cfg.NumSamples, "samples", cfg.NumSamples, "合成样本数量")
	flag.Float64Var(&cfg.TestFraction, "test-fraction", cfg.TestFraction, "测试集比例")
	flag.IntVar(&cfg.Params.NumTrees, "trees", cfg.Params.NumTrees, "树的数量")
	flag.Float64Var(&cfg.Params.LearningRate, "learning-rate", cfg.Params.LearningRate, "学习率")
	flag.Parse()

	artifact, err := ml.Train(cfg)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	if err := artifact.Save(*output); err != nil {
		log.Fatalf("failed to save model artifact: %v", err)
	}

	log.Printf("model %s saved to %s", artifact.ModelID, *output)
	log.Printf("samples=%d train=%d test=%d accuracy=%.4f auc=%.4f",
		artifact.Metrics.NumSamples, artifact.Metrics.NumTrain, artifact.Metrics.NumTest,
		artifact.Metrics.Accuracy, artifact.Metrics.AUC)

	for _, item := range artifact.TopImportances(5) {
		log.Printf("importance %-22s %.4f", item.Feature, item.Importance)
	}
}
