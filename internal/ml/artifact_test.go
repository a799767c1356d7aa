package ml

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTrainProducesArtifact(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.NumSamples = 600
	cfg.Params.NumTrees = 20

	artifact, err := Train(cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if artifact.SchemaVersion != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, artifact.SchemaVersion)
	}
	if artifact.ModelID == "" {
		t.Fatal("expected non-empty model id")
	}
	if len(artifact.FeatureNames) != NumFeatures {
		t.Fatalf("expected %d feature names, got %d", NumFeatures, len(artifact.FeatureNames))
	}
	if artifact.Metrics.NumTrain+artifact.Metrics.NumTest != artifact.Metrics.NumSamples {
		t.Fatalf("split sizes do not add up: %d + %d != %d",
			artifact.Metrics.NumTrain, artifact.Metrics.NumTest, artifact.Metrics.NumSamples)
	}
}

func TestArtifactSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.NumSamples = 600
	cfg.Params.NumTrees = 20

	artifact, err := Train(cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	path := filepath.Join(t.TempDir(), "models", "habit_model.json")
	if err := artifact.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.ModelID != artifact.ModelID {
		t.Fatalf("model id changed through round trip: %s vs %s", artifact.ModelID, loaded.ModelID)
	}

	// 序列化往返后推理结果必须逐位一致
	for _, ex := range GenerateDataset(7, 50) {
		before := artifact.Model.Predict(ex.Features)
		after := loaded.Model.Predict(ex.Features)
		if before != after {
			t.Fatalf("prediction changed through round trip: %v vs %v", before, after)
		}
	}
}

func TestLoadArtifactMissing(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrArtifactMissing) {
		t.Fatalf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestLoadArtifactRejectsWrongVersion(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.NumSamples = 400
	cfg.Params.NumTrees = 5

	artifact, err := Train(cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	artifact.SchemaVersion = SchemaVersion + 1

	path := filepath.Join(t.TempDir(), "model.json")
	if err := artifact.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := LoadArtifact(path); !errors.Is(err, ErrArtifactVersion) {
		t.Fatalf("expected ErrArtifactVersion, got %v", err)
	}
}

func TestLoadArtifactRejectsFeatureMismatch(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.NumSamples = 400
	cfg.Params.NumTrees = 5

	artifact, err := Train(cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	artifact.FeatureNames[0], artifact.FeatureNames[1] = artifact.FeatureNames[1], artifact.FeatureNames[0]

	path := filepath.Join(t.TempDir(), "model.json")
	if err := artifact.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := LoadArtifact(path); !errors.Is(err, ErrArtifactFeatures) {
		t.Fatalf("expected ErrArtifactFeatures, got %v", err)
	}
}

func TestLoadArtifactRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := LoadArtifact(path); err == nil {
		t.Fatal("expected error for corrupt artifact")
	}
}

func TestArtifactJSONShape(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.NumSamples = 400
	cfg.Params.NumTrees = 5

	artifact, err := Train(cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"schema_version", "model_id", "feature_names", "params", "model", "metrics"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected key %q in artifact JSON", key)
		}
	}
}
