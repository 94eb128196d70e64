package anomaly

import (
	"math"
	"testing"

	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		FusionWeightIF:  0.5,
		FusionWeightAE:  0.5,
		ConfidenceFloor: 0.5,
	}
}

// testForest строит лес из одного дерева: одно разбиение по первой фиче.
// Малые значения уходят в глубокий лист, большие изолируются сразу.
func testForest() *model.ForestModel {
	return &model.ForestModel{
		SampleSize: 256,
		Trees: []model.TreeSpec{
			{Nodes: []model.TreeNode{
				{Feature: 0, Threshold: 10.0, Left: 1, Right: 2},
				{Feature: -1, Threshold: 0, Left: -1, Right: -1, Size: 128},
				{Feature: -1, Threshold: 0, Left: -1, Right: -1, Size: 1},
			}},
		},
	}
}

// identityAutoencoder восстанавливает вход без ошибки
func identityAutoencoder(dim int) *model.AutoencoderModel {
	weights := make([][]float64, dim)
	biases := make([]float64, dim)
	mean := make([]float64, dim)
	std := make([]float64, dim)
	for i := range weights {
		row := make([]float64, dim)
		row[i] = 1
		weights[i] = row
		std[i] = 1
	}
	return &model.AutoencoderModel{
		ErrorScale: 1.0,
		InputMean:  mean,
		InputStd:   std,
		Layers: []model.LayerSpec{
			{Weights: weights, Biases: biases, Activation: "linear"},
		},
	}
}

func TestFuse_SpecScenario(t *testing.T) {
	d := NewDetector(testConfig())

	score, confidence := d.fuse(0.2, 0.8, true)
	if math.Abs(score-0.5) > 1e-12 {
		t.Errorf("Expected fused score 0.5, got %f", score)
	}
	if math.Abs(confidence-0.4) > 1e-12 {
		t.Errorf("Expected confidence 0.4, got %f", confidence)
	}
}

func TestFuse_SingleDetectorFallback(t *testing.T) {
	d := NewDetector(testConfig())

	score, confidence := d.fuse(0.7, 0, false)
	if score != 0.7 {
		t.Errorf("Expected score to equal if_score, got %f", score)
	}
	if confidence != 0.5 {
		t.Errorf("Expected confidence floor 0.5, got %f", confidence)
	}
}

func TestFuse_MonotoneInBothScores(t *testing.T) {
	d := NewDetector(testConfig())

	prev := -1.0
	for ifScore := 0.0; ifScore <= 1.0; ifScore += 0.1 {
		score, _ := d.fuse(ifScore, 0.5, true)
		if score < prev {
			t.Fatalf("Score not monotone in if_score at %f", ifScore)
		}
		prev = score
	}

	prev = -1.0
	for aeScore := 0.0; aeScore <= 1.0; aeScore += 0.1 {
		score, _ := d.fuse(0.5, aeScore, true)
		if score < prev {
			t.Fatalf("Score not monotone in ae_score at %f", aeScore)
		}
		prev = score
	}
}

func TestFuse_ConfidenceBounded(t *testing.T) {
	d := NewDetector(testConfig())
	for ifScore := 0.0; ifScore <= 1.0; ifScore += 0.25 {
		for aeScore := 0.0; aeScore <= 1.0; aeScore += 0.25 {
			_, confidence := d.fuse(ifScore, aeScore, true)
			if confidence < 0 || confidence > 1 {
				t.Fatalf("Confidence out of [0,1]: %f for if=%f ae=%f", confidence, ifScore, aeScore)
			}
			expected := 1 - math.Abs(ifScore-aeScore)
			if math.Abs(confidence-expected) > 1e-12 {
				t.Fatalf("Expected confidence %f, got %f", expected, confidence)
			}
		}
	}
}

func TestScoreForest_OutlierScoresHigher(t *testing.T) {
	forest := testForest()

	inlier := ScoreForest(forest, []float64{1.0})
	outlier := ScoreForest(forest, []float64{100.0})

	if outlier <= inlier {
		t.Errorf("Expected outlier score %f > inlier score %f", outlier, inlier)
	}
	if inlier < 0 || inlier > 1 || outlier < 0 || outlier > 1 {
		t.Errorf("Scores out of [0,1]: inlier=%f outlier=%f", inlier, outlier)
	}
}

func TestScoreAutoencoder_PerfectReconstruction(t *testing.T) {
	ae := identityAutoencoder(3)

	score, ok := ScoreAutoencoder(ae, []float64{0.5, -1.0, 2.0})
	if !ok {
		t.Fatal("Expected autoencoder to be available")
	}
	if score != 0 {
		t.Errorf("Expected zero score for perfect reconstruction, got %f", score)
	}
}

func TestScoreAutoencoder_UnavailableWhenNil(t *testing.T) {
	if _, ok := ScoreAutoencoder(nil, []float64{1, 2, 3}); ok {
		t.Error("Expected autoencoder to be unavailable when nil")
	}
}

func TestScoreAutoencoder_DimensionMismatchUnavailable(t *testing.T) {
	ae := identityAutoencoder(3)
	if _, ok := ScoreAutoencoder(ae, []float64{1, 2}); ok {
		t.Error("Expected autoencoder to be unavailable on dimension mismatch")
	}
}

func TestScore_WithoutAutoencoder(t *testing.T) {
	d := NewDetector(testConfig())
	snap := &model.Snapshot{
		Threshold: 0.6,
		Forest:    testForest(),
	}

	result := d.Score([]float64{1.0}, snap)
	if result.HasAutoencoder {
		t.Error("Expected has_autoencoder=false")
	}
	if result.AEScore != nil {
		t.Error("Expected absent ae_score")
	}
	if result.AnomalyScore != result.IFScore {
		t.Errorf("Expected anomaly_score == if_score, got %f vs %f", result.AnomalyScore, result.IFScore)
	}
	if result.Confidence != 0.5 {
		t.Errorf("Expected confidence floor, got %f", result.Confidence)
	}
}

func TestScore_ThresholdDecision(t *testing.T) {
	d := NewDetector(testConfig())
	snap := &model.Snapshot{
		Threshold:   0.6,
		Forest:      testForest(),
		Autoencoder: identityAutoencoder(1),
	}

	result := d.Score([]float64{1.0}, snap)
	if result.IsAnomaly != (result.AnomalyScore > 0.6) {
		t.Errorf("Decision inconsistent with threshold: score=%f is_anomaly=%v",
			result.AnomalyScore, result.IsAnomaly)
	}
	if result.Threshold != 0.6 {
		t.Errorf("Expected threshold 0.6 in result, got %f", result.Threshold)
	}
}

func TestRiskBand(t *testing.T) {
	cases := []struct {
		score float64
		band  string
	}{
		{0.0, "low"},
		{0.29, "low"},
		{0.30, "medium"},
		{0.59, "medium"},
		{0.60, "high"},
		{1.0, "high"},
	}
	for _, c := range cases {
		if got := RiskBand(c.score); got != c.band {
			t.Errorf("RiskBand(%f): expected %s, got %s", c.score, c.band, got)
		}
	}
}
