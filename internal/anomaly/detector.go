package anomaly

import (
	"log"
	"math"

	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/model"
	"github.com/Krimson/vibro-monitor/pkg/dsp"
)

// Result содержит итог гибридного скоринга одного окна
type Result struct {
	IFScore        float64  `json:"if_score"`
	AEScore        *float64 `json:"ae_score,omitempty"`
	AnomalyScore   float64  `json:"anomaly_score"`
	Confidence     float64  `json:"confidence"`
	IsAnomaly      bool     `json:"is_anomaly"`
	Threshold      float64  `json:"threshold"`
	HasAutoencoder bool     `json:"has_autoencoder"`
	RiskBand       string   `json:"risk_band"`
}

// Detector объединяет изолирующий лес и автоэнкодер в один скор.
// Веса слияния и пол уверенности - конфигурируемые параметры деплоя,
// а не константы.
type Detector struct {
	weightIF        float64
	weightAE        float64
	confidenceFloor float64
}

// NewDetector создает гибридный детектор по настройкам приложения
func NewDetector(cfg *config.Config) *Detector {
	return &Detector{
		weightIF:        cfg.FusionWeightIF,
		weightAE:        cfg.FusionWeightAE,
		confidenceFloor: cfg.ConfidenceFloor,
	}
}

// Score оценивает вектор фич на снапшоте модели. Отсутствие автоэнкодера
// не фатально: деградируем до одного детектора с пониженной уверенностью.
func (d *Detector) Score(values []float64, snap *model.Snapshot) Result {
	ifScore := dsp.Clamp(ScoreForest(snap.Forest, values), 0, 1)

	aeScore, hasAE := ScoreAutoencoder(snap.Autoencoder, values)
	if snap.HasAutoencoder() && !hasAE {
		log.Printf("[WARN] Autoencoder weights inconsistent with input, falling back to isolation forest only")
	}

	var aePtr *float64
	if hasAE {
		aeScore = dsp.Clamp(aeScore, 0, 1)
		aePtr = &aeScore
	}
	score, confidence := d.fuse(ifScore, aeScore, hasAE)

	return Result{
		IFScore:        ifScore,
		AEScore:        aePtr,
		AnomalyScore:   score,
		Confidence:     confidence,
		IsAnomaly:      score > snap.Threshold,
		Threshold:      snap.Threshold,
		HasAutoencoder: hasAE,
		RiskBand:       RiskBand(score),
	}
}

// fuse объединяет скоры двух детекторов. При обоих скорах итог - взвешенная
// сумма, а уверенность отражает согласие детекторов: 1-|if-ae|. При одном
// детекторе итог равен его скору, уверенность - фиксированный пол.
func (d *Detector) fuse(ifScore, aeScore float64, hasAE bool) (score, confidence float64) {
	if !hasAE {
		return dsp.Clamp(ifScore, 0, 1), d.confidenceFloor
	}
	score = dsp.Clamp(d.weightIF*ifScore+d.weightAE*aeScore, 0, 1)
	confidence = dsp.Clamp(1-math.Abs(ifScore-aeScore), 0, 1)
	return score, confidence
}

// RiskBand относит скор к презентационной категории риска.
// Границы: <0.30 low, <0.60 medium, иначе high.
func RiskBand(score float64) string {
	switch {
	case score < 0.30:
		return "low"
	case score < 0.60:
		return "medium"
	default:
		return "high"
	}
}
