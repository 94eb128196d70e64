package anomaly

import (
	"math"

	"github.com/Krimson/vibro-monitor/internal/model"
)

// ScoreAutoencoder возвращает аномальность вектора как нормированную ошибку
// реконструкции в [0,1). Второй результат false, если автоэнкодер
// недоступен или его веса не согласуются с размерностью входа.
func ScoreAutoencoder(ae *model.AutoencoderModel, x []float64) (float64, bool) {
	if ae == nil || len(ae.Layers) == 0 || ae.ErrorScale <= 0 {
		return 0, false
	}
	if len(ae.InputMean) != len(x) || len(ae.InputStd) != len(x) {
		return 0, false
	}

	// Стандартизация входа как при обучении
	current := make([]float64, len(x))
	for i, v := range x {
		std := ae.InputStd[i]
		if std == 0 {
			std = 1
		}
		current[i] = (v - ae.InputMean[i]) / std
	}
	input := append([]float64(nil), current...)

	for _, layer := range ae.Layers {
		next, ok := forward(&layer, current)
		if !ok {
			return 0, false
		}
		current = next
	}

	// Реконструкция должна вернуться в исходную размерность
	if len(current) != len(input) {
		return 0, false
	}

	mse := 0.0
	for i := range input {
		diff := current[i] - input[i]
		mse += diff * diff
	}
	mse /= float64(len(input))

	// Монотонная нормировка ошибки в [0,1)
	return 1 - math.Exp(-mse/ae.ErrorScale), true
}

// forward вычисляет act(W*x + b) для одного слоя
func forward(layer *model.LayerSpec, x []float64) ([]float64, bool) {
	if len(layer.Weights) != len(layer.Biases) {
		return nil, false
	}
	out := make([]float64, len(layer.Weights))
	for i, row := range layer.Weights {
		if len(row) != len(x) {
			return nil, false
		}
		sum := layer.Biases[i]
		for j, w := range row {
			sum += w * x[j]
		}
		if layer.Activation == "relu" && sum < 0 {
			sum = 0
		}
		out[i] = sum
	}
	return out, true
}
