package anomaly

import (
	"math"

	"github.com/Krimson/vibro-monitor/internal/model"
)

// Константа Эйлера-Маскерони для средней длины пути неуспешного поиска в BST
const eulerGamma = 0.5772156649

// ScoreForest возвращает аномальность вектора по ансамблю изолирующих
// деревьев: 2^(-E[h(x)]/c(n)), ближе к 1 - аномальнее
func ScoreForest(f *model.ForestModel, x []float64) float64 {
	if f == nil || len(f.Trees) == 0 {
		return 0
	}

	totalPath := 0.0
	for i := range f.Trees {
		totalPath += pathLength(&f.Trees[i], x)
	}
	avgPath := totalPath / float64(len(f.Trees))

	norm := avgUnsuccessfulSearch(f.SampleSize)
	if norm <= 0 {
		return 0
	}
	return math.Pow(2, -avgPath/norm)
}

// pathLength вычисляет длину пути вектора до листа с поправкой
// на размер листовой подвыборки
func pathLength(tree *model.TreeSpec, x []float64) float64 {
	depth := 0.0
	idx := 0
	for idx >= 0 && idx < len(tree.Nodes) {
		node := tree.Nodes[idx]
		if node.Left < 0 {
			return depth + avgUnsuccessfulSearch(node.Size)
		}
		if node.Feature >= 0 && node.Feature < len(x) && x[node.Feature] < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
		depth++
	}
	return depth
}

// avgUnsuccessfulSearch - c(n), средняя длина пути неуспешного поиска
// в бинарном дереве из n элементов
func avgUnsuccessfulSearch(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + eulerGamma
	return 2*h - 2*float64(n-1)/float64(n)
}
