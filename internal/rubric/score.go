package rubric

import (
	"math"

	"github.com/Spok95/bqs/internal/models"
)

const (
	MaxScore = 5.0

	// Fast-track: 3.5–4.0 по пятибалльной шкале, границы включительно.
	FastTrackMin = 70
	FastTrackMax = 80
)

// ValidScore: допускаются только шаги по 0.5 в [0, 5].
func ValidScore(v float64) bool {
	if v < 0 || v > MaxScore || math.IsNaN(v) {
		return false
	}
	return v*2 == math.Trunc(v*2)
}

// Overall считает итоговый балл 0..100 по секциям, которые есть у версии.
// Нормируется на сумму весов реально оценённых секций; неизвестные коды пропускаются.
func (r *Registry) Overall(values []models.SectionValue) int {
	var sum, weights float64
	for _, v := range values {
		w, ok := r.Weight(v.SectionCode)
		if !ok {
			continue
		}
		sum += v.Score * w
		weights += w
	}
	return overall(sum, weights)
}

func overall(sum, weights float64) int {
	if weights <= 0 {
		return 0
	}
	// 1e-9 гасит хвосты float: 3.85/5*100 = 76.99999999999999
	score := int(math.Round(sum/(MaxScore*weights)*100 + 1e-9))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// InFastTrackBand: попадает ли итоговый балл в полосу fast-track.
func InFastTrackBand(overall int) bool {
	return overall >= FastTrackMin && overall <= FastTrackMax
}

// FivePoint: итоговый балл в пятибалльной шкале (для отображения).
func FivePoint(overall int) float64 {
	return math.Round(float64(overall)*MaxScore) / 100
}
