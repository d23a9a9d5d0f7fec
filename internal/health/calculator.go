// Package health holds the pure derived-value calculations shown next to a profile.
// Nothing here is persisted.
package health

import "github.com/gogetteranushka/wellness-agent-core/internal/models"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusMonitor   Status = "monitor"
	StatusAttention Status = "attention"
)

// ComputeBMI returns weight / (height/100)^2. ok is false when either input is missing
// or height is zero. The value is not rounded.
func ComputeBMI(weightKG, heightCM *float64) (bmi float64, ok bool) {
	if weightKG == nil || heightCM == nil || *heightCM == 0 {
		return 0, false
	}
	meters := *heightCM / 100
	return *weightKG / (meters * meters), true
}

func ClassifyRisk(conditionCount int) RiskLevel {
	switch {
	case conditionCount >= 2:
		return RiskHigh
	case conditionCount == 1:
		return RiskMedium
	default:
		return RiskLow
	}
}

func StatusFor(risk RiskLevel) Status {
	switch risk {
	case RiskHigh:
		return StatusAttention
	case RiskMedium:
		return StatusMonitor
	default:
		return StatusHealthy
	}
}

// Derive computes the display values for a profile with conditionCount stored condition rows.
func Derive(profile *models.UserProfile, conditionCount int) models.DerivedHealth {
	risk := ClassifyRisk(conditionCount)
	derived := models.DerivedHealth{
		RiskLevel:      string(risk),
		Status:         string(StatusFor(risk)),
		ConditionCount: conditionCount,
	}
	if profile == nil {
		return derived
	}
	if bmi, ok := ComputeBMI(profile.WeightKG, profile.HeightCM); ok {
		derived.BMI = &bmi
	}
	return derived
}
