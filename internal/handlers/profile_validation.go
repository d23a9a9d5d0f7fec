package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/gogetteranushka/wellness-agent-core/internal/services"
)

// toUpdateInput validates a direct profile update and normalizes its enumerated values.
// It returns an error message, or "" when the request is acceptable.
func toUpdateInput(req updateUserProfileRequest) (repository.UpdateUserProfileInput, string) {
	input := repository.UpdateUserProfileInput{
		Age:      req.Age,
		HeightCM: req.HeightCM,
		WeightKG: req.WeightKG,
	}

	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		return input, "age must be between 0 and 150"
	}
	if req.Gender != nil {
		gender, ok := services.CanonicalGender(*req.Gender)
		if !ok {
			return input, "gender must be one of: male, female, other"
		}
		input.Gender = &gender
	}
	if req.HeightCM != nil && *req.HeightCM <= 0 {
		return input, "height_cm must be greater than 0"
	}
	if req.WeightKG != nil && *req.WeightKG <= 0 {
		return input, "weight_kg must be greater than 0"
	}
	if len(req.DietaryPreferences) > 0 && string(req.DietaryPreferences) != "null" {
		prefs, msg := validateDietaryPreferences(req.DietaryPreferences)
		if msg != "" {
			return input, msg
		}
		input.DietaryPreferences = &prefs
	}
	if input.IsEmpty() {
		return input, "at least one field is required"
	}
	return input, ""
}

func validateDietaryPreferences(raw json.RawMessage) (models.DietaryPreferences, string) {
	prefs := models.ParseDietaryPreferences(raw)
	if prefs.IsZero() {
		return prefs, "dietary_preferences must contain type or goal"
	}
	if strings.TrimSpace(prefs.Type) != "" {
		dietType, ok := services.CanonicalDietType(prefs.Type)
		if !ok {
			return prefs, "dietary_preferences.type is not a known diet type"
		}
		prefs.Type = dietType
	}
	if strings.TrimSpace(prefs.Goal) != "" {
		goal, ok := services.CanonicalGoal(prefs.Goal)
		if !ok {
			return prefs, "dietary_preferences.goal is not a known goal"
		}
		prefs.Goal = goal
	}
	return prefs, ""
}
