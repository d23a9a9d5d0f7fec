package services

import "strings"

const ConditionNone = "None"

var intakeConditions = []string{
	ConditionNone,
	"Diabetes",
	"Pre-Diabetes",
	"Hypertension",
	"Heart Disease",
	"High Cholesterol",
	"Kidney Disease",
	"Celiac Disease",
	"Lactose Intolerance",
	"Obesity",
}

var dietTypes = []string{
	"Vegetarian",
	"Non-Vegetarian",
	"Vegan",
	"Eggetarian",
	"Keto",
	"Gluten Free",
}

var goals = []string{
	"Weight Loss",
	"Weight Gain",
	"Muscle Gain",
	"Maintenance",
	"Improve Health",
}

var allowedGenders = []string{"male", "female", "other"}

type IntakeOptions struct {
	Conditions []string `json:"conditions"`
	DietTypes  []string `json:"diet_types"`
	Goals      []string `json:"goals"`
	Genders    []string `json:"genders"`
}

func Options() IntakeOptions {
	return IntakeOptions{
		Conditions: append([]string(nil), intakeConditions...),
		DietTypes:  append([]string(nil), dietTypes...),
		Goals:      append([]string(nil), goals...),
		Genders:    append([]string(nil), allowedGenders...),
	}
}

// canonicalOption matches case-insensitively and returns the catalog spelling.
func canonicalOption(options []string, value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	for _, option := range options {
		if strings.EqualFold(option, trimmed) {
			return option, true
		}
	}
	return "", false
}

func CanonicalDietType(value string) (string, bool) {
	return canonicalOption(dietTypes, value)
}

func CanonicalGoal(value string) (string, bool) {
	return canonicalOption(goals, value)
}

func CanonicalGender(value string) (string, bool) {
	return canonicalOption(allowedGenders, value)
}
