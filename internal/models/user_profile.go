package models

import (
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	UserID             uuid.UUID          `json:"user_id"`
	Age                *int               `json:"age"`
	Gender             *string            `json:"gender"`
	HeightCM           *float64           `json:"height_cm"`
	WeightKG           *float64           `json:"weight_kg"`
	DietaryPreferences DietaryPreferences `json:"dietary_preferences"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Clone returns a deep copy so drafts never alias the loaded record.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	if p.Age != nil {
		age := *p.Age
		out.Age = &age
	}
	if p.Gender != nil {
		gender := *p.Gender
		out.Gender = &gender
	}
	if p.HeightCM != nil {
		height := *p.HeightCM
		out.HeightCM = &height
	}
	if p.WeightKG != nil {
		weight := *p.WeightKG
		out.WeightKG = &weight
	}
	return &out
}

type ConditionRecord struct {
	ID            int64     `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	ConditionName string    `json:"condition_name"`
	DiagnosedDate time.Time `json:"diagnosed_date"`
	CreatedAt     time.Time `json:"created_at"`
}

type DerivedHealth struct {
	BMI            *float64 `json:"bmi"`
	RiskLevel      string   `json:"risk_level"`
	Status         string   `json:"status"`
	ConditionCount int      `json:"condition_count"`
}

// ProfileView is what the profile page shows. ConditionsUnavailable is set when the profile was
// saved but the condition list could not be read; risk and status are then left empty.
type ProfileView struct {
	Profile               *UserProfile      `json:"profile"`
	Conditions            []ConditionRecord `json:"conditions"`
	Derived               DerivedHealth     `json:"derived"`
	ConditionsUnavailable bool              `json:"conditions_unavailable,omitempty"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
