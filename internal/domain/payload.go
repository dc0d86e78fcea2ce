package domain

import (
	"math"
	"strings"
)

// Cardio records an endurance session.
type Cardio struct {
	ActivityType   string   `json:"activity_type"`
	DurationMin    int      `json:"duration_min"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	CaloriesBurned *int     `json:"calories_burned,omitempty"`
	PaceMinPerKm   *float64 `json:"pace_min_per_km,omitempty"`
	Note           string   `json:"note,omitempty"`
}

// Validate ensures payload correctness.
func (c Cardio) Validate() error {
	if strings.TrimSpace(c.ActivityType) == "" {
		return invalid("activity_type", "is required")
	}
	if c.DurationMin <= 0 {
		return invalid("duration_min", "must be > 0")
	}
	if c.DistanceKm != nil && *c.DistanceKm < 0 {
		return invalid("distance_km", "must be >= 0")
	}
	if c.CaloriesBurned != nil && *c.CaloriesBurned < 0 {
		return invalid("calories_burned", "must be >= 0")
	}
	return nil
}

// Normalize trims text fields and derives pace from duration and distance.
func (c Cardio) Normalize() Cardio {
	c.ActivityType = strings.ToLower(strings.TrimSpace(c.ActivityType))
	c.Note = strings.TrimSpace(c.Note)
	c.PaceMinPerKm = nil
	if c.DistanceKm != nil && *c.DistanceKm > 0 {
		pace := round2(float64(c.DurationMin) / *c.DistanceKm)
		c.PaceMinPerKm = &pace
	}
	return c
}

// Strength records one exercise performed for sets of reps.
type Strength struct {
	Exercise string  `json:"exercise"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	WeightKg float64 `json:"weight_kg"`
	VolumeKg float64 `json:"volume_kg"`
	Note     string  `json:"note,omitempty"`
}

// Validate ensures payload correctness.
func (s Strength) Validate() error {
	if strings.TrimSpace(s.Exercise) == "" {
		return invalid("exercise", "is required")
	}
	if s.Sets <= 0 {
		return invalid("sets", "must be > 0")
	}
	if s.Reps <= 0 {
		return invalid("reps", "must be > 0")
	}
	if s.WeightKg < 0 {
		return invalid("weight_kg", "must be >= 0")
	}
	return nil
}

// Normalize trims text fields and derives total volume lifted.
func (s Strength) Normalize() Strength {
	s.Exercise = strings.TrimSpace(s.Exercise)
	s.Note = strings.TrimSpace(s.Note)
	s.VolumeKg = round2(float64(s.Sets*s.Reps) * s.WeightKg)
	return s
}

// Meal names accepted for nutrition entries.
var meals = map[string]struct{}{
	"breakfast": {},
	"lunch":     {},
	"dinner":    {},
	"snack":     {},
}

// Nutrition records one food item eaten at a meal.
type Nutrition struct {
	Meal     string  `json:"meal"`
	Food     string  `json:"food"`
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	Note     string  `json:"note,omitempty"`
}

// Validate ensures payload correctness.
func (n Nutrition) Validate() error {
	if _, ok := meals[strings.ToLower(strings.TrimSpace(n.Meal))]; !ok {
		return invalid("meal", "must be one of breakfast, lunch, dinner, snack")
	}
	if strings.TrimSpace(n.Food) == "" {
		return invalid("food", "is required")
	}
	if n.Calories < 0 {
		return invalid("calories", "must be >= 0")
	}
	if n.ProteinG < 0 || n.CarbsG < 0 || n.FatG < 0 {
		return invalid("macros", "must be >= 0")
	}
	return nil
}

// Normalize trims text fields and derives calories from macros when omitted.
func (n Nutrition) Normalize() Nutrition {
	n.Meal = strings.ToLower(strings.TrimSpace(n.Meal))
	n.Food = strings.TrimSpace(n.Food)
	n.Note = strings.TrimSpace(n.Note)
	if n.Calories == 0 {
		n.Calories = int(math.Round(4*n.ProteinG + 4*n.CarbsG + 9*n.FatG))
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
