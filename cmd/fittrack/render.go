package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/caseydemo/workout-app/internal/domain"
	"github.com/caseydemo/workout-app/internal/optimistic"
)

func printRecords[P any](w io.Writer, records []optimistic.Record[P], describe func(P) string) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no entries")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLOGGED\tENTRY")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04"), describe(rec.Payload))
	}
	return tw.Flush()
}

func describeCardio(p domain.Cardio) string {
	parts := []string{p.ActivityType, fmt.Sprintf("%d min", p.DurationMin)}
	if p.DistanceKm != nil {
		parts = append(parts, fmt.Sprintf("%.2f km", *p.DistanceKm))
	}
	if p.PaceMinPerKm != nil {
		parts = append(parts, fmt.Sprintf("%.2f min/km", *p.PaceMinPerKm))
	}
	if p.CaloriesBurned != nil {
		parts = append(parts, fmt.Sprintf("%d kcal", *p.CaloriesBurned))
	}
	return withNote(strings.Join(parts, ", "), p.Note)
}

func describeStrength(p domain.Strength) string {
	s := fmt.Sprintf("%s %dx%d @ %g kg (volume %g kg)", p.Exercise, p.Sets, p.Reps, p.WeightKg, p.VolumeKg)
	return withNote(s, p.Note)
}

func describeNutrition(p domain.Nutrition) string {
	s := fmt.Sprintf("%s: %s, %d kcal (P %g / C %g / F %g)", p.Meal, p.Food, p.Calories, p.ProteinG, p.CarbsG, p.FatG)
	return withNote(s, p.Note)
}

func withNote(s, note string) string {
	if note == "" {
		return s
	}
	return s + "  # " + note
}
