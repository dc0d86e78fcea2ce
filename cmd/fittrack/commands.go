package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/caseydemo/workout-app/internal/domain"
	"github.com/caseydemo/workout-app/internal/optimistic"
	"github.com/caseydemo/workout-app/internal/tracker"
)

func newListCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <category>",
		Short: "List entries newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := domain.ParseCategory(args[0])
			if err != nil {
				return err
			}
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			switch category {
			case domain.CategoryCardio:
				return printRecords(out, tracker.Cardio(ctx).State().Records(), describeCardio)
			case domain.CategoryStrength:
				return printRecords(out, tracker.Strength(ctx).State().Records(), describeStrength)
			default:
				return printRecords(out, tracker.Nutrition(ctx).State().Records(), describeNutrition)
			}
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a new entry",
	}
	cmd.AddCommand(newAddCardioCmd(opts), newAddStrengthCmd(opts), newAddNutritionCmd(opts))
	return cmd
}

func newAddCardioCmd(opts *rootOptions) *cobra.Command {
	var (
		p        domain.Cardio
		distance float64
		calories int
	)
	cmd := &cobra.Command{
		Use:   "cardio",
		Short: "Log a cardio session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("distance") {
				p.DistanceKm = &distance
			}
			if cmd.Flags().Changed("calories") {
				p.CaloriesBurned = &calories
			}
			return submit(cmd, opts, tracker.Cardio(cmd.Context()), p, describeCardio)
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.ActivityType, "activity", "", "activity type, e.g. run or cycle")
	f.IntVar(&p.DurationMin, "duration", 0, "duration in minutes")
	f.Float64Var(&distance, "distance", 0, "distance in km")
	f.IntVar(&calories, "calories", 0, "calories burned")
	f.StringVar(&p.Note, "note", "", "free-form note")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newAddStrengthCmd(opts *rootOptions) *cobra.Command {
	var p domain.Strength
	cmd := &cobra.Command{
		Use:   "strength",
		Short: "Log sets of an exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return submit(cmd, opts, tracker.Strength(cmd.Context()), p, describeStrength)
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Exercise, "exercise", "", "exercise name")
	f.IntVar(&p.Sets, "sets", 0, "number of sets")
	f.IntVar(&p.Reps, "reps", 0, "reps per set")
	f.Float64Var(&p.WeightKg, "weight", 0, "weight in kg")
	f.StringVar(&p.Note, "note", "", "free-form note")
	_ = cmd.MarkFlagRequired("exercise")
	return cmd
}

func newAddNutritionCmd(opts *rootOptions) *cobra.Command {
	var p domain.Nutrition
	cmd := &cobra.Command{
		Use:   "nutrition",
		Short: "Log a food item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return submit(cmd, opts, tracker.Nutrition(cmd.Context()), p, describeNutrition)
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Meal, "meal", "", "breakfast, lunch, dinner or snack")
	f.StringVar(&p.Food, "food", "", "what was eaten")
	f.IntVar(&p.Calories, "calories", 0, "calories; derived from macros when omitted")
	f.Float64Var(&p.ProteinG, "protein", 0, "protein in grams")
	f.Float64Var(&p.CarbsG, "carbs", 0, "carbohydrates in grams")
	f.Float64Var(&p.FatG, "fat", 0, "fat in grams")
	f.StringVar(&p.Note, "note", "", "free-form note")
	_ = cmd.MarkFlagRequired("meal")
	_ = cmd.MarkFlagRequired("food")
	return cmd
}

func newNoteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "note <category> <id> <text>",
		Short: "Replace the note on an entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := domain.ParseCategory(args[0])
			if err != nil {
				return err
			}
			id, text := args[1], args[2]
			ctx := cmd.Context()
			switch category {
			case domain.CategoryCardio:
				return editNote(cmd, opts, tracker.Cardio(ctx), id, cardioNote(text), describeCardio)
			case domain.CategoryStrength:
				return editNote(cmd, opts, tracker.Strength(ctx), id, strengthNote(text), describeStrength)
			default:
				return editNote(cmd, opts, tracker.Nutrition(ctx), id, nutritionNote(text), describeNutrition)
			}
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <category> <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := domain.ParseCategory(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			switch category {
			case domain.CategoryCardio:
				return remove(cmd, opts, tracker.Cardio(ctx), args[1])
			case domain.CategoryStrength:
				return remove(cmd, opts, tracker.Strength(ctx), args[1])
			default:
				return remove(cmd, opts, tracker.Nutrition(ctx), args[1])
			}
		},
	}
}

func cardioNote(text string) func(domain.Cardio) domain.Cardio {
	return func(p domain.Cardio) domain.Cardio {
		p.Note = text
		return p
	}
}

func strengthNote(text string) func(domain.Strength) domain.Strength {
	return func(p domain.Strength) domain.Strength {
		p.Note = text
		return p
	}
}

func nutritionNote(text string) func(domain.Nutrition) domain.Nutrition {
	return func(p domain.Nutrition) domain.Nutrition {
		p.Note = text
		return p
	}
}

func submit[P any](cmd *cobra.Command, opts *rootOptions, c *optimistic.Container[P], payload P, describe func(P) string) error {
	defer trace(cmd.ErrOrStderr(), opts, c)()
	rec, err := c.Submit(cmd.Context(), payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s  %s\n", rec.ID, describe(rec.Payload))
	return err
}

func editNote[P any](cmd *cobra.Command, opts *rootOptions, c *optimistic.Container[P], id string, change func(P) P, describe func(P) string) error {
	current, ok := c.State().Get(id)
	if !ok {
		return fmt.Errorf("%s entry %s: %w", c.Category(), id, optimistic.ErrRecordNotFound)
	}
	defer trace(cmd.ErrOrStderr(), opts, c)()
	rec, err := c.Edit(cmd.Context(), id, change(current.Payload))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated %s  %s\n", rec.ID, describe(rec.Payload))
	return err
}

func remove[P any](cmd *cobra.Command, opts *rootOptions, c *optimistic.Container[P], id string) error {
	defer trace(cmd.ErrOrStderr(), opts, c)()
	if err := c.Delete(cmd.Context(), id); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	return err
}

// trace prints every local transition while verbose is set. The returned
// function unsubscribes.
func trace[P any](w io.Writer, opts *rootOptions, c *optimistic.Container[P]) func() {
	if !opts.verbose {
		return func() {}
	}
	return c.Subscribe(func(a optimistic.Action[P], s optimistic.State[P]) {
		switch act := a.(type) {
		case optimistic.Add[P]:
			fmt.Fprintf(w, "~ %s %s (pending)\n", c.Category(), act.Record.ID)
		case optimistic.Update[P]:
			fmt.Fprintf(w, "~ %s %s -> %s\n", c.Category(), act.ID, act.Record.ID)
		case optimistic.Remove[P]:
			fmt.Fprintf(w, "~ %s %s removed\n", c.Category(), act.ID)
		case optimistic.Insert[P]:
			fmt.Fprintf(w, "~ %s %s restored at %d\n", c.Category(), act.Record.ID, act.Index)
		}
		fmt.Fprintf(w, "~ %d %s entries locally\n", s.Len(), c.Category())
	})
}
