// Command formcast runs the training-plan engine against normalized
// evidence and calibration files and prints the selected plan.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/strideworks/formcast/internal/evidence"
	"github.com/strideworks/formcast/internal/logging"
	"github.com/strideworks/formcast/internal/optimizer"
	"github.com/strideworks/formcast/pkg/config"
	"github.com/strideworks/formcast/pkg/core"
)

// evidenceDocument is the on-disk input shape: history, profile, goals, and
// the optional prior snapshot, as one normalized document produced by the
// ingestion layer.
type evidenceDocument struct {
	Records  []evidence.ActivityRecord `json:"records" yaml:"records"`
	Profile  evidence.Profile          `json:"profile" yaml:"profile"`
	Goals    []core.Goal               `json:"goals" yaml:"goals"`
	Snapshot *core.StateSnapshot       `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "formcast",
		Short:        "Deterministic training-load forecasting and plan selection",
		SilenceUsage: true,
	}
	root.AddCommand(newPlanCommand())
	return root
}

func newPlanCommand() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Solve a training plan from evidence and calibration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("evidence", "", "path to the evidence document (JSON or YAML)")
	flags.String("calibration", "", "path to the calibration YAML (defaults apply if omitted)")
	flags.String("profile", "", "optimization profile: outcome_first, balanced, sustainable")
	flags.Int("horizon-weeks", 0, "override the profile's planning horizon")
	flags.Int("candidates", 0, "override the profile's candidate count per step")
	flags.String("start", "", "first planned day (YYYY-MM-DD), default: day after last evidence")
	flags.String("output", "", "write the full result document to this path (.json or .yaml)")
	flags.Int("verbosity", 0, "log verbosity (0-2)")
	_ = cmd.MarkFlagRequired("evidence")

	// Flags are overridable via FORMCAST_* environment variables.
	v.SetEnvPrefix("formcast")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	return cmd
}

func runPlan(cmd *cobra.Command, v *viper.Viper) error {
	logger := logging.NewLogger(v.GetInt("verbosity"))
	ctx := logging.IntoContext(cmd.Context(), logger)

	doc, err := loadEvidence(v.GetString("evidence"))
	if err != nil {
		return err
	}

	calib := config.DefaultCalibration()
	var capsOverride config.Caps
	boundsOverride := config.SolveBounds{
		HorizonWeeks:   v.GetInt("horizon-weeks"),
		CandidateCount: v.GetInt("candidates"),
	}
	if path := v.GetString("calibration"); path != "" {
		loaded, err := config.LoadCalibration(path)
		if err != nil {
			return err
		}
		calib = loaded.Calibration
		capsOverride = loaded.CapsOverride
		if boundsOverride.HorizonWeeks == 0 {
			boundsOverride.HorizonWeeks = loaded.Bounds.HorizonWeeks
		}
		if boundsOverride.CandidateCount == 0 {
			boundsOverride.CandidateCount = loaded.Bounds.CandidateCount
		}
	}

	var start time.Time
	if s := v.GetString("start"); s != "" {
		start, err = time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("parse --start: %w", err)
		}
	}

	result, err := optimizer.Solve(ctx, optimizer.Request{
		Records:        doc.Records,
		AthleteProfile: doc.Profile,
		PriorSnapshot:  doc.Snapshot,
		Goals:          doc.Goals,
		Calibration:    calib,
		Profile:        config.Profile(v.GetString("profile")),
		CapsOverride:   capsOverride,
		BoundsOverride: boundsOverride,
		Start:          start,
	})
	if err != nil {
		return err
	}

	printSummary(cmd, result)

	if out := v.GetString("output"); out != "" {
		if err := writeResult(out, result); err != nil {
			return err
		}
		cmd.Printf("\nFull result written to %s\n", out)
	}
	return nil
}

func loadEvidence(path string) (*evidenceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evidence file: %w", err)
	}
	var doc evidenceDocument
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode evidence file: %w", err)
	}
	return &doc, nil
}

func writeResult(path string, result *optimizer.PlanResult) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = yaml.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func printSummary(cmd *cobra.Command, result *optimizer.PlanResult) {
	cmd.Printf("Plan score: %.3f  feasibility: %s\n", result.PlanScore, result.Feasibility)
	cmd.Printf("Evidence quality: %.2f  state uncertainty: %.1f\n\n",
		result.Diagnostics.EvidenceQuality, result.Diagnostics.StateUncertainty)

	cmd.Println("Goals:")
	for _, g := range result.GoalResults {
		cmd.Printf("  %-20s score %.3f  %s\n", g.GoalID, g.Score, g.Feasibility)
	}

	cmd.Println("\nWeekly plan:")
	for _, a := range result.Actions {
		cmd.Printf("  %s  load %6.0f  (%+.0f)\n",
			a.WeekStart.Format("2006-01-02"), a.WeeklyLoad, a.Delta)
	}

	if last, ok := result.Trajectory.Last(); ok {
		cmd.Printf("\nProjected end state: CTL %.1f  ATL %.1f  TSB %+.1f  readiness %.0f\n",
			last.State.CTL, last.State.ATL, last.TSB, last.Readiness)
	}
}
