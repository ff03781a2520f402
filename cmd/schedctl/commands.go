package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/auth"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

// loadInput reads a scheduling input from a JSON or YAML file; "-" reads JSON from stdin
func loadInput(path string) (models.ScheduleInput, error) {
	var in models.ScheduleInput
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return in, fmt.Errorf("failed to read input: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &in)
	default:
		err = json.Unmarshal(data, &in)
	}
	if err != nil {
		return in, fmt.Errorf("failed to parse input: %w", err)
	}
	return in, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <input>",
		Short: "Generate a schedule draft from an input file",
		Long:  "Run the auto-scheduling engine on a JSON or YAML input and print the draft as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alternatives, _ := cmd.Flags().GetInt("alternatives")
			output, _ := cmd.Flags().GetString("output")
			summary, _ := cmd.Flags().GetBool("summary")

			in, err := loadInput(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("alternatives") {
				in.Alternatives = alternatives
			}

			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Engine.GenerationTimeout)
			defer cancel()
			draft, err := app.engine.Run(ctx, in)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			app.logger.Debug("draft generated",
				zap.Int("total_shifts", draft.TotalShifts),
				zap.Int("fully_staffed", draft.FullyStaffed))

			if summary {
				printSummary(cmd.OutOrStdout(), draft)
				return nil
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return writeJSON(out, draft)
		},
	}
	cmd.Flags().IntP("alternatives", "a", 0, "Runners-up kept per assignment (negative keeps all)")
	cmd.Flags().StringP("output", "o", "", "Write the draft to this file instead of stdout")
	cmd.Flags().Bool("summary", false, "Print a readable summary instead of JSON")
	return cmd
}

func printSummary(w io.Writer, d *models.ScheduleDraft) {
	fmt.Fprintf(w, "Range:          %s to %s\n", d.DateRangeStart, d.DateRangeEnd)
	fmt.Fprintf(w, "Fully staffed:  %d of %d shifts\n", d.FullyStaffed, d.TotalShifts)
	fmt.Fprintf(w, "Confidence:     %s (%s)\n", scheduler.ConfidencePercent(d.ConfidenceScore), scheduler.ConfidenceLabel(d.ConfidenceScore))
	fmt.Fprintf(w, "Fairness:       %.0f%%\n\n", d.FairnessScore)

	for _, ds := range d.Shifts {
		var names []string
		for _, a := range ds.Assignments {
			if !a.Active() {
				continue
			}
			label := a.StaffName
			if label == "" {
				label = a.StaffID
			}
			if a.ConfidenceScore != nil {
				label += " " + scheduler.ConfidencePercent(*a.ConfidenceScore)
			}
			names = append(names, label)
		}
		fmt.Fprintf(w, "%-24s %s %s-%s  %-12s %s\n", ds.Shift.ID, ds.Shift.Date, ds.Shift.StartTime, ds.Shift.EndTime, ds.Status, strings.Join(names, ", "))
	}

	if len(d.Violations) > 0 {
		fmt.Fprintf(w, "\nViolations (%d errors, %d warnings):\n", d.Summary.TotalViolations, d.Summary.TotalWarnings)
		for _, v := range d.Violations {
			fmt.Fprintf(w, "  [%s] %s\n", v.Severity, v.Message)
			if v.SuggestedResolution != "" {
				fmt.Fprintf(w, "      %s\n", v.SuggestedResolution)
			}
		}
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <input>",
		Short: "Check an input file without scheduling it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0])
			if err != nil {
				return err
			}
			for _, c := range in.Constraints {
				if !c.ConstraintType.Known() {
					return fmt.Errorf("unknown constraint type %q", c.ConstraintType)
				}
			}
			if err := app.engine.Check(in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %d staff, %d shifts, %d templates, %d constraints\n",
				len(in.Staff), len(in.Shifts), len(in.ShiftTemplates), len(in.Constraints))
			return nil
		},
	}
}

func keygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen <businessID>",
		Short: "Print the API key of a business",
		Long:  "Sign a business id with API_MASTER_SECRET; the server accepts the key without any stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.MasterSecret == "" {
				return fmt.Errorf("API_MASTER_SECRET is not set")
			}
			version, _ := cmd.Flags().GetInt("key-version")
			key := auth.New(app.cfg.JWTSecret, app.cfg.MasterSecret).GenerateKeyVersion(args[0], version)
			fmt.Fprintf(cmd.OutOrStdout(), "Generated Key for %s:\n%s\n", args[0], key)
			return nil
		},
	}
	cmd.Flags().Int("key-version", 0, "Key version; the server moves a business to the next version when its key is revoked")
	return cmd
}
