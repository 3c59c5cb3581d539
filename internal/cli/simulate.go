package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedloom/stitchgrid/internal/config"
	"github.com/feedloom/stitchgrid/internal/harness"
	"github.com/feedloom/stitchgrid/internal/nav"
)

// SimulationResult is the simulate command's JSON payload.
type SimulationResult struct {
	Scenario     string   `json:"scenario"`
	Trace        []string `json:"trace"`
	FinalThread  int      `json:"final_thread"`
	FinalStitch  int      `json:"final_stitch"`
	MountedSlots int      `json:"mounted_slots"`
	LiveEngines  int      `json:"live_engines"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a scenario and print its event trace",
		Long: `Run a scenario file against the deterministic core assembly (fake
clock, fake engine) and print the resulting event trace. Tunables come
from config.yaml in --config-dir plus STITCHGRID_ environment variables.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, configDir, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", ".", "directory searched for config.yaml")
	return cmd
}

func runSimulate(opts *RootOptions, configDir, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		_ = formatter.Fail(err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Fail(err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	result, err := harness.RunWithOptions(scenario, harness.Options{
		Thresholds: nav.Thresholds{
			Displacement:   cfg.Nav.DisplacementThreshold,
			Velocity:       cfg.Nav.VelocityThreshold,
			DominanceRatio: cfg.Nav.DominanceRatio,
			StepX:          cfg.Nav.StepX,
			StepY:          cfg.Nav.StepY,
		},
		MinViewDuration: cfg.MinViewDuration(),
		KeepWindow:      cfg.Slot.KeepWindow,
	})
	if err != nil {
		_ = formatter.Fail(err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(SimulationResult{
			Scenario:     scenario.Name,
			Trace:        result.Trace,
			FinalThread:  result.FinalThread,
			FinalStitch:  result.FinalStitch,
			MountedSlots: result.MountedSlots,
			LiveEngines:  result.LiveEngines,
		})
	}

	fmt.Fprintf(formatter.Writer, "scenario: %s\n", scenario.Name)
	for _, line := range result.Trace {
		fmt.Fprintln(formatter.Writer, line)
	}
	fmt.Fprintf(formatter.Writer, "final: thread=%d stitch=%d slots=%d engines=%d\n",
		result.FinalThread, result.FinalStitch, result.MountedSlots, result.LiveEngines)
	return nil
}
