package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedloom/stitchgrid/internal/harness"
)

// ValidationResult holds per-file validation outcomes.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario YAML files: structure, step directives and
broadcast topics. Faster than simulate for authoring feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	errs := make(map[string]string)
	for _, path := range paths {
		if _, err := harness.LoadScenario(path); err != nil {
			errs[path] = err.Error()
		}
	}

	if len(errs) > 0 {
		result := ValidationResult{Valid: false, Errors: errs}
		if formatter.Format == "json" {
			_ = formatter.Fail("validation failed", result)
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Validation failed")
			for path, msg := range errs {
				fmt.Fprintf(formatter.Writer, "  %s: %s\n", path, msg)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", len(errs)))
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d scenario(s) valid\n", len(paths))
	return nil
}
