package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedloom/stitchgrid/internal/journal"
)

// ViewsResult is the views command's JSON payload.
type ViewsResult struct {
	VideoID string `json:"video_id"`
	Views   int    `json:"views"`
	Loops   int    `json:"loops"`
}

// NewViewsCommand creates the views command.
func NewViewsCommand(rootOpts *RootOptions) *cobra.Command {
	var journalPath string

	cmd := &cobra.Command{
		Use:           "views <video-id>",
		Short:         "Report recorded views and loops for a video",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViews(rootOpts, journalPath, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "stitchgrid.db", "path to the view journal database")
	return cmd
}

func runViews(opts *RootOptions, journalPath, videoID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	j, err := journal.Open(journalPath)
	if err != nil {
		_ = formatter.Fail(err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer j.Close()

	ctx := cmd.Context()
	views, err := j.ViewCount(ctx, videoID)
	if err != nil {
		_ = formatter.Fail(err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	loops, err := j.LoopCount(ctx, videoID)
	if err != nil {
		_ = formatter.Fail(err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(ViewsResult{VideoID: videoID, Views: views, Loops: loops})
	}
	fmt.Fprintf(formatter.Writer, "%s: %d view(s), %d loop(s)\n", videoID, views, loops)
	return nil
}
