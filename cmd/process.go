package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vidsum/internal/models"
)

// processCmd runs the whole pipeline once for a local file, in-process,
// printing progress to the terminal. Same orchestration core as the server,
// no HTTP involved.
var processCmd = &cobra.Command{
	Use:   "process <media-file>",
	Short: "Run the summarization pipeline on a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open media file: %w", err)
		}
		defer f.Close()

		id, err := appInstance.Jobs.Submit(cmd.Context(), f, filepath.Base(args[0]))
		if err != nil {
			return fmt.Errorf("submit job: %w", err)
		}
		fmt.Printf("Job %s started\n", id)

		events, err := appInstance.Jobs.Events(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("follow job: %w", err)
		}
		for ev := range events {
			switch ev.Type {
			case models.EventTypeStatus:
				if ev.Success != nil && !*ev.Success {
					fmt.Printf("[%s] %s\n", color.RedString("status"), ev.Step)
				} else {
					fmt.Printf("[%s] %s\n", color.GreenString("status"), ev.Step)
				}
			case models.EventTypeTranscript:
				fmt.Printf("[%s] %s\n", color.CyanString("transcript"), ev.Text)
			case models.EventTypeSummary:
				fmt.Printf("[%s] %s\n", color.YellowString("summary"), ev.Text)
			}
		}

		job, err := appInstance.Jobs.Status(id)
		if err != nil {
			return err
		}
		switch job.Stage {
		case models.StageFinished:
			fmt.Printf("\n%s\n\n%s\n", color.GreenString("Summary:"), job.Summary)
			return nil
		case models.StageCancelled:
			fmt.Println(color.YellowString("Job was cancelled."))
			return nil
		default:
			return fmt.Errorf("job %s: %s", job.Stage, job.Error)
		}
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
