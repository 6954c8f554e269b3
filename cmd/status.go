package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"vidsum/internal/models"
)

var statusServer string

// statusCmd queries a running vidsum server for one job's snapshot.
var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current status of a job on a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := fmt.Sprintf("%s/api/v1/jobs/%s", statusServer, args[0])
		resp, err := http.Get(url)
		if err != nil {
			return fmt.Errorf("query server: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("job %s not found", args[0])
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %s", resp.Status)
		}

		var job models.Job
		if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		renderJobTable([]models.Job{job})

		if job.Transcript != "" {
			fmt.Printf("\nTranscript:\n%s\n", job.Transcript)
		}
		if job.Summary != "" {
			fmt.Printf("\nSummary:\n%s\n", job.Summary)
		}
		if job.Error != "" {
			fmt.Printf("\nError: %s\n", color.RedString(job.Error))
		}
		return nil
	},
}

func renderJobTable(jobs []models.Job) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Job ID", "Stage", "Progress", "Cancelled", "Source", "Updated At"})
	table.SetBorder(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, job := range jobs {
		table.Append([]string{
			job.ID,
			stageString(job.Stage),
			strconv.Itoa(job.Progress) + "%",
			strconv.FormatBool(job.Cancelled),
			job.SourceName,
			job.UpdatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}

func stageString(stage models.Stage) string {
	switch stage {
	case models.StageFinished:
		return color.GreenString(string(stage))
	case models.StageFailed:
		return color.RedString(string(stage))
	case models.StageCancelled:
		return color.YellowString(string(stage))
	default:
		return string(stage)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusServer, "server", "http://localhost:8080", "Base URL of the vidsum server")
}
