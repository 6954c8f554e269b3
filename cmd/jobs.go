package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"vidsum/internal/models"
)

var jobsServer string

// jobsCmd lists all jobs known to a running vidsum server.
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs on a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(jobsServer + "/api/v1/jobs")
		if err != nil {
			return fmt.Errorf("query server: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %s", resp.Status)
		}

		var body struct {
			Jobs []models.Job `json:"jobs"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		if len(body.Jobs) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}
		renderJobTable(body.Jobs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.Flags().StringVar(&jobsServer, "server", "http://localhost:8080", "Base URL of the vidsum server")
}
