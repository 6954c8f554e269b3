package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"vidsum/internal/apihandlers"
)

var (
	serveAddr string
	servePort string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vidsum HTTP API server",
	Long: `Starts an HTTP server exposing job submission, status, live progress
streaming and cancellation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		// Bound memory over a long-lived server: terminal jobs are evicted
		// after the configured retention window.
		janitorCtx, stopJanitor := context.WithCancel(cmd.Context())
		defer stopJanitor()
		go appInstance.Janitor.Run(janitorCtx)

		router := gin.Default() // Includes logger and recovery middleware

		apiHandler := apihandlers.NewAPIHandler(appInstance)

		v1 := router.Group("/api/v1")
		{
			jobGroup := v1.Group("/jobs")
			{
				jobGroup.POST("", apiHandler.SubmitJobHandler)
				jobGroup.GET("", apiHandler.ListJobsHandler)
				jobGroup.GET("/:id", apiHandler.JobStatusHandler)
				jobGroup.GET("/:id/events", apiHandler.JobEventsHandler)
				jobGroup.POST("/:id/cancel", apiHandler.CancelJobHandler)
			}
		}

		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		if serveAddr == "" {
			serveAddr = appInstance.Config.Server.Addr
		}
		if servePort == "" {
			servePort = appInstance.Config.Server.Port
		}
		listenAddr := fmt.Sprintf("%s:%s", serveAddr, servePort)
		log.Printf("Starting vidsum API server on http://%s", listenAddr)

		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (defaults to server.addr)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (defaults to server.port)")
}
