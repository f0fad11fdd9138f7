package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or a specific render job",
	Long: `Queries the render server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		cfg, _ := job["config"].(map[string]interface{})
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if cfg != nil {
			fmt.Printf("  Center: (%v, %v)  Zoom: %v\n", cfg["x"], cfg["y"], cfg["zoom"])
			fmt.Printf("  Palette: %v\n", cfg["palette"])
		}
		fmt.Printf("  Remaining: %v\n", job["remaining"])
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	if cfg, ok := status["config"].(map[string]interface{}); ok {
		fmt.Println("Viewpoint:")
		fmt.Printf("  x: %v\n", cfg["x"])
		fmt.Printf("  y: %v\n", cfg["y"])
		fmt.Printf("  zoom: %v\n", cfg["zoom"])
		fmt.Printf("  iterations: %v\n", cfg["iterations"])
		fmt.Printf("  dimensions: %vx%v\n", cfg["width"], cfg["height"])
		fmt.Printf("  palette: %v\n", cfg["palette"])
		fmt.Println()
	}

	fmt.Println("Progress:")
	if v, ok := status["remaining"]; ok {
		fmt.Printf("  Remaining pixels: %v\n", v)
	}
	if v, ok := status["iterationsCompleted"]; ok {
		fmt.Printf("  Iteration cap: %v\n", v)
	}
	if v, ok := status["elapsed"].(float64); ok {
		fmt.Printf("  Elapsed: %s\n", time.Duration(v*float64(time.Second)).Round(time.Millisecond))
	}
	if v, ok := status["error"].(string); ok && v != "" {
		fmt.Printf("\nError: %s\n", v)
	}

	return nil
}
