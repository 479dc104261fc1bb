// planctl is the operator CLI for planner-core: submit compute runs, watch
// them to completion, and print config templates.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/microgridplanner/planner-core/internal/compute"
	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(base, token string) *client {
	return &client{base: base, token: token, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s -> %s: %s", method, path, resp.Status, string(b))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Status implements the poll source for the watch command over the REST API.
func (c *client) Status(ctx context.Context, computeID string) (*models.ComputeStatusResponse, error) {
	var status models.ComputeStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/compute/status/"+computeID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func main() {
	var (
		serverURL string
		token     string
	)

	root := &cobra.Command{
		Use:           "planctl",
		Short:         "Operator CLI for the planner-core API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("PLANNER_SERVER", "http://localhost:8080"), "planner-core base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("PLANNER_TOKEN"), "bearer token (or PLANNER_TOKEN)")

	root.AddCommand(submitCmd(&serverURL, &token))
	root.AddCommand(statusCmd(&serverURL, &token))
	root.AddCommand(watchCmd(&serverURL, &token))
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func submitCmd(serverURL, token *string) *cobra.Command {
	var req models.ComputeRequest
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <model>",
		Short: "Submit a compute run (simulate, sizing or resilience)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := models.ModelType(args[0])
			if !model.Valid() {
				return fmt.Errorf("unknown model type %q", args[0])
			}

			c := newClient(*serverURL, *token)
			var resp struct {
				Data models.ComputeSubmitResponse `json:"data"`
			}
			path := fmt.Sprintf("/api/v1/%s/compute", model)
			if err := c.do(cmd.Context(), http.MethodPost, path, &req, &resp); err != nil {
				return err
			}

			if resp.Data.Duplicate {
				fmt.Printf("already computed: %s\n", resp.Data.ComputeID)
			} else {
				fmt.Printf("submitted: %s\n", resp.Data.ComputeID)
			}
			if !watch {
				return nil
			}
			return watchJob(cmd.Context(), c, resp.Data.ComputeID)
		},
	}

	cmd.Flags().StringVar(&req.PowerloadID, "powerload", "", "powerload id (required)")
	cmd.Flags().StringVar(&req.GridID, "grid", "", "grid id")
	cmd.Flags().StringVar(&req.StartDateTime, "start", "", `analysis start "MM/DD/YYYY HH:mm" (required)`)
	cmd.Flags().StringVar(&req.EndDateTime, "end", "", `analysis end "MM/DD/YYYY HH:mm" (required)`)
	cmd.Flags().StringVar(&req.DisturbanceStartDateTime, "disturbance-start", "", "disturbance start (resilience)")
	cmd.Flags().StringVar(&req.DisturbanceID, "disturbance", "", "disturbance id (resilience)")
	cmd.Flags().StringVar(&req.RepairID, "repair", "", "repair id (resilience)")
	cmd.Flags().IntVar(&req.NumRuns, "runs", 0, "number of resilience runs")
	cmd.Flags().IntVar(&req.NumShiftHours, "shift-hours", 0, "hours to shift between resilience runs")
	cmd.Flags().IntVar(&req.NumLevels, "levels", 0, "sizing sweep levels")
	cmd.Flags().BoolVar(&watch, "watch", false, "poll until the run finishes")
	_ = cmd.MarkFlagRequired("powerload")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func statusCmd(serverURL, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <compute-id>",
		Short: "Print the current status of a compute run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*serverURL, *token)
			status, err := c.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStatus(status)
			return nil
		},
	}
}

func watchCmd(serverURL, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <compute-id>",
		Short: "Poll a compute run until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchJob(cmd.Context(), newClient(*serverURL, *token), args[0])
		},
	}
}

func watchJob(ctx context.Context, c *client, computeID string) error {
	watcher := compute.NewWatcher(c, logger.New("error"))
	success, err := watcher.Wait(ctx, computeID, func() {
		fmt.Println("still running...")
	})
	if err != nil {
		return err
	}
	if success {
		fmt.Printf("compute %s succeeded\n", computeID)
		return nil
	}
	return fmt.Errorf("compute %s failed", computeID)
}

func printStatus(status *models.ComputeStatusResponse) {
	switch {
	case status.Success == nil:
		fmt.Printf("%s: running\n", status.ComputeID)
	case *status.Success:
		fmt.Printf("%s: succeeded\n", status.ComputeID)
	default:
		fmt.Printf("%s: failed (%s)\n", status.ComputeID, status.Error)
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	var environment string
	template := &cobra.Command{
		Use:   "template",
		Short: "Print a config file template for an environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(config.GenerateConfigTemplate(environment))
			return nil
		},
	}
	template.Flags().StringVar(&environment, "environment", "development", "environment the template targets")
	cmd.AddCommand(template)
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
