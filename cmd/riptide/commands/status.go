package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/riptide/pkg/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running instance's status endpoint",
	RunE:  runStatus,
}

var statusHost string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusHost, "host", "", "API host (default localhost:$PORT)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	host := statusHost
	if host == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		host = "localhost:" + cfg.Port
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/api/v1/status", host))
	if err != nil {
		return fmt.Errorf("status query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status query: %s: %s", resp.Status, body)
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
	return nil
}
