package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nexus-finance/platform/pkg/core/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the status of running services",
	Long: `Shows the status of Nexus services.

Checks reachability and health of each service endpoint.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.Default()
	}

	fmt.Println("Nexus Status")
	fmt.Println("============")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	services := []struct {
		name string
		port int
	}{
		{"Gateway", cfg.Gateway.Port},
		{"Market", cfg.Market.Port},
		{"Settings", cfg.Settings.Port},
	}

	for _, svc := range services {
		status, err := checkHealth(ctx, svc.port)
		icon := "[+]"
		text := status
		if err != nil {
			icon = "[-]"
			text = "unreachable"
		}
		fmt.Printf("  %s %-10s :%d - %s\n", icon, svc.name, svc.port, text)
	}
	return nil
}

func checkHealth(ctx context.Context, port int) (string, error) {
	url := fmt.Sprintf("http://localhost:%d/api/health", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var report struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return "", err
	}
	if report.Status == "" {
		return "", fmt.Errorf("no status in response")
	}
	return report.Status, nil
}
