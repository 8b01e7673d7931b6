package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexus-finance/platform/internal/gateway"
	marketserver "github.com/nexus-finance/platform/internal/market/server"
	settingsserver "github.com/nexus-finance/platform/internal/settings/server"
	"github.com/nexus-finance/platform/pkg/core/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [service]",
	Short: "Starts the gateway or a single service",
	Long: `Starts Nexus services.

Without an argument the API gateway is started, which hosts all
services in one process. With an argument only the named service
is started.

Services:
  gateway  - API Gateway (HTTP :8080, all services)
  market   - Market data service (HTTP :8081)
  settings - Settings service (HTTP :8082)

Examples:
  nexus serve            # Start the gateway
  nexus serve market     # Start only the market service`,
	ValidArgs: []string{"gateway", "market", "settings"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Warning: config not loaded (%v), using defaults\n", err)
		cfg = config.Default()
	}

	service := "gateway"
	if len(args) == 1 {
		service = args[0]
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	switch service {
	case "gateway":
		return serveGateway(cfg, sigCh)
	case "market":
		srv, err := marketserver.New(cfg)
		if err != nil {
			return err
		}
		return runUntilSignal(sigCh, "market", srv.Address(), srv.StartAsync, srv.Stop)
	case "settings":
		srv, err := settingsserver.New(cfg)
		if err != nil {
			return err
		}
		return runUntilSignal(sigCh, "settings", srv.Address(), srv.StartAsync, srv.Stop)
	default:
		return fmt.Errorf("unknown service: %s", service)
	}
}

func serveGateway(cfg *config.Config, sigCh chan os.Signal) error {
	srv, err := gateway.New(cfg)
	if err != nil {
		return err
	}
	return runUntilSignal(sigCh, "gateway", srv.Address(), srv.StartAsync, srv.Stop)
}

func runUntilSignal(sigCh chan os.Signal, name, addr string,
	start func(), stop func(context.Context) error) error {

	start()
	fmt.Printf("  [+] %s listening on %s\n", name, addr)
	fmt.Println("Press Ctrl+C to stop")

	<-sigCh
	fmt.Println("\nStopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return stop(ctx)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadFromEnv()
}
