package cmd

import (
	"fmt"
	"runtime"

	"github.com/nexus-finance/platform/pkg/core/version"
	"github.com/spf13/cobra"
)

var (
	GitCommit = "development"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Shows version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Nexus v%s\n", version.Platform)
		fmt.Printf("  Gateway:    %s\n", version.Gateway)
		fmt.Printf("  Market:     %s\n", version.Market)
		fmt.Printf("  Advisor:    %s\n", version.Advisor)
		fmt.Printf("  Settings:   %s\n", version.Settings)
		fmt.Printf("  Ledger:     %s\n", version.Ledger)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Date: %s\n", BuildDate)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
