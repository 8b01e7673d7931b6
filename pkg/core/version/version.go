// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     version
// Description: Central version management for all services
// ============================================================================

package version

// Version constants for all platform services
const (
	// Platform version
	Platform = "1.0.0"

	// Service versions
	Gateway  = "1.0.0"
	Market   = "1.0.0"
	Advisor  = "1.0.0"
	Settings = "1.0.0"
	Ledger   = "1.0.0"
)

// ServiceVersion returns the version for a given service name
func ServiceVersion(name string) string {
	switch name {
	case "gateway":
		return Gateway
	case "market":
		return Market
	case "advisor":
		return Advisor
	case "settings":
		return Settings
	case "ledger":
		return Ledger
	default:
		return Platform
	}
}
