package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result
// to path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to ops-console! Let's configure the activity feed.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Listen port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 2. Databases.
	auditPrompt := promptui.Prompt{
		Label:   "Audit trail database",
		Default: cfg.Storage.AuditDB,
	}
	if cfg.Storage.AuditDB, err = auditPrompt.Run(); err != nil {
		return nil, fmt.Errorf("audit database: %w", err)
	}

	trackingPrompt := promptui.Prompt{
		Label:   "Tracking log database",
		Default: cfg.Storage.TrackingDB,
	}
	if cfg.Storage.TrackingDB, err = trackingPrompt.Run(); err != nil {
		return nil, fmt.Errorf("tracking database: %w", err)
	}

	// 3. Route tracking.
	trackPrompt := promptui.Select{
		Label: "Record console route visits",
		Items: []string{"yes", "no"},
	}
	trackIdx, _, err := trackPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("tracking selection: %w", err)
	}
	cfg.Tracking.Enabled = trackIdx == 0

	// 4. Log format.
	formatPrompt := promptui.Select{
		Label: "Log format",
		Items: []string{
			"json    (structured, for log shippers)",
			"console (human readable)",
		},
	}
	formatIdx, _, err := formatPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("log format selection: %w", err)
	}
	cfg.Log.Format = []string{"json", "console"}[formatIdx]

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
