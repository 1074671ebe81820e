package cmd

import (
	"errors"
	"fmt"

	"github.com/ziadkadry99/ops-console/internal/config"
	"github.com/ziadkadry99/ops-console/internal/db"
	"github.com/ziadkadry99/ops-console/internal/logging"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `opsconsole init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger; --verbose forces debug level.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.Log
	if verbose {
		lc.Level = "debug"
	}
	return logging.New(lc)
}

// openDatabases opens the audit and tracking databases. The returned
// close function closes both.
func openDatabases(cfg *config.Config) (auditDB, trackingDB *db.DB, closeAll func() error, err error) {
	auditDB, err = db.Open(cfg.Storage.AuditDB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening audit database: %w", err)
	}
	trackingDB, err = db.Open(cfg.Storage.TrackingDB)
	if err != nil {
		auditDB.Close()
		return nil, nil, nil, fmt.Errorf("opening tracking database: %w", err)
	}
	closeAll = func() error {
		return errors.Join(auditDB.Close(), trackingDB.Close())
	}
	return auditDB, trackingDB, closeAll, nil
}
