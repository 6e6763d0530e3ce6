// Package types provides configuration types for the simulation backend.
package types

import (
	"fmt"
	"time"
)

// BacktestConfig represents the configuration for a backtest run
type BacktestConfig struct {
	Symbol    string    `json:"symbol,omitempty"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Seed      string    `json:"seed"`
	// Mode is the intended deployment target, recorded at creation and
	// used as the default when a deploy call does not name one.
	Mode                   DeployMode `json:"mode,omitempty"`
	InitialCapital         float64    `json:"initialCapital"`
	TransactionCosts       bool       `json:"transactionCostsEnabled,omitempty"`
	CommissionRate         float64    `json:"commissionRate,omitempty"`
	MaxDrawdownFilter      bool       `json:"maxDrawdownFilterEnabled,omitempty"`
	MaxDrawdownFilterLimit float64    `json:"maxDrawdownFilterLimit,omitempty"`
}

// DefaultBacktestConfig returns the engine defaults used when the caller
// leaves fields unset.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		StartDate:              time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:                time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Seed:                   "vibe",
		InitialCapital:         10000,
		CommissionRate:         0.001,
		MaxDrawdownFilterLimit: -20,
	}
}

// Validate reports whether the configuration can produce a simulation.
func (c BacktestConfig) Validate() error {
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("end date %s before start date %s",
			c.EndDate.Format("2006-01-02"), c.StartDate.Format("2006-01-02"))
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %g", c.InitialCapital)
	}
	if c.CommissionRate < 0 {
		return fmt.Errorf("commission rate must be non-negative, got %g", c.CommissionRate)
	}
	if c.Mode != "" && c.Mode != DeployModePaper && c.Mode != DeployModeLive {
		return fmt.Errorf("mode must be %s or %s, got %q", DeployModePaper, DeployModeLive, c.Mode)
	}
	return nil
}

// ServerConfig represents the API server configuration
type ServerConfig struct {
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `json:"allowedOrigins" mapstructure:"allowed_origins"`
	MaxParallelRuns int           `json:"maxParallelRuns" mapstructure:"max_parallel_runs"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		MaxParallelRuns: 4,
	}
}
