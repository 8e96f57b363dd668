package monitor

import "time"

// Config holds the background monitoring settings.
type Config struct {
	// ScanInterval is how stale a domain's last scan may get before it is
	// scanned again.
	ScanInterval time.Duration `env:"MONITOR_SCAN_INTERVAL" envDefault:"24h"`

	// ScanCheckInterval is how often the scan service looks for due domains.
	ScanCheckInterval time.Duration `env:"MONITOR_SCAN_CHECK_INTERVAL" envDefault:"1h"`

	// RenewalWindowDays is how many days before expiry a certificate
	// becomes due for renewal.
	RenewalWindowDays int `env:"MONITOR_RENEWAL_WINDOW_DAYS" envDefault:"30"`

	// RenewalCheckInterval is how often the renewal service looks for due
	// certificates.
	RenewalCheckInterval time.Duration `env:"MONITOR_RENEWAL_CHECK_INTERVAL" envDefault:"24h"`
}

// DefaultConfig returns the monitoring defaults.
func DefaultConfig() Config {
	return Config{
		ScanInterval:         24 * time.Hour,
		ScanCheckInterval:    time.Hour,
		RenewalWindowDays:    30,
		RenewalCheckInterval: 24 * time.Hour,
	}
}
