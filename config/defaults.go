package config

import "time"

// Default settings for the funnel report pipeline. Every value can be
// overridden through the FUNNEL_* environment variables parsed in Load.

const (
	DefaultDrillHost     = "localhost"
	DefaultDrillPort     = 8047
	DefaultDrillBasePath = "/data/user-funnel"

	DefaultOutputDir      = "./output"
	DefaultRecipientsPath = "recipients.json"

	// Entity reports are independent; this bounds how many are generated
	// at once when the orchestrator runs them concurrently.
	DefaultMaxConcurrentEntities = 4

	DefaultQueryAttempts = 3
)

const (
	DefaultQueryTimeout = 30 * time.Second
)
