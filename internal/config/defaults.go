package config

// DefaultConfig returns the configuration of the reference study.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			ID:                 1,
			Steps:              100,
			ReportingStructure: "self",
			OrgStructure:       "functional",
			AgentLogInterval:   1,
		},
		Site: SiteConfig{
			Width:            20,
			Height:           20,
			Placement:        "uniform",
			InitialBudget:    1_000_000,
			InitialEquipment: 500,
		},
		Events: EventsConfig{
			HazardProb:   0.01,
			DelayProb:    0.015,
			ResourceProb: 0.05,
		},
		Comm: CommConfig{
			FailureDedicated: 0.05,
			FailureSelf:      0.05,
			FailureNone:      0.10,
			MaxRelayHops:     6,
		},
		Roles: RolesConfig{
			Worker:   RoleConfig{Detection: 0.80, Reporting: 0.80},
			Manager:  RoleConfig{Detection: 0.90, Reporting: 0.90},
			Director: RoleConfig{Detection: 0.85, Reporting: 0.85},
			Reporter: RoleConfig{Detection: 0.95, Reporting: 0.95},
		},
		Storage: StorageConfig{
			Path:        "simulation_outputs/results.db",
			FallbackDir: "simulation_outputs/fallback",
			Attempts:    3,
			Backoff:     "100ms",
			LockTimeout: "10s",
		},
		Batch: BatchConfig{
			Runs:           60,
			Workers:        4,
			Configurations: []string{"dedicated/flat", "self/flat", "none/flat"},
		},
		API: APIConfig{
			Addr:              ":8080",
			RequestsPerMinute: 600,
			CORSOrigins:       []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
