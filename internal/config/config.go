// Package config holds the TOML run configuration.
package config

// Config holds the complete simulation configuration.
type Config struct {
	Run        RunConfig        `toml:"run"`
	Site       SiteConfig       `toml:"site"`
	Events     EventsConfig     `toml:"events"`
	Comm       CommConfig       `toml:"communication"`
	Roles      RolesConfig      `toml:"roles"`
	Population PopulationConfig `toml:"population"`
	Storage    StorageConfig    `toml:"storage"`
	Batch      BatchConfig      `toml:"batch"`
	API        APIConfig        `toml:"api"`
	Logging    LoggingConfig    `toml:"logging"`
}

type RunConfig struct {
	ID                 int    `toml:"id"`
	Steps              int    `toml:"steps"`
	Seed               int64  `toml:"seed"` // 0 draws a random seed
	ReportingStructure string `toml:"reporting_structure"`
	OrgStructure       string `toml:"org_structure"`
	AgentLogInterval   int    `toml:"agent_log_interval"`
}

type SiteConfig struct {
	Width            int     `toml:"width"`
	Height           int     `toml:"height"`
	Placement        string  `toml:"placement"`
	InitialBudget    float64 `toml:"initial_budget"`
	InitialEquipment int     `toml:"initial_equipment"`
}

type EventsConfig struct {
	HazardProb   float64 `toml:"hazard_prob"`
	DelayProb    float64 `toml:"delay_prob"`
	ResourceProb float64 `toml:"resource_prob"`
}

type CommConfig struct {
	FailureDedicated float64 `toml:"failure_dedicated"`
	FailureSelf      float64 `toml:"failure_self"`
	FailureNone      float64 `toml:"failure_none"`
	MaxRelayHops     int     `toml:"max_relay_hops"`
}

type RoleConfig struct {
	Detection float64 `toml:"detection"`
	Reporting float64 `toml:"reporting"`
}

type RolesConfig struct {
	Worker   RoleConfig `toml:"worker"`
	Manager  RoleConfig `toml:"manager"`
	Director RoleConfig `toml:"director"`
	Reporter RoleConfig `toml:"reporter"`
}

// PopulationConfig overrides the role counts. Unset counts follow the
// organizational structure and reporting policy.
type PopulationConfig struct {
	Workers   *int `toml:"workers,omitempty"`
	Managers  *int `toml:"managers,omitempty"`
	Directors *int `toml:"directors,omitempty"`
	Reporters *int `toml:"reporters,omitempty"`
}

type StorageConfig struct {
	Path        string `toml:"path"`
	FallbackDir string `toml:"fallback_dir"`
	Attempts    int    `toml:"attempts"`
	Backoff     string `toml:"backoff"`
	LockTimeout string `toml:"lock_timeout"`
}

type BatchConfig struct {
	Runs    int `toml:"runs"`
	Workers int `toml:"workers"`
	// Configurations lists "reporting/org" pairs to sweep.
	Configurations []string `toml:"configurations"`
}

type APIConfig struct {
	Addr string `toml:"addr"`

	// RequestsPerMinute limits each client address; 0 disables the limit.
	RequestsPerMinute int      `toml:"requests_per_minute"`
	CORSOrigins       []string `toml:"cors_origins"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}
