package constants

import "time"

const (
	WCLTimeout      = 30 * time.Second
	SheetsTimeout   = 60 * time.Second
	RunTimeout      = 10 * time.Minute
	DatabaseTimeout = 5 * time.Second
)

const (
	WCLMaxRetries     = 4
	WCLRetryBase      = 1 * time.Second
	WCLFetchParallel  = 4
	NightComputeLimit = 4
	TokenEarlyExpiry  = 60 * time.Second

	// Reports whose end time is within this window of the fetch are still
	// being appended to and get the short cache TTL.
	ReportFreshWindow = 24 * time.Hour
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	MsPerMinute = 60_000
)
