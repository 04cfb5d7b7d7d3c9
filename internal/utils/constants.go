package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for analysis requests
	DefaultRequestTimeout = 30 * time.Second

	// PublishTimeout bounds the publishing of anomaly events for one report
	PublishTimeout = 5 * time.Second

	// QueueConnectTimeout is the timeout for establishing broker connections
	QueueConnectTimeout = 5 * time.Second
)

// =============================================================================
// Queue Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	QueueTypeNone   QueueType = "none"
	QueueTypeNATS   QueueType = "nats"
	QueueTypeRedis  QueueType = "redis"
	QueueTypeKafka  QueueType = "kafka"
	QueueTypeMemory QueueType = "memory"
)

const (
	// MemoryQueueCapacity is the number of messages held per subject by the memory publisher and subscriber
	MemoryQueueCapacity = 10000

	// DefaultStreamPrefix names JetStream streams and Redis stream keys
	DefaultStreamPrefix = "brutlag"
)

// =============================================================================
// Report Constants
// =============================================================================

// ReportBackend selects where analysis reports are kept
type ReportBackend string

const (
	ReportBackendFile   ReportBackend = "file"
	ReportBackendSQLite ReportBackend = "sqlite"
	ReportBackendMemory ReportBackend = "memory"
)

const (
	// ReportFileExt is the extension of report files before any compression suffix
	ReportFileExt = ".json"

	// ReportsDBFile is the SQLite database name inside the reports data directory
	ReportsDBFile = "reports.db"

	// MaxListedReports caps the number of reports returned by a listing
	MaxListedReports = 1000
)
