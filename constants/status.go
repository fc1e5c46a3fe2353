package constants

// JobStatus is the canonical status for rows in extraction_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning  JobStatus = "RUNNING"      // pipeline in progress
	JobStatusParsed   JobStatus = "PARSED"       // completion parsed as JSON, stats computed
	JobStatusFallback JobStatus = "RAW_FALLBACK" // completion was not valid JSON; raw text kept
	JobStatusFailed   JobStatus = "FAILED"       // terminal failure before interpretation
)
