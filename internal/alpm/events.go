package alpm

// LogLevel classifies messages passed to a LogCallback. The values form
// a bitmask so callers can filter by severity.
type LogLevel uint

const (
	LogError LogLevel = 1 << iota
	LogWarning
	LogDebug
	LogFunction
)

// LogCallback receives diagnostic messages from a handle. Messages are
// newline-terminated; sinks should write them verbatim after any prefix.
type LogCallback func(level LogLevel, message string)

// DownloadEventKind is the stage a file transfer has reached.
type DownloadEventKind int

const (
	DownloadInit DownloadEventKind = iota
	DownloadProgress
	DownloadCompleted
)

// DownloadResult is the outcome of a completed transfer.
type DownloadResult int

const (
	DownloadSuccess DownloadResult = iota
	DownloadUpToDate
	DownloadFailed
)

// DownloadEvent describes a state change for one file transfer. Result
// is meaningful only when Kind is DownloadCompleted.
type DownloadEvent struct {
	Kind   DownloadEventKind
	Result DownloadResult
	Total  int64
}

// DownloadCallback receives per-file transfer events. The filename is
// the bare file name, not a path or URL.
type DownloadCallback func(filename string, event DownloadEvent)

// Event is a lifecycle notification emitted by a handle.
type Event interface {
	event()
}

// DatabaseMissingEvent fires when a registered sync database has no file
// on disk and is being treated as empty.
type DatabaseMissingEvent struct {
	DBName string
}

func (DatabaseMissingEvent) event() {}

// EventCallback receives lifecycle events.
type EventCallback func(Event)
