package avio

import (
	"sync"

	"github.com/pion/logging"
)

// Native log levels (AV_LOG_*).
const (
	LogQuiet   = -8
	LogPanic   = 0
	LogFatal   = 8
	LogError   = 16
	LogWarning = 24
	LogInfo    = 32
	LogVerbose = 40
	LogDebug   = 48
	LogTrace   = 56
)

// LogEntry is one native log line.
type LogEntry struct {
	Count    uint64 // Monotonic error count at the time of the line
	Level    int
	Category string
	Message  string
}

// LogBridge exposes the most recent native error line. Check attaches it to
// an error at most once per Count.
type LogBridge interface {
	LastError() (LogEntry, bool)
}

// AdaptLevel maps a native log level onto the nearest pion level at or
// above its severity.
func AdaptLevel(level int) logging.LogLevel {
	switch {
	case level <= LogError:
		return logging.LogLevelError
	case level <= LogWarning:
		return logging.LogLevelWarn
	case level <= LogInfo:
		return logging.LogLevelInfo
	case level <= LogDebug:
		return logging.LogLevelDebug
	default:
		return logging.LogLevelTrace
	}
}

// LogCapture records native log lines, forwards them to a leveled logger
// and remembers the last error-level line for Check.
type LogCapture struct {
	mu      sync.Mutex
	level   int
	count   uint64
	last    LogEntry
	hasLast bool
	log     logging.LeveledLogger
}

// NewLogCapture creates a LogCapture forwarding to the "avio:native" scope.
func NewLogCapture(factory logging.LoggerFactory) *LogCapture {
	return &LogCapture{
		level: LogInfo,
		log:   factory.NewLogger("avio:native"),
	}
}

// SetLevel sets the most verbose level forwarded to the logger, and the
// native library's own threshold when it is loaded.
func (c *LogCapture) SetLevel(level int) {
	c.mu.Lock()
	c.level = level
	c.mu.Unlock()
	setNativeLogLevel(level)
}

// Level returns the current threshold.
func (c *LogCapture) Level() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Record handles one native log line.
func (c *LogCapture) Record(level int, category, message string) {
	c.mu.Lock()
	if level <= LogError {
		c.count++
		c.last = LogEntry{Count: c.count, Level: level, Category: category, Message: message}
		c.hasLast = true
	}
	forward := level <= c.level
	c.mu.Unlock()

	if !forward {
		return
	}
	switch AdaptLevel(level) {
	case logging.LogLevelError:
		c.log.Errorf("[%s] %s", category, message)
	case logging.LogLevelWarn:
		c.log.Warnf("[%s] %s", category, message)
	case logging.LogLevelInfo:
		c.log.Infof("[%s] %s", category, message)
	case logging.LogLevelDebug:
		c.log.Debugf("[%s] %s", category, message)
	default:
		c.log.Tracef("[%s] %s", category, message)
	}
}

// LastError implements LogBridge.
func (c *LogCapture) LastError() (LogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}
