package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/pricewatcher/logger"
)

// FailureLog records failed checks for later inspection
type FailureLog interface {
	LogFailure(platform, targetID string, err error)
}

// FileFailureLog appends one line per failed check to a file
type FileFailureLog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileFailureLog creates a failure log writing to path
func NewFileFailureLog(path string) *FileFailureLog {
	return &FileFailureLog{path: path, now: time.Now}
}

// LogFailure writes the failure with platform, target and timestamp
func (l *FileFailureLog) LogFailure(platform, targetID string, err error) {
	if err == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Warn("failed to open failure log %s: %v", l.path, fileErr)
		return
	}
	defer f.Close()

	timestamp := l.now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] [%s] %s\n", timestamp, platform, targetID, err.Error())
}

// NopFailureLog discards everything
type NopFailureLog struct{}

func (NopFailureLog) LogFailure(string, string, error) {}
