package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	fileMu  sync.Mutex
	fileOut *lumberjack.Logger
)

type LogData struct {
	Status       string  `json:"status"`
	Source       string  `json:"source"`
	Payload      any     `json:"payload"`
	ErrorDetails *string `json:"error_details,omitempty"`
	Timestamp    string  `json:"timestamp"`
}

// FileOptions controls rotation of the JSON audit log.
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func InitLogFile(path string, opts FileOptions) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		Panic("failed, creating log directory: " + err.Error())
	}

	fileMu.Lock()
	defer fileMu.Unlock()
	if fileOut != nil {
		_ = fileOut.Close()
	}
	fileOut = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	Infof("✅ Log file initialized at %s", path)
}

// CloseLogFile flushes and closes the rotating file, if any.
func CloseLogFile() {
	fileMu.Lock()
	defer fileMu.Unlock()
	if fileOut != nil {
		_ = fileOut.Close()
		fileOut = nil
	}
}

// WriteLogToFile appends one JSON line to the audit log.
// It is a no-op until InitLogFile has been called.
func WriteLogToFile(status string, source string, payload any, errorDetails *string) {
	logData := LogData{
		Status:       status,
		Source:       source,
		Payload:      payload,
		ErrorDetails: errorDetails,
		Timestamp:    time.Now().Format("2006-01-02 15:04:05"),
	}

	logJSON, err := json.Marshal(logData)
	if err != nil {
		return
	}

	fileMu.Lock()
	defer fileMu.Unlock()
	if fileOut == nil {
		return
	}
	if _, err := fileOut.Write(append(logJSON, '\n')); err != nil {
		log.Warnf("audit log write failed: %v", err)
	}
}
