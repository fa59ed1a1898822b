package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const logPrefix = "debug-"

var (
	debugMu   sync.Mutex
	debugFile *os.File
	debugDir  string
)

// ConfigureDebug directs Debug output to a new timestamped file in dir.
// Until it is called, Debug output is discarded.
func ConfigureDebug(dir string) {
	debugMu.Lock()
	defer debugMu.Unlock()

	if debugFile != nil {
		_ = debugFile.Close()
		debugFile = nil
	}
	debugDir = dir
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	name := logPrefix + time.Now().Format("20060102-150405.000") + ".log"
	debugFile, _ = os.Create(filepath.Join(dir, name))
}

// Debug writes a message to the debug log file
func Debug(format string, args ...any) {
	// add timestamp to each debug message
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	debugMu.Lock()
	defer debugMu.Unlock()
	if debugFile != nil {
		fmt.Fprintf(debugFile, "[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
		_ = debugFile.Sync() // Flush immediately
	}
}

// CleanupLogs removes all but the newest keep log files from the configured
// log directory.
func CleanupLogs(keep int) {
	debugMu.Lock()
	dir := debugDir
	debugMu.Unlock()
	if dir == "" || keep < 0 {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var logs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), logPrefix) || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		logs = append(logs, e.Name())
	}
	if len(logs) <= keep {
		return
	}

	// Names embed the start time, so lexical order is chronological.
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-keep] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}
