package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PersistentHistoryLog writes history events to disk with tamper detection
type PersistentHistoryLog struct {
	logDir        string
	currentFile   *os.File
	writer        *bufio.Writer
	lastHash      string
	eventCount    int64
	bytesWritten  int64
	rotationSize  int64 // Rotate when file exceeds this size
	rotationTime  time.Duration
	lastRotation  time.Time
	compress      bool
	retentionDays int
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewPersistentHistoryLog creates a new persistent history log
func NewPersistentHistoryLog(config *PersistentConfig) (*PersistentHistoryLog, error) {
	// Create log directory if it doesn't exist
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history log directory: %w", err)
	}

	log := &PersistentHistoryLog{
		logDir:        config.LogDir,
		rotationSize:  config.RotationSize,
		rotationTime:  config.RotationTime,
		compress:      config.Compress,
		retentionDays: config.RetentionDays,
		lastRotation:  time.Now(),
		stopCh:        make(chan struct{}),
	}

	// Open current log file
	if err := log.openLogFile(); err != nil {
		return nil, err
	}

	// Load last hash from previous log entries
	if err := log.loadLastHash(); err != nil {
		// Not fatal, just means this is the first run
		log.lastHash = ""
	}

	// Start background rotation and cleanup workers
	log.wg.Add(2)
	go log.rotationWorker()
	go log.cleanupWorker()

	return log, nil
}

// RecordSeverity writes a history event to disk with the given severity
func (l *PersistentHistoryLog) RecordSeverity(event *Event, severity Severity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Create persistent event with hash chain
	persistentEvent := &PersistentEvent{
		Event:        event,
		Severity:     severity,
		PreviousHash: l.lastHash,
	}

	// Calculate event hash
	eventData, err := json.Marshal(persistentEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	hash := sha256.Sum256(eventData)
	persistentEvent.EventHash = hex.EncodeToString(hash[:])
	l.lastHash = persistentEvent.EventHash

	// Re-marshal with hash
	eventData, err = json.Marshal(persistentEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal event with hash: %w", err)
	}

	// Write to file (one event per line, JSONL format)
	eventLine := append(eventData, '\n')
	n, err := l.writer.Write(eventLine)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	// Flush to ensure it's written to OS buffer
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	// Sync to disk so the entry survives a crash before we report success.
	// Assessment evidence must never depend on a clean shutdown.
	if err := l.currentFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync history log to disk: %w", err)
	}

	l.eventCount++
	l.bytesWritten += int64(n)

	// Check if rotation is needed
	if l.shouldRotate() {
		return l.rotate()
	}

	return nil
}

// Record writes an event with Info severity (satisfies the Recorder interface)
func (l *PersistentHistoryLog) Record(event *Event) error {
	return l.RecordSeverity(event, SeverityInfo)
}

// RecordCritical writes a critical severity event
func (l *PersistentHistoryLog) RecordCritical(event *Event) error {
	return l.RecordSeverity(event, SeverityCritical)
}

// RecordWarning writes a warning severity event
func (l *PersistentHistoryLog) RecordWarning(event *Event) error {
	return l.RecordSeverity(event, SeverityWarning)
}

// openLogFile opens the current history log file
func (l *PersistentHistoryLog) openLogFile() error {
	filename := filepath.Join(l.logDir, l.getCurrentLogFilename())

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	// Get current file size (do this before assigning to l.currentFile)
	stat, err := file.Stat()
	if err != nil {
		file.Close() // Close file on error path to prevent leak
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	l.currentFile = file
	// Note: bufio.NewWriter does not return an error - it always succeeds
	l.writer = bufio.NewWriter(file)
	l.bytesWritten = stat.Size()

	return nil
}

// getCurrentLogFilename returns the filename for the current log file
func (l *PersistentHistoryLog) getCurrentLogFilename() string {
	return fmt.Sprintf("history-%s.jsonl", time.Now().Format("2006-01-02"))
}

// archivedLogFilename returns a unique name for a rotated log file
func (l *PersistentHistoryLog) archivedLogFilename() string {
	now := time.Now()
	return fmt.Sprintf("history-%s-%d.jsonl", now.Format("2006-01-02"), now.UnixNano())
}

// GetEventCount returns the total number of events logged in the current file
func (l *PersistentHistoryLog) GetEventCount() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eventCount
}

// Close closes the history log
func (l *PersistentHistoryLog) Close() error {
	// Stop background workers
	close(l.stopCh)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	var flushErr error
	if l.writer != nil {
		flushErr = l.writer.Flush()
	}

	var closeErr error
	if l.currentFile != nil {
		closeErr = l.currentFile.Close() // Always close file, even if flush failed
	}

	// Return the first error we encountered
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
