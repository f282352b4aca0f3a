package audit

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestHistoryLogDurability verifies that history logs survive process crashes
// This is what makes the log usable as assessment evidence (ISO/SAE 21434 audits)
func TestHistoryLogDurability(t *testing.T) {
	// Create temporary directory for test
	tmpDir := t.TempDir()

	// Create history logger
	config := &PersistentConfig{
		LogDir:        tmpDir,
		RotationSize:  100 * 1024 * 1024,
		RotationTime:  24 * time.Hour,
		Compress:      false,
		RetentionDays: 365,
	}

	log, err := NewPersistentHistoryLog(config)
	if err != nil {
		t.Fatalf("Failed to create history log: %v", err)
	}

	// Write a critical history event
	event := &Event{
		ID:         "test-001",
		Timestamp:  time.Now(),
		ProjectID:  "PRJ_001",
		Actor:      "test-actor",
		Action:     ActionUpdate,
		EntityType: EntityScenario,
		EntityID:   "TS_001",
		Status:     StatusSuccess,
		Metadata: map[string]any{
			"test_id":   "durability-test",
			"operation": "risk-acceptance",
		},
	}

	err = log.RecordCritical(event)
	if err != nil {
		t.Fatalf("Failed to record event: %v", err)
	}

	// Close the log (simulates normal shutdown)
	err = log.Close()
	if err != nil {
		t.Fatalf("Failed to close log: %v", err)
	}

	// Verify the history log file exists and contains the event
	files, err := filepath.Glob(filepath.Join(tmpDir, "history-*.jsonl"))
	if err != nil {
		t.Fatalf("Failed to list history files: %v", err)
	}

	if len(files) == 0 {
		t.Fatal("No history log files found")
	}

	// Read the history log and verify our event is there
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("Failed to read history log: %v", err)
	}

	logContent := string(data)
	if len(logContent) == 0 {
		t.Fatal("History log is empty - event was lost!")
	}

	// Verify our test event is in the log
	if !strings.Contains(logContent, "test-actor") {
		t.Fatal("History event not found in log file - durability violated!")
	}

	if !strings.Contains(logContent, "durability-test") {
		t.Fatal("Event details not found in log file")
	}

	t.Log("✅ History log durability verified - event persisted to disk")
}

// TestHistoryLogSync verifies that Sync() is actually called
func TestHistoryLogSync(t *testing.T) {
	tmpDir := t.TempDir()

	config := &PersistentConfig{
		LogDir:        tmpDir,
		RotationSize:  100 * 1024 * 1024,
		RotationTime:  24 * time.Hour,
		Compress:      false,
		RetentionDays: 365,
	}

	log, err := NewPersistentHistoryLog(config)
	if err != nil {
		t.Fatalf("Failed to create history log: %v", err)
	}
	defer func() {
		if err := log.Close(); err != nil {
			t.Errorf("Failed to close log: %v", err)
		}
	}()

	// Write event
	event := &Event{
		ID:         "test-sync-001",
		Timestamp:  time.Now(),
		ProjectID:  "PRJ_001",
		Actor:      "test-actor",
		Action:     ActionExport,
		EntityType: EntityProject,
		EntityID:   "PRJ_001",
		Status:     StatusSuccess,
	}

	err = log.Record(event)
	if err != nil {
		t.Fatalf("Failed to record event: %v", err)
	}

	// The event should be immediately readable from disk
	// (because Sync() was called)
	files, err := filepath.Glob(filepath.Join(tmpDir, "history-*.jsonl"))
	if err != nil || len(files) == 0 {
		t.Fatal("History log file not created")
	}

	// Read file without closing log (proves Sync() worked)
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("Failed to read history log: %v", err)
	}

	if len(data) == 0 {
		t.Fatal("History log is empty - Sync() may not have been called")
	}

	t.Log("✅ Sync() verified - history log immediately readable")
}

// TestHistoryLogCrashScenario simulates a crash scenario
// This test verifies that even if we don't call Close(),
// the history entry is still on disk (thanks to Sync())
func TestHistoryLogCrashScenario(t *testing.T) {
	if os.Getenv("TEST_CRASH_SUBPROCESS") == "1" {
		// This is the subprocess that will "crash"
		runCrashSubprocess()
		return
	}

	// Main test process
	tmpDir := t.TempDir()

	// Run subprocess that writes the history log and "crashes"
	cmd := exec.Command(os.Args[0], "-test.run=TestHistoryLogCrashScenario")
	cmd.Env = append(os.Environ(),
		"TEST_CRASH_SUBPROCESS=1",
		"TEST_CRASH_DIR="+tmpDir,
	)

	// Run and let it "crash" (exit without Close())
	_ = cmd.Run() // Ignore error, it's expected to "crash"

	// Now verify the history log was still written to disk
	files, err := filepath.Glob(filepath.Join(tmpDir, "history-*.jsonl"))
	if err != nil {
		t.Fatalf("Failed to list history files: %v", err)
	}

	if len(files) == 0 {
		t.Fatal("No history log files found after crash")
	}

	// Read the log
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("Failed to read history log: %v", err)
	}

	logContent := string(data)
	if !strings.Contains(logContent, "crash-test-actor") {
		t.Fatal("History event NOT found after crash - DURABILITY VIOLATED!")
	}

	t.Log("✅ Crash scenario passed - history log survived without Close()")
}

// runCrashSubprocess runs in the subprocess
func runCrashSubprocess() {
	tmpDir := os.Getenv("TEST_CRASH_DIR")
	if tmpDir == "" {
		return
	}

	config := &PersistentConfig{
		LogDir:        tmpDir,
		RotationSize:  100 * 1024 * 1024,
		RotationTime:  24 * time.Hour,
		Compress:      false,
		RetentionDays: 365,
	}

	log, err := NewPersistentHistoryLog(config)
	if err != nil {
		panic(err)
	}

	// Write critical event
	event := &Event{
		ID:         "crash-test-001",
		Timestamp:  time.Now(),
		ProjectID:  "PRJ_001",
		Actor:      "crash-test-actor",
		Action:     ActionUpdate,
		EntityType: EntityScenario,
		EntityID:   "TS_001",
		Status:     StatusSuccess,
		Metadata: map[string]any{
			"test_type": "crash-test-event",
		},
	}

	err = log.RecordCritical(event)
	if err != nil {
		panic(err)
	}

	// IMPORTANT: Don't call log.Close()
	// This simulates a crash where Close() never happens
	// Thanks to Sync(), the data should still be on disk
	os.Exit(0)
}

// TestHistoryLogPerformance measures the performance impact of Sync()
func TestHistoryLogPerformance(t *testing.T) {
	tmpDir := t.TempDir()

	config := &PersistentConfig{
		LogDir:        tmpDir,
		RotationSize:  100 * 1024 * 1024,
		RotationTime:  24 * time.Hour,
		Compress:      false,
		RetentionDays: 365,
	}

	log, err := NewPersistentHistoryLog(config)
	if err != nil {
		t.Fatalf("Failed to create history log: %v", err)
	}
	defer func() {
		if err := log.Close(); err != nil {
			t.Errorf("Failed to close log: %v", err)
		}
	}()

	// Measure time to write 100 events with Sync()
	start := time.Now()
	for i := 0; i < 100; i++ {
		event := &Event{
			ID:         fmt.Sprintf("perf-test-%d", i),
			Timestamp:  time.Now(),
			ProjectID:  "PRJ_001",
			Actor:      "perf-test-actor",
			Action:     ActionRecalculate,
			EntityType: EntityProject,
			EntityID:   "PRJ_001",
			Status:     StatusSuccess,
		}
		err = log.Record(event)
		if err != nil {
			t.Fatalf("Failed to record event: %v", err)
		}
	}
	duration := time.Since(start)

	avgLatency := duration / 100
	t.Logf("Average latency per history entry (with Sync): %v", avgLatency)

	if avgLatency > 50*time.Millisecond {
		t.Logf("⚠️  Warning: History log latency is high (%v). Consider batching for high-throughput systems.", avgLatency)
	} else {
		t.Logf("✅ History log performance acceptable: %v per entry", avgLatency)
	}
}
