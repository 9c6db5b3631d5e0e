package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lixenwraith/disklog"
)

const (
	totalBursts    = 100
	logsPerBurst   = 500
	maxMessageSize = 2000
	numWorkers     = 50
)

const configFile = "stress_config.toml"

// Example TOML content for stress test
var tomlContent = `
# Example stress_config.toml
[disklog]
  directory = "./logs"
  folder_name = "stress"
  max_file_bytes = 262144 # Force frequent rolling (256KB)
  max_folder_bytes = 20971520 # Small budget so the size sweep triggers (20MB)
  max_history_days = 2
  buffer_size = 500
  sweep_schedule = "@every 5s"
  internal_errors_to_stderr = true
`

var levels = []int64{
	disklog.LevelDebug,
	disklog.LevelInfo,
	disklog.LevelWarn,
	disklog.LevelError,
}

var sink *disklog.Sink

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.Intn(len(chars))])
	}
	return sb.String()
}

// logBurst simulates a burst of logging activity
func logBurst(burstID int) {
	tag := fmt.Sprintf("wkr%d", burstID%numWorkers)
	for i := 0; i < logsPerBurst; i++ {
		level := levels[rand.Intn(len(levels))]
		msg := generateRandomMessage(rand.Intn(maxMessageSize) + 10)
		line := fmt.Sprintf("%s,%s,%s,%d,%d,%s\n",
			time.Now().Format(time.RFC3339Nano), disklog.LevelName(level), tag, burstID, i, msg)
		sink.Log(level, tag, line)
	}
}

// worker goroutine function
func worker(burstChan chan int, wg *sync.WaitGroup, completedBursts *atomic.Int64) {
	defer wg.Done()
	for burstID := range burstChan {
		logBurst(burstID)
		completed := completedBursts.Add(1)
		if completed%10 == 0 || completed == totalBursts {
			fmt.Printf("\rProgress: %d/%d bursts completed", completed, totalBursts)
		}
	}
}

func main() {
	fmt.Println("--- Disk Sink Stress Test ---")

	// --- Setup Config ---
	err := os.WriteFile(configFile, []byte(tomlContent), 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write dummy config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created dummy config file: %s\n", configFile)

	cfg, err := disklog.NewConfigFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	_ = os.RemoveAll(cfg.FolderPath()) // Clean previous run's folder before starting

	// --- Initialize Sink ---
	var reported atomic.Int64
	sink, err = disklog.New(cfg, disklog.WithErrorHandler(func(err error) {
		if reported.Add(1) <= 10 {
			fmt.Fprintf(os.Stderr, "\n[sink] %v\n", err)
		}
	}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create sink: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sink started. Files will be written to: %s\n", sink.Folder())

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n",
		numWorkers, totalBursts, logsPerBurst)
	fmt.Println("Watch for 'records are being dropped' messages.")
	fmt.Println("Press Ctrl+C to stop early.")

	// --- Setup Workers and Signal Handling ---
	burstChan := make(chan int, numWorkers)
	var wg sync.WaitGroup
	completedBursts := atomic.Int64{}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stopChan := make(chan struct{})

	go func() {
		<-sigChan
		fmt.Println("\n[Signal Received] Stopping burst generation...")
		close(stopChan)
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(burstChan, &wg, &completedBursts)
	}

	// --- Run Test ---
	startTime := time.Now()
submit:
	for i := 1; i <= totalBursts; i++ {
		select {
		case burstChan <- i:
		case <-stopChan:
			fmt.Println("[Signal Received] Halting burst submission.")
			break submit
		}
	}
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	wg.Wait()
	duration := time.Since(startTime)
	finalCompleted := completedBursts.Load()

	fmt.Printf("\n--- Test Finished ---")
	fmt.Printf("\nCompleted %d/%d bursts in %v\n", finalCompleted, totalBursts, duration.Round(time.Millisecond))
	if finalCompleted > 0 && duration.Seconds() > 0 {
		logsPerSec := float64(finalCompleted*logsPerBurst) / duration.Seconds()
		fmt.Printf("Approximate Logs/sec: %.2f\n", logsPerSec)
	}

	result, err := sink.Sweep()
	if err == nil {
		fmt.Printf("Final sweep: folder %d bytes, size triggered %v, deleted %d\n",
			result.FolderBytes, result.SizeTriggered, len(result.Deleted))
	}

	// --- Close Sink ---
	fmt.Println("Closing sink (allowing up to 10s)...")
	err = sink.Close(10 * time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sink close error: %v\n", err)
	} else {
		fmt.Println("Sink closed.")
	}

	stats := sink.Stats()
	fmt.Printf("Written %d, dropped %d, write failures %d, rotations %d, sweeps %d, deletions %d\n",
		stats.RecordsWritten, stats.RecordsDropped, stats.WriteFailures,
		stats.Rotations, stats.Sweeps, stats.Deletions)
	fmt.Printf("Check log files in '%s'.\n", sink.Folder())
}
