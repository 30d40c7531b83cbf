package util

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// PartialSuffix marks a document that is still being written.
const PartialSuffix = ".tmp"

func SetupInterruptHandler(outputDir string) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		fmt.Println("\nInterrupt received. Cleaning up...")

		CleanupPartialFiles(outputDir)
		RemoveIfEmpty(outputDir)
		fmt.Println("\nExiting due to interrupt.")

		os.Exit(1)
	}()
}

// CleanupPartialFiles removes half-written documents left in outputDir.
func CleanupPartialFiles(outputDir string) []string {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil
	}

	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, PartialSuffix) {
			continue
		}

		full := filepath.Join(outputDir, name)
		if err := os.Remove(full); err != nil {
			fmt.Printf("Error cleaning up %s: %v\n", full, err)
			continue
		}

		fmt.Printf("Removed %s\n", full)
		removed = append(removed, full)
	}

	return removed
}

func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		if err := os.Remove(dir); err == nil {
			fmt.Printf("Removed empty output folder: %s\n", dir)
		}
	}
}
