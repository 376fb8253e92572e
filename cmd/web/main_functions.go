package main

import (
	"log"
	"os"
	"time"
)

// monitorUpdateFile triggers a graceful shutdown once a ".update" file shows
// up in the working directory. The file is renamed to ".update.todo" first.
func monitorUpdateFile(shutdownChan chan<- bool, every time.Duration) {
	updateFilePath := ".update"
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	log.Printf("[WEB]: Update file monitor started, checking for '%s' every %s", updateFilePath, every)

	for range ticker.C {
		if !checkUpdateFile(updateFilePath) {
			continue
		}
		select {
		case shutdownChan <- true:
			log.Printf("[WEB]: Shutdown signal sent via update file monitor")
		default:
			log.Printf("[WEB]: Shutdown channel already signaled")
		}
		return
	}
}

// checkUpdateFile reports whether path existed and was renamed successfully
func checkUpdateFile(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	log.Printf("[WEB]: Update file '%s' detected, triggering graceful shutdown", path)
	if err := os.Rename(path, path+".todo"); err != nil {
		log.Printf("[WEB]: Warning: Failed to rename update file '%s': %v", path, err)
		return false
	}
	return true
}
