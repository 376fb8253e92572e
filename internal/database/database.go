// Package database provides database abstraction and management for go-volontulo
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// ErrNotFound is returned by lookups that matched no row
var ErrNotFound = errors.New("not found")

// GetMainDB returns the main database connection for direct access
// This should only be used by specialized tools and tests
func (db *Database) GetMainDB() *sql.DB {
	return db.mainDB
}

// CronDB periodically removes expired web sessions and REST tokens
func (db *Database) CronDB(interval time.Duration) {
	defer db.WG.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := db.CleanupExpiredSessions(); err != nil {
				log.Printf("[DATABASE] CronDB: session cleanup failed: %v", err)
			}
			if n, err := db.CleanupExpiredTokens(); err != nil {
				log.Printf("[DATABASE] CronDB: token cleanup failed: %v", err)
			} else if n > 0 {
				log.Printf("[DATABASE] CronDB: removed %d expired tokens", n)
			}
			if _, err := retryableExec(db.mainDB, "UPDATE system_status SET last_heartbeat = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = 1"); err != nil {
				log.Printf("[DATABASE] CronDB: failed to update heartbeat: %v", err)
			}
		case <-db.StopChan:
			return
		}
	}
}

// Shutdown stops background tasks and closes the database
func (db *Database) Shutdown() error {
	if db.IsDBshutdown() {
		return nil
	}

	if err := db.SetShutdownState(ShutdownStateInProgress); err != nil {
		log.Printf("[DATABASE] Warning: Failed to set shutdown state: %v", err)
	}

	close(db.StopChan)
	db.WG.Wait()

	if db.OrgCache != nil {
		db.OrgCache.Purge()
	}

	// Mark shutdown as clean BEFORE closing main database
	if err := db.SetShutdownState(ShutdownStateClean); err != nil {
		log.Printf("[DATABASE] Warning: Failed to mark shutdown as clean: %v", err)
	}

	if err := db.mainDB.Close(); err != nil {
		return fmt.Errorf("failed to close main database: %w", err)
	}
	log.Printf("[DATABASE] Main database closed")
	return nil
}

// Shutdown state constants
const (
	ShutdownStateRunning    = "running"
	ShutdownStateInProgress = "shutting_down"
	ShutdownStateClean      = "clean_shutdown"
	ShutdownStateCrashed    = "crashed"
)

// SetShutdownState updates the shutdown state in the database
func (db *Database) SetShutdownState(state string) error {
	if db.mainDB == nil {
		return fmt.Errorf("main database not initialized")
	}

	var query string
	switch state {
	case ShutdownStateInProgress:
		query = `UPDATE system_status SET shutdown_state = ?, shutdown_started_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = 1`
	case ShutdownStateClean:
		query = `UPDATE system_status SET shutdown_state = ?, shutdown_completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = 1`
	default:
		query = `UPDATE system_status SET shutdown_state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`
	}

	if _, err := retryableExec(db.mainDB, query, state); err != nil {
		return fmt.Errorf("failed to update shutdown state to %s: %w", state, err)
	}
	return nil
}

// GetShutdownState retrieves the current shutdown state from the database
func (db *Database) GetShutdownState() (string, error) {
	var state string
	err := retryableQueryRowScan(db.mainDB, "SELECT shutdown_state FROM system_status WHERE id = 1", nil, &state)
	if err != nil {
		return ShutdownStateCrashed, fmt.Errorf("failed to get shutdown state: %w", err)
	}
	return state, nil
}

// InitializeSystemStatus records the running process and marks the state as running
func (db *Database) InitializeSystemStatus(appVersion string, pid int, hostname string) error {
	query := `UPDATE system_status SET
		shutdown_state = ?,
		app_version = ?,
		pid = ?,
		hostname = ?,
		shutdown_started_at = NULL,
		shutdown_completed_at = NULL,
		last_heartbeat = CURRENT_TIMESTAMP,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = 1`

	if _, err := retryableExec(db.mainDB, query, ShutdownStateRunning, appVersion, pid, hostname); err != nil {
		return fmt.Errorf("failed to initialize system status: %w", err)
	}
	log.Printf("[DATABASE] System status initialized: version=%s, pid=%d, hostname=%s", appVersion, pid, hostname)
	return nil
}

// CheckPreviousShutdown checks if the previous shutdown was clean
func (db *Database) CheckPreviousShutdown() (bool, error) {
	state, err := db.GetShutdownState()
	if err != nil {
		return false, err
	}
	return state == ShutdownStateClean, nil
}

func now() time.Time {
	return time.Now().UTC()
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps everything else
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
