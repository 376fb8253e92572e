package database

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/volontulo/go-volontulo/internal/models"
)

// Session security constants
const (
	SessionIDLength  = 64               // 64 character session ID
	SessionTimeout   = 3 * time.Hour    // 3 hour sliding timeout
	MaxLoginAttempts = 5                // Max failed login attempts
	LoginLockoutTime = 15 * time.Minute // Lockout time after max attempts
)

// GenerateSecureSessionID creates a cryptographically secure session ID
func GenerateSecureSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength/2) // hex encoding doubles the length
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure session ID: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// CreateUserSession creates a new session for the user and invalidates any existing session
func (db *Database) CreateUserSession(userID int64, remoteIP string) (string, error) {
	sessionID, err := GenerateSecureSessionID()
	if err != nil {
		return "", err
	}

	ts := now()
	query := `UPDATE users SET
		session_id = ?,
		last_login_ip = ?,
		session_expires_at = ?,
		login_attempts = 0,
		updated_at = ?
		WHERE id = ?`

	if _, err = retryableExec(db.mainDB, query, sessionID, remoteIP, ts.Add(SessionTimeout), ts, userID); err != nil {
		return "", fmt.Errorf("failed to create user session: %w", err)
	}
	return sessionID, nil
}

// ValidateUserSession checks if the session is valid and extends expiration
func (db *Database) ValidateUserSession(sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session ID")
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE session_id = ? AND session_expires_at > ?`
	user, err := scanUser(db.mainDB.QueryRow(query, sessionID, now()))
	if err != nil {
		return nil, fmt.Errorf("invalid or expired session")
	}

	// Sliding timeout
	newExpiresAt := now().Add(SessionTimeout)
	if _, err = retryableExec(db.mainDB, `UPDATE users SET session_expires_at = ? WHERE id = ?`, newExpiresAt, user.ID); err != nil {
		log.Printf("[DATABASE] Warning: Failed to extend session expiration: %v", err)
	}
	user.SessionExpiresAt = &newExpiresAt
	return user, nil
}

// InvalidateUserSession clears the user's session
func (db *Database) InvalidateUserSession(userID int64) error {
	query := `UPDATE users SET session_id = '', session_expires_at = NULL, updated_at = ? WHERE id = ?`
	_, err := retryableExec(db.mainDB, query, now(), userID)
	return err
}

// IncrementLoginAttempts increases the failed login counter
func (db *Database) IncrementLoginAttempts(username string) error {
	query := `UPDATE users SET login_attempts = login_attempts + 1, updated_at = ? WHERE username = ?`
	_, err := retryableExec(db.mainDB, query, now(), username)
	return err
}

// ResetLoginAttempts clears the failed login counter
func (db *Database) ResetLoginAttempts(userID int64) error {
	query := `UPDATE users SET login_attempts = 0, updated_at = ? WHERE id = ?`
	_, err := retryableExec(db.mainDB, query, now(), userID)
	return err
}

// IsUserLockedOut checks if user is temporarily locked out due to failed attempts
func (db *Database) IsUserLockedOut(username string) (bool, error) {
	var attempts int
	var updatedAt time.Time
	err := retryableQueryRowScan(db.mainDB, `SELECT login_attempts, updated_at FROM users WHERE username = ?`,
		[]interface{}{username}, &attempts, &updatedAt)
	if err != nil {
		return false, notFound(err, "user")
	}

	if attempts < MaxLoginAttempts {
		return false, nil
	}
	if now().Before(updatedAt.Add(LoginLockoutTime)) {
		return true, nil
	}
	// Lockout period expired
	if _, err := retryableExec(db.mainDB, `UPDATE users SET login_attempts = 0 WHERE username = ?`, username); err != nil {
		log.Printf("[DATABASE] Warning: failed to reset login attempts for %s: %v", username, err)
	}
	return false, nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (db *Database) CleanupExpiredSessions() error {
	query := `UPDATE users SET session_id = '', session_expires_at = NULL WHERE session_expires_at < ?`

	result, err := retryableExec(db.mainDB, query, now())
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n > 0 {
		log.Printf("[DATABASE] Cleaned up %d expired sessions", n)
	}
	return nil
}
