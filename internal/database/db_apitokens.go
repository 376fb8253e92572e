package database

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/volontulo/go-volontulo/internal/models"
)

// ErrTokenExpired is returned for tokens past their expires_at
var ErrTokenExpired = errors.New("token expired")

// AuthTokenLength is the length of the plain key handed out at login
const AuthTokenLength = 40

// GenerateAuthToken creates a new cryptographically secure 40 hex char key
func GenerateAuthToken() (string, error) {
	bytes := make([]byte, AuthTokenLength/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken creates a SHA-256 hash of the token for database storage
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CreateAuthToken generates and stores a new REST token for the user.
// Only the hash is stored, the plain key is returned once.
func (db *Database) CreateAuthToken(userID int64) (*models.AuthToken, string, error) {
	plainToken, err := GenerateAuthToken()
	if err != nil {
		return nil, "", err
	}
	hashedToken := HashToken(plainToken)

	ts := now()
	var expiresAt *time.Time
	if db.dbconfig.TokenTTL > 0 {
		exp := ts.Add(db.dbconfig.TokenTTL)
		expiresAt = &exp
	}

	query := `INSERT INTO auth_tokens (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	result, err := retryableExec(db.mainDB, query, hashedToken, userID, ts, expiresAt)
	if err != nil {
		return nil, "", err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, "", err
	}

	return &models.AuthToken{
		ID:        id,
		TokenHash: hashedToken,
		UserID:    userID,
		CreatedAt: ts,
		ExpiresAt: expiresAt,
	}, plainToken, nil
}

// ValidateAuthToken returns the token record for a plain key.
// Unknown keys yield ErrNotFound, expired keys ErrTokenExpired.
func (db *Database) ValidateAuthToken(plainToken string) (*models.AuthToken, error) {
	query := `SELECT id, token_hash, user_id, created_at, last_used_at, expires_at, usage_count
	          FROM auth_tokens WHERE token_hash = ?`

	var token models.AuthToken
	err := retryableQueryRowScan(db.mainDB, query, []interface{}{HashToken(plainToken)},
		&token.ID, &token.TokenHash, &token.UserID, &token.CreatedAt,
		&token.LastUsedAt, &token.ExpiresAt, &token.UsageCount,
	)
	if err != nil {
		return nil, notFound(err, "token")
	}

	if token.ExpiresAt != nil && token.ExpiresAt.Before(now()) {
		return nil, ErrTokenExpired
	}
	return &token, nil
}

// UpdateTokenUsage updates the last_used_at timestamp and increments usage_count
func (db *Database) UpdateTokenUsage(tokenID int64) error {
	query := `UPDATE auth_tokens SET last_used_at = ?, usage_count = usage_count + 1 WHERE id = ?`
	_, err := retryableExec(db.mainDB, query, now(), tokenID)
	return err
}

// DeleteAuthToken removes the token matching a plain key, used at logout
func (db *Database) DeleteAuthToken(plainToken string) error {
	_, err := retryableExec(db.mainDB, `DELETE FROM auth_tokens WHERE token_hash = ?`, HashToken(plainToken))
	return err
}

// DeleteUserTokens removes every token of a user
func (db *Database) DeleteUserTokens(userID int64) (int, error) {
	result, err := retryableExec(db.mainDB, `DELETE FROM auth_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// CleanupExpiredTokens removes expired tokens from the database
func (db *Database) CleanupExpiredTokens() (int, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at IS NOT NULL AND expires_at < ?`
	result, err := retryableExec(db.mainDB, query, now())
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
