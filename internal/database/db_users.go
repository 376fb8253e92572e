package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/volontulo/go-volontulo/internal/models"
)

// ErrUserExists is returned when a username is already taken
var ErrUserExists = errors.New("user already exists")

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, username, email, first_name, last_name, password_hash, session_id,
	last_login_ip, session_expires_at, login_attempts, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.SessionID, &u.LastLoginIP, &u.SessionExpiresAt, &u.LoginAttempts, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const query_InsertUser = `INSERT INTO users (username, email, first_name, last_name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
const query_InsertUserProfile = `INSERT INTO user_profiles (user_id, is_administrator, phone_no) VALUES (?, ?, ?)`

// CreateUser inserts a user together with its profile
func (db *Database) CreateUser(u *models.User, isAdministrator bool, phoneNo string) (*models.UserProfile, error) {
	var profile *models.UserProfile
	ts := now()
	err := retryableTransactionExec(db.mainDB, func(tx *sql.Tx) error {
		res, err := tx.Exec(query_InsertUser, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, ts, ts)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return ErrUserExists
			}
			return err
		}
		userID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		res, err = tx.Exec(query_InsertUserProfile, userID, isAdministrator, phoneNo)
		if err != nil {
			return err
		}
		profileID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		u.ID = userID
		u.CreatedAt = ts
		u.UpdatedAt = ts
		profile = &models.UserProfile{
			ID:              profileID,
			UserID:          userID,
			IsAdministrator: isAdministrator,
			PhoneNo:         phoneNo,
			User:            u,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user %s: %w", u.Username, err)
	}
	return profile, nil
}

const query_GetUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

// GetUserByUsername returns ErrNotFound when no such user exists
func (db *Database) GetUserByUsername(username string) (*models.User, error) {
	u, err := scanUser(db.mainDB.QueryRow(query_GetUserByUsername, username))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

const query_GetUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ? ORDER BY id LIMIT 1`

func (db *Database) GetUserByEmail(email string) (*models.User, error) {
	u, err := scanUser(db.mainDB.QueryRow(query_GetUserByEmail, email))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

const query_GetUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (db *Database) GetUserByID(id int64) (*models.User, error) {
	u, err := scanUser(db.mainDB.QueryRow(query_GetUserByID, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

const query_GetAllUsers = `SELECT ` + userColumns + ` FROM users ORDER BY id`

// GetAllUsers returns every account ordered by id
func (db *Database) GetAllUsers() ([]*models.User, error) {
	rows, err := retryableQuery(db.mainDB, query_GetAllUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUserEmail updates a user's email address
const query_UpdateUserEmail = `UPDATE users SET email = ?, updated_at = ? WHERE id = ?`

func (db *Database) UpdateUserEmail(userID int64, email string) error {
	_, err := retryableExec(db.mainDB, query_UpdateUserEmail, email, now(), userID)
	return err
}

// UpdateUserName updates first and last name
const query_UpdateUserName = `UPDATE users SET first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`

func (db *Database) UpdateUserName(userID int64, firstName, lastName string) error {
	_, err := retryableExec(db.mainDB, query_UpdateUserName, firstName, lastName, now(), userID)
	return err
}

// UpdateUserPassword updates a user's password hash and drops every session and token
const query_UpdateUserPassword = `UPDATE users SET password_hash = ?, session_id = '', session_expires_at = NULL, updated_at = ? WHERE id = ?`

func (db *Database) UpdateUserPassword(userID int64, passwordHash string) error {
	return retryableTransactionExec(db.mainDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec(query_UpdateUserPassword, passwordHash, now(), userID); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM auth_tokens WHERE user_id = ?`, userID)
		return err
	})
}

// DeleteUser removes a user, its profile, memberships and tokens
func (db *Database) DeleteUser(userID int64) error {
	res, err := retryableExec(db.mainDB, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
