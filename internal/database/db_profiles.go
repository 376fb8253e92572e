package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/volontulo/go-volontulo/internal/models"
)

const query_GetProfileBase = `SELECT p.id, p.user_id, p.is_administrator, p.phone_no,
	u.id, u.username, u.email, u.first_name, u.last_name
	FROM user_profiles p JOIN users u ON u.id = p.user_id`

func scanProfile(row rowScanner) (*models.UserProfile, error) {
	var p models.UserProfile
	var u models.User
	if err := row.Scan(&p.ID, &p.UserID, &p.IsAdministrator, &p.PhoneNo,
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName); err != nil {
		return nil, err
	}
	p.User = &u
	return &p, nil
}

// GetProfileByID returns a profile with its user, organizations and gallery
func (db *Database) GetProfileByID(id int64) (*models.UserProfile, error) {
	p, err := scanProfile(db.mainDB.QueryRow(query_GetProfileBase+` WHERE p.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return p, db.loadProfileRelations(p)
}

// GetProfileByUserID returns the profile belonging to a user
func (db *Database) GetProfileByUserID(userID int64) (*models.UserProfile, error) {
	p, err := scanProfile(db.mainDB.QueryRow(query_GetProfileBase+` WHERE p.user_id = ?`, userID))
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return p, db.loadProfileRelations(p)
}

// GetAllProfiles returns every profile ordered by id
func (db *Database) GetAllProfiles() ([]*models.UserProfile, error) {
	return db.queryProfiles(query_GetProfileBase + ` ORDER BY p.id`)
}

// GetProfilesPaged returns one page of profiles and the total count
func (db *Database) GetProfilesPaged(limit, offset int) ([]*models.UserProfile, int, error) {
	var total int
	if err := retryableQueryRowScan(db.mainDB, `SELECT COUNT(*) FROM user_profiles`, nil, &total); err != nil {
		return nil, 0, err
	}
	profiles, err := db.queryProfiles(query_GetProfileBase+` ORDER BY p.id LIMIT ? OFFSET ?`, limit, offset)
	return profiles, total, err
}

func (db *Database) queryProfiles(query string, args ...interface{}) ([]*models.UserProfile, error) {
	rows, err := retryableQuery(db.mainDB, query, args...)
	if err != nil {
		return nil, err
	}
	out := []*models.UserProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// relations are loaded after the cursor is closed to free the connection
	for _, p := range out {
		if err := db.loadProfileRelations(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (db *Database) loadProfileRelations(p *models.UserProfile) error {
	orgs, err := db.GetOrganizationsForProfile(p.ID)
	if err != nil {
		return fmt.Errorf("failed to load organizations of profile %d: %w", p.ID, err)
	}
	p.Organizations = orgs

	images, err := db.GetGalleryImages(p.ID)
	if err != nil {
		return fmt.Errorf("failed to load gallery of profile %d: %w", p.ID, err)
	}
	p.Images = images
	return nil
}

// SetAdministrator grants or revokes the administrator flag
func (db *Database) SetAdministrator(userID int64, isAdministrator bool) error {
	res, err := retryableExec(db.mainDB, `UPDATE user_profiles SET is_administrator = ? WHERE user_id = ?`, isAdministrator, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePhoneNo updates a profile's phone number
func (db *Database) UpdatePhoneNo(userID int64, phoneNo string) error {
	_, err := retryableExec(db.mainDB, `UPDATE user_profiles SET phone_no = ? WHERE user_id = ?`, phoneNo, userID)
	return err
}

// IsAdministrator reports the administrator flag of a user, false when no profile exists
func (db *Database) IsAdministrator(userID int64) (bool, error) {
	var isAdmin bool
	err := retryableQueryRowScan(db.mainDB, `SELECT is_administrator FROM user_profiles WHERE user_id = ?`,
		[]interface{}{userID}, &isAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return isAdmin, nil
}

// GetAdministratorEmails returns the e-mail addresses of all administrators
func (db *Database) GetAdministratorEmails() ([]string, error) {
	return db.queryStrings(`SELECT u.email FROM users u
		JOIN user_profiles p ON p.user_id = u.id
		WHERE p.is_administrator = 1 AND u.email != ''
		ORDER BY u.id`)
}

// --- Gallery Queries ---

// AddGalleryImage stores an image path for a profile, a new avatar replaces the old one
func (db *Database) AddGalleryImage(profileID int64, image string, isAvatar bool) (*models.UserGalleryImage, error) {
	if isAvatar {
		if _, err := retryableExec(db.mainDB, `UPDATE user_gallery SET is_avatar = 0 WHERE userprofile_id = ?`, profileID); err != nil {
			return nil, err
		}
	}
	res, err := retryableExec(db.mainDB, `INSERT INTO user_gallery (userprofile_id, image, is_avatar) VALUES (?, ?, ?)`,
		profileID, image, isAvatar)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.UserGalleryImage{ID: id, UserProfileID: profileID, Image: image, IsAvatar: isAvatar}, nil
}

// GetGalleryImages returns the images of a profile
func (db *Database) GetGalleryImages(profileID int64) ([]*models.UserGalleryImage, error) {
	rows, err := retryableQuery(db.mainDB,
		`SELECT id, userprofile_id, image, is_avatar FROM user_gallery WHERE userprofile_id = ? ORDER BY id`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.UserGalleryImage{}
	for rows.Next() {
		var img models.UserGalleryImage
		if err := rows.Scan(&img.ID, &img.UserProfileID, &img.Image, &img.IsAvatar); err != nil {
			return nil, err
		}
		out = append(out, &img)
	}
	return out, rows.Err()
}
