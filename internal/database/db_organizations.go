package database

import (
	"database/sql"
	"fmt"

	"github.com/volontulo/go-volontulo/internal/models"
)

// --- Organization Queries ---

const query_InsertOrganization = `INSERT INTO organizations (name, address, description) VALUES (?, ?, ?)`

// CreateOrganization inserts an organization and sets its ID
func (db *Database) CreateOrganization(org *models.Organization) error {
	res, err := retryableExec(db.mainDB, query_InsertOrganization, org.Name, org.Address, org.Description)
	if err != nil {
		return fmt.Errorf("failed to create organization %s: %w", org.Name, err)
	}
	org.ID, err = res.LastInsertId()
	return err
}

const query_GetOrganizationByID = `SELECT id, name, address, description FROM organizations WHERE id = ?`

// GetOrganizationByID returns the organization, served from OrgCache when possible
func (db *Database) GetOrganizationByID(id int64) (*models.Organization, error) {
	if org, ok := db.OrgCache.Get(id); ok {
		return org, nil
	}

	var org models.Organization
	err := retryableQueryRowScan(db.mainDB, query_GetOrganizationByID, []interface{}{id},
		&org.ID, &org.Name, &org.Address, &org.Description)
	if err != nil {
		return nil, notFound(err, "organization")
	}
	db.OrgCache.Put(&org)
	return &org, nil
}

const query_GetAllOrganizations = `SELECT id, name, address, description FROM organizations ORDER BY id`

func (db *Database) GetAllOrganizations() ([]*models.Organization, error) {
	return db.queryOrganizations(query_GetAllOrganizations)
}

const query_GetOrganizationsPaged = `SELECT id, name, address, description FROM organizations ORDER BY id LIMIT ? OFFSET ?`

// GetOrganizationsPaged returns one page of organizations and the total count
func (db *Database) GetOrganizationsPaged(limit, offset int) ([]*models.Organization, int, error) {
	var total int
	if err := retryableQueryRowScan(db.mainDB, `SELECT COUNT(*) FROM organizations`, nil, &total); err != nil {
		return nil, 0, err
	}
	orgs, err := db.queryOrganizations(query_GetOrganizationsPaged, limit, offset)
	return orgs, total, err
}

const query_GetOrganizationsForProfile = `SELECT o.id, o.name, o.address, o.description
	FROM organizations o
	JOIN organization_members m ON m.organization_id = o.id
	WHERE m.userprofile_id = ?
	ORDER BY o.id`

// GetOrganizationsForProfile returns the organizations a profile belongs to
func (db *Database) GetOrganizationsForProfile(profileID int64) ([]*models.Organization, error) {
	return db.queryOrganizations(query_GetOrganizationsForProfile, profileID)
}

func (db *Database) queryOrganizations(query string, args ...interface{}) ([]*models.Organization, error) {
	rows, err := retryableQuery(db.mainDB, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Organization{}
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Address, &org.Description); err != nil {
			return nil, err
		}
		out = append(out, &org)
	}
	return out, rows.Err()
}

const query_UpdateOrganization = `UPDATE organizations SET name = ?, address = ?, description = ? WHERE id = ?`

func (db *Database) UpdateOrganization(org *models.Organization) error {
	res, err := retryableExec(db.mainDB, query_UpdateOrganization, org.Name, org.Address, org.Description, org.ID)
	if err != nil {
		return fmt.Errorf("failed to update organization %d: %w", org.ID, err)
	}
	db.OrgCache.Remove(org.ID)
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrganization removes the organization with its offers and memberships
func (db *Database) DeleteOrganization(id int64) error {
	res, err := retryableExec(db.mainDB, `DELETE FROM organizations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization %d: %w", id, err)
	}
	db.OrgCache.Remove(id)
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Membership Queries ---

// AddOrganizationMember links a profile to an organization, duplicates are ignored
func (db *Database) AddOrganizationMember(orgID, profileID int64) error {
	_, err := retryableExec(db.mainDB,
		`INSERT OR IGNORE INTO organization_members (organization_id, userprofile_id) VALUES (?, ?)`, orgID, profileID)
	return err
}

func (db *Database) RemoveOrganizationMember(orgID, profileID int64) error {
	_, err := retryableExec(db.mainDB,
		`DELETE FROM organization_members WHERE organization_id = ? AND userprofile_id = ?`, orgID, profileID)
	return err
}

const query_IsOrganizationMember = `SELECT COUNT(*) FROM organization_members m
	JOIN user_profiles p ON p.id = m.userprofile_id
	WHERE m.organization_id = ? AND p.user_id = ?`

// IsOrganizationMember reports whether the user's profile belongs to the organization
func (db *Database) IsOrganizationMember(orgID, userID int64) (bool, error) {
	var n int
	if err := retryableQueryRowScan(db.mainDB, query_IsOrganizationMember, []interface{}{orgID, userID}, &n); err != nil {
		return false, err
	}
	return n > 0, nil
}

const query_GetOrganizationMemberEmails = `SELECT u.email FROM users u
	JOIN user_profiles p ON p.user_id = u.id
	JOIN organization_members m ON m.userprofile_id = p.id
	WHERE m.organization_id = ? AND u.email != ''
	ORDER BY u.id`

// GetOrganizationMemberEmails returns the e-mail addresses of every member
func (db *Database) GetOrganizationMemberEmails(orgID int64) ([]string, error) {
	return db.queryStrings(query_GetOrganizationMemberEmails, orgID)
}

func (db *Database) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := retryableQuery(db.mainDB, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// organizationExistsTx is used inside write transactions
func organizationExistsTx(tx *sql.Tx, id int64) (bool, error) {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM organizations WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
