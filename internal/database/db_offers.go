package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/volontulo/go-volontulo/internal/models"
)

// ErrAlreadyVolunteer is returned when a user joins an offer twice
var ErrAlreadyVolunteer = errors.New("user already volunteers for this offer")

const offerColumns = `id, organization_id, title, description, requirements, time_commitment, benefits,
	location, started_at, finished_at, time_period, status_old, offer_status, recruitment_status,
	action_status, votes, recruitment_start_date, recruitment_end_date, reserve_recruitment,
	reserve_recruitment_start_date, reserve_recruitment_end_date, action_ongoing, constant_coop,
	action_start_date, action_end_date, volunteers_limit, weight`

func scanOffer(row rowScanner) (*models.Offer, error) {
	var o models.Offer
	err := row.Scan(&o.ID, &o.OrganizationID, &o.Title, &o.Description, &o.Requirements,
		&o.TimeCommitment, &o.Benefits, &o.Location, &o.StartedAt, &o.FinishedAt, &o.TimePeriod,
		&o.StatusOld, &o.OfferStatus, &o.RecruitmentStatus, &o.ActionStatus, &o.Votes,
		&o.RecruitmentStartDate, &o.RecruitmentEndDate, &o.ReserveRecruitment,
		&o.ReserveRecruitmentStartDate, &o.ReserveRecruitmentEndDate, &o.ActionOngoing,
		&o.ConstantCoop, &o.ActionStartDate, &o.ActionEndDate, &o.VolunteersLimit, &o.Weight)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// offerValues returns the writable columns in offerColumns order, without id
func offerValues(o *models.Offer) []interface{} {
	return []interface{}{o.OrganizationID, o.Title, o.Description, o.Requirements,
		o.TimeCommitment, o.Benefits, o.Location, o.StartedAt, o.FinishedAt, o.TimePeriod,
		o.StatusOld, o.OfferStatus, o.RecruitmentStatus, o.ActionStatus, o.Votes,
		o.RecruitmentStartDate, o.RecruitmentEndDate, o.ReserveRecruitment,
		o.ReserveRecruitmentStartDate, o.ReserveRecruitmentEndDate, o.ActionOngoing,
		o.ConstantCoop, o.ActionStartDate, o.ActionEndDate, o.VolunteersLimit, o.Weight}
}

// OfferFilter narrows offer listings. Zero values disable a condition.
type OfferFilter struct {
	PublicOnly      bool  // published, future/ongoing and still recruiting
	VolunteerUserID int64 // offers the user joined
	MemberUserID    int64 // offers of organizations the user is a member of
	Limit           int
	Offset          int
}

func (f OfferFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.PublicOnly {
		conds = append(conds, `offer_status = ? AND action_status IN (?, ?) AND recruitment_status IN (?, ?)`)
		args = append(args, models.OfferStatusPublished, models.ActionFuture, models.ActionOngoing,
			models.RecruitmentOpen, models.RecruitmentSupplemental)
	}
	if f.VolunteerUserID > 0 {
		conds = append(conds, `id IN (SELECT offer_id FROM offer_volunteers WHERE user_id = ?)`)
		args = append(args, f.VolunteerUserID)
	}
	if f.MemberUserID > 0 {
		conds = append(conds, `organization_id IN (SELECT m.organization_id FROM organization_members m
			JOIN user_profiles p ON p.id = m.userprofile_id WHERE p.user_id = ?)`)
		args = append(args, f.MemberUserID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetOffers returns offers matching the filter ordered by weight desc, id asc,
// with organization, volunteers and images loaded.
func (db *Database) GetOffers(f OfferFilter) ([]*models.Offer, error) {
	where, args := f.where()
	query := `SELECT ` + offerColumns + ` FROM offers` + where + ` ORDER BY weight DESC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := retryableQuery(db.mainDB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	out := []*models.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range out {
		if err := db.loadOfferRelations(o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountOffers returns the number of offers matching the filter, ignoring Limit/Offset
func (db *Database) CountOffers(f OfferFilter) (int, error) {
	where, args := f.where()
	var n int
	err := retryableQueryRowScan(db.mainDB, `SELECT COUNT(*) FROM offers`+where, args, &n)
	return n, err
}

// GetOfferByID returns an offer with its relations, ErrNotFound if missing
func (db *Database) GetOfferByID(id int64) (*models.Offer, error) {
	o, err := scanOffer(db.mainDB.QueryRow(`SELECT `+offerColumns+` FROM offers WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "offer")
	}
	if err := db.loadOfferRelations(o); err != nil {
		return nil, err
	}
	return o, nil
}

func (db *Database) loadOfferRelations(o *models.Offer) error {
	org, err := db.GetOrganizationByID(o.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to load organization of offer %d: %w", o.ID, err)
	}
	o.Organization = org

	if o.Volunteers, err = db.GetOfferVolunteers(o.ID); err != nil {
		return fmt.Errorf("failed to load volunteers of offer %d: %w", o.ID, err)
	}
	if o.Images, err = db.GetOfferImages(o.ID); err != nil {
		return fmt.Errorf("failed to load images of offer %d: %w", o.ID, err)
	}
	return nil
}

const query_InsertOffer = `INSERT INTO offers (organization_id, title, description, requirements,
	time_commitment, benefits, location, started_at, finished_at, time_period, status_old,
	offer_status, recruitment_status, action_status, votes, recruitment_start_date,
	recruitment_end_date, reserve_recruitment, reserve_recruitment_start_date,
	reserve_recruitment_end_date, action_ongoing, constant_coop, action_start_date,
	action_end_date, volunteers_limit, weight)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateOffer inserts the offer and its creation history entry in one transaction
func (db *Database) CreateOffer(o *models.Offer, userID int64, message string) error {
	err := retryableTransactionExec(db.mainDB, func(tx *sql.Tx) error {
		exists, err := organizationExistsTx(tx, o.OrganizationID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		res, err := tx.Exec(query_InsertOffer, offerValues(o)...)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		o.ID = id
		return insertHistoryTx(tx, id, userID, models.HistoryActionCreate, message)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

const query_UpdateOffer = `UPDATE offers SET organization_id = ?, title = ?, description = ?,
	requirements = ?, time_commitment = ?, benefits = ?, location = ?, started_at = ?,
	finished_at = ?, time_period = ?, status_old = ?, offer_status = ?, recruitment_status = ?,
	action_status = ?, votes = ?, recruitment_start_date = ?, recruitment_end_date = ?,
	reserve_recruitment = ?, reserve_recruitment_start_date = ?, reserve_recruitment_end_date = ?,
	action_ongoing = ?, constant_coop = ?, action_start_date = ?, action_end_date = ?,
	volunteers_limit = ?, weight = ?
	WHERE id = ?`

// UpdateOffer writes every column of the offer and a history entry in one transaction
func (db *Database) UpdateOffer(o *models.Offer, userID int64, message string) error {
	err := retryableTransactionExec(db.mainDB, func(tx *sql.Tx) error {
		exists, err := organizationExistsTx(tx, o.OrganizationID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		res, err := tx.Exec(query_UpdateOffer, append(offerValues(o), o.ID)...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return insertHistoryTx(tx, o.ID, userID, models.HistoryActionChange, message)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update offer %d: %w", o.ID, err)
	}
	return nil
}

// SetOfferStatus changes the publication status, used by moderators
func (db *Database) SetOfferStatus(offerID int64, status string) error {
	res, err := retryableExec(db.mainDB, `UPDATE offers SET offer_status = ? WHERE id = ?`, status, offerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOffer removes an offer with its volunteers, images and history
func (db *Database) DeleteOffer(offerID int64) error {
	res, err := retryableExec(db.mainDB, `DELETE FROM offers WHERE id = ?`, offerID)
	if err != nil {
		return fmt.Errorf("failed to delete offer %d: %w", offerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Volunteers ---

// AddOfferVolunteer adds the user to the offer and records a join history entry
func (db *Database) AddOfferVolunteer(offerID, userID int64, message string) error {
	err := retryableTransactionExec(db.mainDB, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO offer_volunteers (offer_id, user_id, joined_at) VALUES (?, ?, ?)`, offerID, userID, now())
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "PRIMARY KEY") {
				return ErrAlreadyVolunteer
			}
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return ErrNotFound
			}
			return err
		}
		return insertHistoryTx(tx, offerID, userID, models.HistoryActionJoin, message)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyVolunteer) || errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to add volunteer %d to offer %d: %w", userID, offerID, err)
	}
	return nil
}

const query_GetOfferVolunteers = `SELECT u.id, u.username, u.email, u.first_name, u.last_name
	FROM users u JOIN offer_volunteers v ON v.user_id = u.id
	WHERE v.offer_id = ? ORDER BY u.id`

// GetOfferVolunteers returns the users who joined the offer
func (db *Database) GetOfferVolunteers(offerID int64) ([]*models.User, error) {
	rows, err := retryableQuery(db.mainDB, query_GetOfferVolunteers, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// --- Images ---

// AddOfferImage stores an image path for an offer, a new main image replaces the old one
func (db *Database) AddOfferImage(offerID int64, path string, isMain bool) (*models.OfferImage, error) {
	var img *models.OfferImage
	err := retryableTransactionExec(db.mainDB, func(tx *sql.Tx) error {
		if isMain {
			if _, err := tx.Exec(`UPDATE offer_images SET is_main = 0 WHERE offer_id = ?`, offerID); err != nil {
				return err
			}
		}
		res, err := tx.Exec(`INSERT INTO offer_images (offer_id, path, is_main) VALUES (?, ?, ?)`, offerID, path, isMain)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		img = &models.OfferImage{ID: id, OfferID: offerID, Path: path, IsMain: isMain}
		return nil
	})
	return img, err
}

// GetOfferImages returns the images of an offer
func (db *Database) GetOfferImages(offerID int64) ([]*models.OfferImage, error) {
	rows, err := retryableQuery(db.mainDB,
		`SELECT id, offer_id, path, is_main FROM offer_images WHERE offer_id = ? ORDER BY id`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.OfferImage{}
	for rows.Next() {
		var img models.OfferImage
		if err := rows.Scan(&img.ID, &img.OfferID, &img.Path, &img.IsMain); err != nil {
			return nil, err
		}
		out = append(out, &img)
	}
	return out, rows.Err()
}
