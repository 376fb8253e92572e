package database

import (
	"database/sql"

	"github.com/volontulo/go-volontulo/internal/models"
)

func insertHistoryTx(tx *sql.Tx, offerID, userID int64, action, message string) error {
	_, err := tx.Exec(`INSERT INTO offer_history (offer_id, user_id, action, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		offerID, userID, action, message, now())
	return err
}

// GetOfferHistory returns the audit trail of an offer, oldest first
func (db *Database) GetOfferHistory(offerID int64) ([]*models.OfferHistory, error) {
	rows, err := retryableQuery(db.mainDB,
		`SELECT id, offer_id, user_id, action, message, created_at FROM offer_history WHERE offer_id = ? ORDER BY id`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.OfferHistory{}
	for rows.Next() {
		var h models.OfferHistory
		if err := rows.Scan(&h.ID, &h.OfferID, &h.UserID, &h.Action, &h.Message, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}
