package database

import (
	"fmt"

	"github.com/volontulo/go-volontulo/internal/models"
)

// --- Page Queries ---

const pageSelect = `SELECT pg.id, pg.title, pg.content, pg.author_id, pg.published, pg.created_at, pg.modified_at,
	u.first_name, u.last_name, u.username
	FROM pages pg
	JOIN user_profiles p ON p.id = pg.author_id
	JOIN users u ON u.id = p.user_id`

func scanPage(row rowScanner) (*models.Page, error) {
	var page models.Page
	var author models.User
	err := row.Scan(&page.ID, &page.Title, &page.Content, &page.AuthorID, &page.Published,
		&page.CreatedAt, &page.ModifiedAt, &author.FirstName, &author.LastName, &author.Username)
	if err != nil {
		return nil, err
	}
	page.AuthorName = author.FullName()
	return &page, nil
}

// GetAllPages returns all pages, newest first
const query_GetAllPages = pageSelect + ` ORDER BY pg.created_at DESC, pg.id DESC`

func (db *Database) GetAllPages() ([]*models.Page, error) {
	return db.queryPages(query_GetAllPages)
}

// GetPublishedPages returns only published pages, newest first
const query_GetPublishedPages = pageSelect + ` WHERE pg.published = 1 ORDER BY pg.created_at DESC, pg.id DESC`

func (db *Database) GetPublishedPages() ([]*models.Page, error) {
	return db.queryPages(query_GetPublishedPages)
}

func (db *Database) queryPages(query string, args ...interface{}) ([]*models.Page, error) {
	rows, err := retryableQuery(db.mainDB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	pages := []*models.Page{}
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// GetPageByID returns a page by ID, ErrNotFound if missing
const query_GetPageByID = pageSelect + ` WHERE pg.id = ?`

func (db *Database) GetPageByID(id int64) (*models.Page, error) {
	page, err := scanPage(db.mainDB.QueryRow(query_GetPageByID, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("page %d", id))
	}
	return page, nil
}

// CreatePage creates a new page
const query_CreatePage = `INSERT INTO pages (title, content, author_id, published, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?)`

func (db *Database) CreatePage(page *models.Page) error {
	ts := now()
	result, err := retryableExec(db.mainDB, query_CreatePage, page.Title, page.Content, page.AuthorID, page.Published, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for page: %w", err)
	}
	page.ID = id
	page.CreatedAt = ts
	page.ModifiedAt = ts
	return nil
}

// UpdatePage updates title, content and published flag; the author stays
const query_UpdatePage = `UPDATE pages SET title = ?, content = ?, published = ?, modified_at = ? WHERE id = ?`

func (db *Database) UpdatePage(page *models.Page) error {
	ts := now()
	res, err := retryableExec(db.mainDB, query_UpdatePage, page.Title, page.Content, page.Published, ts, page.ID)
	if err != nil {
		return fmt.Errorf("failed to update page ID %d: %w", page.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	page.ModifiedAt = ts
	return nil
}

// DeletePage deletes a page
const query_DeletePage = `DELETE FROM pages WHERE id = ?`

func (db *Database) DeletePage(id int64) error {
	res, err := retryableExec(db.mainDB, query_DeletePage, id)
	if err != nil {
		return fmt.Errorf("failed to delete page ID %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
