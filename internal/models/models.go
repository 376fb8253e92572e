// Package models provides the core data structures for go-volontulo
package models

import (
	"regexp"
	"strings"
	"time"
)

// User represents a registered account (main DB)
type User struct {
	ID               int64      `json:"id" db:"id"`
	Username         string     `json:"username" db:"username"`
	Email            string     `json:"email" db:"email"`
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	SessionID        string     `json:"-" db:"session_id"`         // Current web session (64 chars)
	LastLoginIP      string     `json:"-" db:"last_login_ip"`      // IP of last login (for logging only)
	SessionExpiresAt *time.Time `json:"-" db:"session_expires_at"` // Session expiration (sliding)
	LoginAttempts    int        `json:"-" db:"login_attempts"`     // Failed login attempts counter
	CreatedAt        time.Time  `json:"-" db:"created_at"`
	UpdatedAt        time.Time  `json:"-" db:"updated_at"`
}

// FullName returns "first last" or the username when both are empty
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserProfile carries the volunteer/organization side of a user
type UserProfile struct {
	ID              int64               `json:"id" db:"id"`
	UserID          int64               `json:"user_id" db:"user_id"`
	IsAdministrator bool                `json:"is_administrator" db:"is_administrator"`
	PhoneNo         string              `json:"phone_no" db:"phone_no"`
	User            *User               `json:"user" db:"-"`
	Organizations   []*Organization     `json:"organizations" db:"-"`
	Images          []*UserGalleryImage `json:"images" db:"-"`
}

// UserGalleryImage is an image uploaded to a user's gallery
type UserGalleryImage struct {
	ID            int64  `json:"id" db:"id"`
	UserProfileID int64  `json:"-" db:"userprofile_id"`
	Image         string `json:"image" db:"image"`
	IsAvatar      bool   `json:"is_avatar" db:"is_avatar"`
}

// Organization represents an organization publishing offers
type Organization struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Address     string `json:"address" db:"address"`
	Description string `json:"description" db:"description"`
}

// Page represents a static content page managed by administrators
type Page struct {
	ID         int64     `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	AuthorID   int64     `json:"author_id" db:"author_id"` // UserProfile id
	AuthorName string    `json:"author_name" db:"-"`
	Published  bool      `json:"published" db:"published"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ModifiedAt time.Time `json:"modified_at" db:"modified_at"`
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slug returns a URL friendly version of the title
func (p *Page) Slug() string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(p.Title), "-")
	return strings.Trim(s, "-")
}

// AuthToken represents a REST API token record
type AuthToken struct {
	ID         int64      `db:"id"`
	TokenHash  string     `db:"token_hash"`
	UserID     int64      `db:"user_id"`
	CreatedAt  time.Time  `db:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
	UsageCount int        `db:"usage_count"`
}

// History actions recorded for offers
const (
	HistoryActionCreate = "create"
	HistoryActionChange = "change"
	HistoryActionJoin   = "join"
)

// OfferHistory is an audit entry for an offer
type OfferHistory struct {
	ID        int64     `json:"id" db:"id"`
	OfferID   int64     `json:"offer_id" db:"offer_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OfferApplication is what a volunteer submits when joining an offer
type OfferApplication struct {
	Email    string `json:"email" form:"email" binding:"required,max=80"`
	PhoneNo  string `json:"phone_no" form:"phone_no" binding:"required,max=80"`
	Fullname string `json:"fullname" form:"fullname" binding:"required,max=80"`
	Comments string `json:"comments" form:"comments"`
}

// PaginationInfo represents pagination information for templates
type PaginationInfo struct {
	CurrentPage int
	PageSize    int
	TotalCount  int
	TotalPages  int
	HasNext     bool
	HasPrev     bool
	NextPage    int
	PrevPage    int
}

// NewPaginationInfo creates pagination info
func NewPaginationInfo(page, pageSize, totalCount int) *PaginationInfo {
	totalPages := (totalCount + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	return &PaginationInfo{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
		NextPage:    page + 1,
		PrevPage:    page - 1,
	}
}

// PaginatedResponse is the JSON envelope for paged API lists
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalCount int         `json:"total_count"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
	HasPrev    bool        `json:"has_prev"`
}
