package offers

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("offer not found")
	ErrAdminCannotCreate = errors.New("administrators cannot create offers")
	ErrNoOrganization    = errors.New("user has no organization")
	ErrEditForbidden     = errors.New("user cannot edit this offer")
	ErrAlreadyApplied    = errors.New("user already applied for this offer")
)

// NonFieldErrors is the key for errors not bound to a single field
const NonFieldErrors = "non_field_errors"

// FieldError is an untranslated validation message; Key is an i18n message key
type FieldError struct {
	Key  string
	Args []interface{}
}

// FieldErrors maps input field names to their validation errors
type FieldErrors map[string][]FieldError

// Add records an error for field
func (fe FieldErrors) Add(field, key string, args ...interface{}) {
	fe[field] = append(fe[field], FieldError{Key: key, Args: args})
}

// Has reports whether field already failed
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Error lists the failed fields
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid input: " + strings.Join(fields, ", ")
}

// AsFieldErrors unwraps validation errors
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
