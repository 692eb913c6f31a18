package persistence

import (
	"database/sql"
	"time"
)

// SQLiteTimeLayout stores timestamps as fixed-width UTC text so that
// lexical order matches time order and equal instants compare equal.
const SQLiteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t for a SQLite TEXT column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(SQLiteTimeLayout)
}

// FormatNullTime renders an optional timestamp.
func FormatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// ParseTime parses a SQLite TEXT timestamp written by FormatTime. RFC 3339
// values are accepted as well.
func ParseTime(value string) (time.Time, error) {
	t, err := time.Parse(SQLiteTimeLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.UTC(), nil
}

// ParseNullTime parses an optional SQLite timestamp.
func ParseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := ParseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NullString converts an optional string for database/sql.
func NullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// StringPtr converts a nullable column back to an optional string.
func StringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
