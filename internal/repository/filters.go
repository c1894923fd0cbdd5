package repository

import (
	"strings"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	searchLimit     = 10

	// maxPage keeps (page-1)*page_size far from integer overflow.
	maxPage = 1_000_000
)

// SessionFilter narrows GET /v1/sessions. Nil pointers mean "any".
type SessionFilter struct {
	Search     string // substring of the payer name or next player, case-insensitive
	Paid       *bool
	InProgress *bool
	TableID    *uint64
	From       *time.Time // start_time >= From
	To         *time.Time // start_time < To
	Page       int
	PageSize   int
}

// ClientFilter narrows client listings. Prefix is used by the autocomplete
// endpoint; Search matches anywhere in name, phone or email.
type ClientFilter struct {
	Search string
	Prefix string
	Limit  int
}

// TableFilter narrows table listings.
type TableFilter struct {
	Available *bool // in service and not occupied
}

// Normalize clamps paging values in place and returns limit and offset.
func (f *SessionFilter) Normalize() (limit, offset int) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > maxPage {
		f.Page = maxPage
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	return f.PageSize, (f.Page - 1) * f.PageSize
}

func (f ClientFilter) limit() int {
	switch {
	case f.Limit <= 0 && f.Prefix != "":
		return searchLimit
	case f.Limit <= 0:
		return maxPageSize
	case f.Limit > maxPageSize:
		return maxPageSize
	}
	return f.Limit
}

// LIKE escape clause understood identically by MySQL and SQLite.
const likeEscape = " ESCAPE '!'"

// likeArg escapes LIKE wildcards in user input and lower-cases it.
func likeArg(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
