package store

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/soyeahso/creatorpilot/internal/domain"
)

// CreatorIndex stores creators with full-text search via SQLite FTS5.
type CreatorIndex struct {
	db *DB
}

// NewCreatorIndex creates a creator index using the given database.
func NewCreatorIndex(db *DB) *CreatorIndex {
	return &CreatorIndex{db: db}
}

// Upsert inserts or updates a creator.
func (c *CreatorIndex) Upsert(cr domain.Creator) error {
	_, err := c.db.sql.Exec(
		`INSERT INTO creators (id, handle, name, platform, niche, followers, engagement_rate, location, email)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   handle = excluded.handle,
		   name = excluded.name,
		   platform = excluded.platform,
		   niche = excluded.niche,
		   followers = excluded.followers,
		   engagement_rate = excluded.engagement_rate,
		   location = excluded.location,
		   email = excluded.email`,
		cr.ID, cr.Handle, cr.Name, cr.Platform, cr.Niche,
		cr.Followers, cr.EngagementRate, cr.Location, cr.Email,
	)
	if err != nil {
		return fmt.Errorf("upserting creator %s: %w", cr.ID, err)
	}
	return nil
}

// Get returns a creator by id.
func (c *CreatorIndex) Get(id string) (domain.Creator, error) {
	rows, err := c.db.sql.Query(
		`SELECT id, handle, name, platform, niche, followers, engagement_rate, location, email
		 FROM creators WHERE id = ?`, id,
	)
	if err != nil {
		return domain.Creator{}, err
	}
	defer rows.Close()

	found, err := scanCreators(rows)
	if err != nil {
		return domain.Creator{}, err
	}
	if len(found) == 0 {
		return domain.Creator{}, fmt.Errorf("creator %s: %w", id, ErrNotFound)
	}
	return found[0], nil
}

// Search finds creators whose handle, name, niche or location match any
// word of query, best match first. An empty query lists by follower count.
// Limit of 0 defaults to 20.
func (c *CreatorIndex) Search(query string, limit int) ([]domain.Creator, error) {
	if limit <= 0 {
		limit = 20
	}

	match := ftsQuery(query)
	if match == "" {
		return c.List(limit)
	}

	rows, err := c.db.sql.Query(
		`SELECT cr.id, cr.handle, cr.name, cr.platform, cr.niche, cr.followers,
		        cr.engagement_rate, cr.location, cr.email
		 FROM creators_fts
		 JOIN creators cr ON cr.rowid = creators_fts.rowid
		 WHERE creators_fts MATCH ?
		 ORDER BY rank, cr.followers DESC
		 LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching creators: %w", err)
	}
	defer rows.Close()

	return scanCreators(rows)
}

// List returns creators ordered by follower count.
func (c *CreatorIndex) List(limit int) ([]domain.Creator, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.db.sql.Query(
		`SELECT id, handle, name, platform, niche, followers, engagement_rate, location, email
		 FROM creators ORDER BY followers DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing creators: %w", err)
	}
	defer rows.Close()

	return scanCreators(rows)
}

// ftsQuery turns free text into an FTS5 OR-query of quoted words, so that
// user punctuation can never be parsed as query syntax.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

func scanCreators(rows *sql.Rows) ([]domain.Creator, error) {
	var out []domain.Creator
	for rows.Next() {
		var cr domain.Creator
		if err := rows.Scan(
			&cr.ID, &cr.Handle, &cr.Name, &cr.Platform, &cr.Niche,
			&cr.Followers, &cr.EngagementRate, &cr.Location, &cr.Email,
		); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}
