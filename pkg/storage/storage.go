// Package storage is the local event store, backed by SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS events (
  id                  INTEGER PRIMARY KEY,
  title               TEXT NOT NULL,
  description         TEXT,
  status              TEXT NOT NULL DEFAULT 'pending',
  event_type          TEXT NOT NULL DEFAULT '',
  service_body        TEXT NOT NULL DEFAULT '',
  start_date          TEXT NOT NULL,
  end_date            TEXT NOT NULL DEFAULT '',
  start_time          TEXT NOT NULL DEFAULT '',
  end_time            TEXT NOT NULL DEFAULT '',
  timezone            TEXT NOT NULL DEFAULT '',
  location_name       TEXT NOT NULL DEFAULT '',
  location_address    TEXT NOT NULL DEFAULT '',
  location_details    TEXT NOT NULL DEFAULT '',
  contact_name        TEXT NOT NULL DEFAULT '',
  contact_email       TEXT NOT NULL DEFAULT '',
  recurring_pattern   TEXT,
  skipped_occurrences TEXT,
  created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_date);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
CREATE TABLE IF NOT EXISTS terms (
  id       INTEGER PRIMARY KEY,
  taxonomy TEXT NOT NULL CHECK (taxonomy IN ('category','tag')),
  name     TEXT NOT NULL,
  slug     TEXT NOT NULL,
  UNIQUE(taxonomy, slug)
);
CREATE TABLE IF NOT EXISTS event_terms (
  event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
  term_id  INTEGER NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
  PRIMARY KEY (event_id, term_id)
);
CREATE TABLE IF NOT EXISTS announcements (
  id                 INTEGER PRIMARY KEY,
  title              TEXT NOT NULL,
  content            TEXT,
  status             TEXT NOT NULL DEFAULT 'pending',
  priority           TEXT NOT NULL DEFAULT 'normal',
  service_body       TEXT NOT NULL DEFAULT '',
  display_start_date TEXT NOT NULL DEFAULT '',
  display_end_date   TEXT NOT NULL DEFAULT '',
  display_start_time TEXT NOT NULL DEFAULT '',
  display_end_time   TEXT NOT NULL DEFAULT '',
  contact_name       TEXT NOT NULL DEFAULT '',
  contact_email      TEXT NOT NULL DEFAULT '',
  created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_announcements_status ON announcements(status);
CREATE TABLE IF NOT EXISTS announcement_terms (
  announcement_id INTEGER NOT NULL REFERENCES announcements(id) ON DELETE CASCADE,
  term_id         INTEGER NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
  PRIMARY KEY (announcement_id, term_id)
);
CREATE TABLE IF NOT EXISTS subscribers (
  id         INTEGER PRIMARY KEY,
  email      TEXT NOT NULL UNIQUE,
  name       TEXT NOT NULL DEFAULT '',
  confirmed  INTEGER NOT NULL DEFAULT 0 CHECK (confirmed IN (0,1)),
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// CreateEvent inserts a new event with its terms and returns its id.
func (d *DB) CreateEvent(ctx context.Context, ev NewEvent) (int64, error) {
	if ev.Title == "" {
		return 0, errors.New("event title is required")
	}
	if ev.StartDate == "" {
		return 0, errors.New("event start date is required")
	}
	status := ev.Status
	if status == "" {
		status = "pending"
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO events(title, description, status, event_type, service_body, start_date, end_date, start_time, end_time, timezone, location_name, location_address, location_details, contact_name, contact_email, recurring_pattern) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ev.Title, ev.DescriptionHTML, status, ev.EventType, ev.ServiceBody, ev.StartDate, ev.EndDate, ev.StartTime, ev.EndTime, ev.Timezone,
		ev.LocationName, ev.LocationAddress, ev.LocationDetails, ev.ContactName, ev.ContactEmail, nullIfEmpty(ev.PatternJSON))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err = attachTerms(ctx, tx, "event_terms", "event_id", id, TaxCategory, ev.Categories); err != nil {
		return 0, err
	}
	if err = attachTerms(ctx, tx, "event_terms", "event_id", id, TaxTag, ev.Tags); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// attachTerms links the named terms to an owning row through the given join
// table, creating term rows as needed. Events and announcements share the
// same terms table.
func attachTerms(ctx context.Context, tx *sql.Tx, join, ownerCol string, ownerID int64, taxonomy string, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		slug := Slugify(name)
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO terms(taxonomy, name, slug) VALUES(?,?,?)`, taxonomy, name, slug); err != nil {
			return err
		}
		var termID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM terms WHERE taxonomy = ? AND slug = ?`, taxonomy, slug).Scan(&termID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO `+join+`(`+ownerCol+`, term_id) VALUES(?,?)`, ownerID, termID); err != nil {
			return err
		}
	}
	return nil
}

// Slugify lowercases a term name and collapses runs of non-alphanumerics
// into single dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

const eventColumns = `id, title, description, status, event_type, service_body, start_date, end_date, start_time, end_time, timezone, location_name, location_address, location_details, recurring_pattern, skipped_occurrences`

// GetEvent returns a single event by id, or sql.ErrNoRows.
func (d *DB) GetEvent(ctx context.Context, id int64) (*event.Record, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	rec, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	if err := d.loadTerms(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListEvents returns events matching the meta filters, ordered by start
// date. Date-window and taxonomy filtering happen downstream.
func (d *DB) ListEvents(ctx context.Context, opts ListOptions) ([]event.Record, error) {
	status := opts.Status
	if status == "" {
		status = "publish"
	}

	where := "WHERE status = ?"
	args := []interface{}{status}

	var metaClauses []string
	if opts.EventType != "" {
		metaClauses = append(metaClauses, "event_type = ?")
		args = append(args, opts.EventType)
	}
	if len(opts.ServiceBodies) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(opts.ServiceBodies)), ",")
		metaClauses = append(metaClauses, "service_body IN ("+ph+")")
		for _, sb := range opts.ServiceBodies {
			args = append(args, strings.TrimSpace(sb))
		}
	}
	if len(metaClauses) > 0 {
		rel := " AND "
		if strings.EqualFold(opts.Relation, "OR") && len(metaClauses) > 1 {
			rel = " OR "
		}
		where += " AND (" + strings.Join(metaClauses, rel) + ")"
	}
	if opts.OnlyRecurring {
		where += " AND recurring_pattern IS NOT NULL"
	}

	q := `SELECT ` + eventColumns + ` FROM events ` + where + ` ORDER BY start_date, start_time, id`
	return d.queryEvents(ctx, q, args...)
}

// SearchEvents returns published events whose title matches the search
// string, oldest start date first.
func (d *DB) SearchEvents(ctx context.Context, search string, limit int) ([]event.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + eventColumns + ` FROM events WHERE status = 'publish' AND title LIKE ? ORDER BY start_date, id LIMIT ?`
	return d.queryEvents(ctx, q, fmt.Sprintf("%%%s%%", search), limit)
}

func (d *DB) queryEvents(ctx context.Context, q string, args ...interface{}) ([]event.Record, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Record
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := d.loadTerms(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*event.Record, error) {
	var (
		id                   int64
		rec                  event.Record
		patternNS, skippedNS sql.NullString
		desc                 sql.NullString
	)
	if err := row.Scan(&id, &rec.Title, &desc, &rec.Status, &rec.EventType, &rec.ServiceBody,
		&rec.StartDate, &rec.EndDate, &rec.StartTime, &rec.EndTime, &rec.Timezone,
		&rec.Location.Name, &rec.Location.Address, &rec.Location.Details,
		&patternNS, &skippedNS); err != nil {
		return nil, err
	}
	rec.ID = strconv.FormatInt(id, 10)
	rec.DescriptionHTML = desc.String

	if patternNS.Valid && patternNS.String != "" {
		p := event.ParsePattern([]byte(patternNS.String))
		if p.Recurring() {
			rec.Recurrence = p
		}
	}
	if skippedNS.Valid && skippedNS.String != "" {
		// Malformed lists are ignored rather than failing the row.
		_ = json.Unmarshal([]byte(skippedNS.String), &rec.Skipped)
	}
	return &rec, nil
}

func (d *DB) loadTerms(ctx context.Context, rec *event.Record) error {
	id, err := strconv.ParseInt(rec.ID, 10, 64)
	if err != nil {
		return err
	}
	rec.Categories, rec.Tags, err = d.termsFor(ctx, "event_terms", "event_id", id)
	return err
}

func (d *DB) termsFor(ctx context.Context, join, ownerCol string, id int64) (categories, tags []event.Term, err error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT t.id, t.taxonomy, t.name, t.slug FROM terms t JOIN `+join+` j ON j.term_id = t.id WHERE j.`+ownerCol+` = ? ORDER BY t.id`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			term     event.Term
			taxonomy string
		)
		if err := rows.Scan(&term.ID, &taxonomy, &term.Name, &term.Slug); err != nil {
			return nil, nil, err
		}
		if taxonomy == TaxCategory {
			categories = append(categories, term)
		} else {
			tags = append(tags, term)
		}
	}
	return categories, tags, rows.Err()
}

// SetSkippedOccurrences replaces the skipped-occurrence date list on a
// master record.
func (d *DB) SetSkippedOccurrences(ctx context.Context, id int64, dates []string) error {
	data, err := json.Marshal(dates)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx, `UPDATE events SET skipped_occurrences = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(data), id)
	return err
}

// SetStatus moves an event through the moderation workflow
// (pending -> publish, or -> trash).
func (d *DB) SetStatus(ctx context.Context, id int64, status string) error {
	return d.setStatus(ctx, "events", id, status)
}

func (d *DB) setStatus(ctx context.Context, table string, id int64, status string) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE `+table+` SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddSubscriber stores an email subscription. Re-subscribing an existing
// address is not an error.
func (d *DB) AddSubscriber(ctx context.Context, email, name string) error {
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("invalid subscriber email")
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO subscribers(email, name) VALUES(?,?) ON CONFLICT(email) DO UPDATE SET name = excluded.name`, email, name)
	return err
}

func (d *DB) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, email, name, confirmed, created_at FROM subscribers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subscriber
	for rows.Next() {
		var (
			s         Subscriber
			confirmed int
		)
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &confirmed, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Confirmed = confirmed == 1
		out = append(out, s)
	}
	return out, rows.Err()
}

// EventStats returns per-status event counts for the db stats command.
func (d *DB) EventStats(ctx context.Context) ([]StatusCount, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT status, COUNT(*), SUM(CASE WHEN recurring_pattern IS NOT NULL THEN 1 ELSE 0 END) FROM events GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Events, &sc.Recurring); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
