package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

// NewAnnouncement carries the fields accepted when creating an announcement.
type NewAnnouncement struct {
	Title        string
	ContentHTML  string
	Status       string // defaults to "pending"
	Priority     string // defaults to "normal"
	ServiceBody  string
	StartDate    string // display window, empty = open ended
	EndDate      string
	StartTime    string
	EndTime      string
	ContactName  string
	ContactEmail string
	Categories   []string
	Tags         []string
}

// AnnouncementOptions controls selection when listing announcements.
// Taxonomy and display-window filtering happen in the handler, where the
// current date is known.
type AnnouncementOptions struct {
	Status      string // defaults to "publish"
	Priority    string
	ServiceBody string
}

const announcementColumns = `id, title, content, status, priority, service_body, display_start_date, display_end_date, display_start_time, display_end_time, created_at`

// CreateAnnouncement inserts a new announcement with its terms and returns
// its id.
func (d *DB) CreateAnnouncement(ctx context.Context, a NewAnnouncement) (int64, error) {
	if a.Title == "" {
		return 0, errors.New("announcement title is required")
	}
	status := a.Status
	if status == "" {
		status = "pending"
	}
	priority := a.Priority
	if priority == "" {
		priority = "normal"
	}
	if !validPriority(priority) {
		return 0, errors.New("invalid announcement priority: " + priority)
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

	res, err := tx.ExecContext(ctx, `INSERT INTO announcements(title, content, status, priority, service_body, display_start_date, display_end_date, display_start_time, display_end_time, contact_name, contact_email) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		a.Title, a.ContentHTML, status, priority, a.ServiceBody, a.StartDate, a.EndDate, a.StartTime, a.EndTime, a.ContactName, a.ContactEmail)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err = attachTerms(ctx, tx, "announcement_terms", "announcement_id", id, TaxCategory, a.Categories); err != nil {
		return 0, err
	}
	if err = attachTerms(ctx, tx, "announcement_terms", "announcement_id", id, TaxTag, a.Tags); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetAnnouncement returns a single announcement by id, or sql.ErrNoRows.
func (d *DB) GetAnnouncement(ctx context.Context, id int64) (*event.Announcement, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = ?`, id)
	ann, err := scanAnnouncement(row)
	if err != nil {
		return nil, err
	}
	if err := d.loadAnnouncementTerms(ctx, ann); err != nil {
		return nil, err
	}
	return ann, nil
}

// ListAnnouncements returns announcements matching the meta filters, newest
// first within equal display start dates.
func (d *DB) ListAnnouncements(ctx context.Context, opts AnnouncementOptions) ([]event.Announcement, error) {
	status := opts.Status
	if status == "" {
		status = "publish"
	}

	where := "WHERE status = ?"
	args := []interface{}{status}

	if opts.Priority != "" {
		where += " AND priority = ?"
		args = append(args, opts.Priority)
	}
	if opts.ServiceBody != "" {
		where += " AND service_body = ?"
		args = append(args, strings.TrimSpace(opts.ServiceBody))
	}

	q := `SELECT ` + announcementColumns + ` FROM announcements ` + where + ` ORDER BY display_start_date, created_at DESC, id`
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Announcement
	for rows.Next() {
		ann, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ann)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := d.loadAnnouncementTerms(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetAnnouncementStatus moves an announcement through the moderation
// workflow, same states as events.
func (d *DB) SetAnnouncementStatus(ctx context.Context, id int64, status string) error {
	return d.setStatus(ctx, "announcements", id, status)
}

// AnnouncementStats returns per-status announcement counts for the db stats
// command.
func (d *DB) AnnouncementStats(ctx context.Context) ([]StatusCount, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT status, COUNT(*) FROM announcements GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Events); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func scanAnnouncement(row rowScanner) (*event.Announcement, error) {
	var (
		id      int64
		ann     event.Announcement
		content sql.NullString
	)
	if err := row.Scan(&id, &ann.Title, &content, &ann.Status, &ann.Priority, &ann.ServiceBody,
		&ann.StartDate, &ann.EndDate, &ann.StartTime, &ann.EndTime, &ann.CreatedAt); err != nil {
		return nil, err
	}
	ann.ID = strconv.FormatInt(id, 10)
	ann.ContentHTML = content.String
	return &ann, nil
}

func (d *DB) loadAnnouncementTerms(ctx context.Context, ann *event.Announcement) error {
	id, err := strconv.ParseInt(ann.ID, 10, 64)
	if err != nil {
		return err
	}
	ann.Categories, ann.Tags, err = d.termsFor(ctx, "announcement_terms", "announcement_id", id)
	return err
}

func validPriority(p string) bool {
	for _, v := range event.AnnouncementPriorities {
		if p == v {
			return true
		}
	}
	return false
}
