// Package storage persists monuments and their tags, materials, images and
// references in SQLite.
package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

// DefaultSimilarLimit caps the candidates returned by FindSimilar.
const DefaultSimilarLimit = 100

// Repository is the catalog store consumed by the ingestion job and the
// duplicate probe.
type Repository interface {
	// Save persists the core record with its references and contributions
	// and returns the new id.
	Save(ctx context.Context, s *monument.Suggestion) (int64, error)
	FindByID(ctx context.Context, id int64) (*monument.Record, error)
	FindSimilar(ctx context.Context, q monument.SimilarQuery) ([]monument.Record, error)
	// SaveTagOrMaterial returns the id of the tag or material named name,
	// creating it only when no entry with exactly that name exists, and
	// associates it with each monument id.
	SaveTagOrMaterial(ctx context.Context, name string, material bool, monumentIDs ...int64) (int64, error)
	SaveImage(ctx context.Context, monumentID int64, img ImageRecord) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// ImageRecord is an uploaded image attached to a monument.
type ImageRecord struct {
	URL          string
	Primary      bool
	Caption      string
	AltText      string
	ReferenceURL string
	ContentType  string
}

// SQLRepository implements Repository on database/sql with SQLite.
type SQLRepository struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewSQLRepository creates a repository over an opened, migrated database.
func NewSQLRepository(db *sql.DB, logger *zap.SugaredLogger) *SQLRepository {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SQLRepository{db: db, logger: logger.Named("storage"), now: time.Now}
}

// Save inserts the monument, its references and contributions in a single
// transaction.
func (r *SQLRepository) Save(ctx context.Context, s *monument.Suggestion) (int64, error) {
	if s == nil {
		return 0, errors.NewInvalidRequestError("nil suggestion")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	now := r.now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO monuments (
			title, title_key, address, city, state,
			latitude, longitude, artist, description, inscription,
			date_text, year, month, day, parsed_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Title,
		monument.NormalizeTitle(s.Title),
		s.Address,
		s.City,
		s.State,
		nullFloat(s.Latitude),
		nullFloat(s.Longitude),
		s.Artist,
		s.Description,
		s.Inscription,
		s.DateText,
		s.Year,
		s.Month,
		s.Day,
		nullTime(s.Date),
		now,
		now,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert monument %q", s.Title)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read monument id")
	}

	for i, ref := range s.References {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO monument_references (monument_id, url, position) VALUES (?, ?, ?)`,
			id, ref, i); err != nil {
			return 0, errors.Wrapf(err, "failed to insert reference %q", ref)
		}
	}

	for _, c := range s.Contributions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contributions (monument_id, name, contributed_at) VALUES (?, ?, ?)`,
			id, c.Name, c.Date.UTC()); err != nil {
			return 0, errors.Wrapf(err, "failed to insert contribution by %q", c.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit monument")
	}

	r.logger.Debugw("Monument saved", "record_id", id, "title", s.Title)
	return id, nil
}

const recordColumns = `id, title, address, city, state, latitude, longitude, artist, created_at, updated_at`

// FindByID returns the monument with id, or an error wrapping
// errors.ErrNotFound.
func (r *SQLRepository) FindByID(ctx context.Context, id int64) (*monument.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM monuments WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("monument %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get monument %d", id)
	}
	return rec, nil
}

// FindSimilar narrows candidates by normalized title and by location, so
// the limit applies only to records that could still be duplicates.
// dedup.Matches still makes the final call on each candidate.
func (r *SQLRepository) FindSimilar(ctx context.Context, q monument.SimilarQuery) ([]monument.Record, error) {
	if q.TitleKey == "" {
		return nil, nil
	}

	var (
		where string
		args  []any
	)
	if q.Strict {
		where = `title_key = ?`
		args = []any{q.TitleKey}
	} else {
		where = `title_key <> '' AND (instr(title_key, ?) > 0 OR instr(?, title_key) > 0)`
		args = []any{q.TitleKey, q.TitleKey}
	}
	if clause, locArgs := locationClause(q); clause != "" {
		where += ` AND ` + clause
		args = append(args, locArgs...)
	}
	query := `SELECT ` + recordColumns + ` FROM monuments WHERE ` + where + ` ORDER BY id LIMIT ?`
	args = append(args, DefaultSimilarLimit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query similar monuments")
	}
	defer rows.Close()

	var records []monument.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan monument")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate similar monuments")
	}
	return records, nil
}

const sqlNoAddress = `trim(coalesce(address, ''), ' ' || char(9) || char(10) || char(13)) = ''`

// sqlAddressKey lower-cases operand and strips its whitespace.
func sqlAddressKey(operand string) string {
	return `replace(replace(replace(replace(lower(` + operand + `), ' ', ''), char(9), ''), char(10), ''), char(13), '')`
}

// locationClause mirrors the location rule of duplicate detection: a record
// stays a candidate when its address matches, when every comparable
// coordinate is within tolerance, or when nothing is comparable at all.
// Addresses compare ignoring ASCII case and all whitespace.
func locationClause(q monument.SimilarQuery) (string, []any) {
	address := strings.TrimSpace(q.Address)
	if address == "" && q.Latitude == nil && q.Longitude == nil {
		return "", nil
	}

	var (
		alts []string
		args []any
	)
	if address != "" {
		alts = append(alts, sqlAddressKey(`coalesce(address, '')`)+` = `+sqlAddressKey(`?`))
		args = append(args, address)
	}

	var compared, within []string
	var withinArgs []any
	for _, dim := range []struct {
		column string
		value  *float64
	}{{"latitude", q.Latitude}, {"longitude", q.Longitude}} {
		if dim.value == nil {
			continue
		}
		compared = append(compared, dim.column+` IS NOT NULL`)
		within = append(within, `(`+dim.column+` IS NULL OR abs(`+dim.column+` - ?) <= ?)`)
		withinArgs = append(withinArgs, *dim.value, q.Tolerance)
	}
	if len(compared) > 0 {
		alts = append(alts, `((`+strings.Join(compared, ` OR `)+`) AND `+strings.Join(within, ` AND `)+`)`)
		args = append(args, withinArgs...)
	}

	var unconstrained []string
	if address != "" {
		unconstrained = append(unconstrained, sqlNoAddress)
	}
	for _, c := range compared {
		unconstrained = append(unconstrained, `NOT `+c)
	}
	alts = append(alts, `(`+strings.Join(unconstrained, ` AND `)+`)`)

	return `(` + strings.Join(alts, ` OR `) + `)`, args
}

// SaveTagOrMaterial reuses an existing entry with exactly name before
// creating one.
func (r *SQLRepository) SaveTagOrMaterial(ctx context.Context, name string, material bool, monumentIDs ...int64) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.NewInvalidRequestError("empty tag name")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE name = ? AND is_material = ?`, name, material).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tags (name, is_material, created_at) VALUES (?, ?, ?)`,
			name, material, r.now().UTC())
		if err != nil {
			return 0, errors.Wrapf(err, "failed to insert tag %q", name)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, errors.Wrap(err, "failed to read tag id")
		}
	case err != nil:
		return 0, errors.Wrapf(err, "failed to look up tag %q", name)
	}

	for _, monumentID := range monumentIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO monument_tags (monument_id, tag_id) VALUES (?, ?)`,
			monumentID, id); err != nil {
			return 0, errors.Wrapf(err, "failed to tag monument %d with %q", monumentID, name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit tag")
	}
	return id, nil
}

// SaveImage attaches an uploaded image to a monument.
func (r *SQLRepository) SaveImage(ctx context.Context, monumentID int64, img ImageRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO images (
			monument_id, url, is_primary, caption, alt_text, reference_url, content_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		monumentID, img.URL, img.Primary, img.Caption, img.AltText, img.ReferenceURL, img.ContentType, r.now().UTC())
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert image for monument %d", monumentID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read image id")
	}
	return id, nil
}

// Delete removes a monument and everything attached to it.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM monuments WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete monument %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("monument %d", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*monument.Record, error) {
	var (
		rec      monument.Record
		lat, lon sql.NullFloat64
	)
	if err := s.Scan(
		&rec.ID, &rec.Title, &rec.Address, &rec.City, &rec.State,
		&lat, &lon, &rec.Artist, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lat.Valid {
		rec.Latitude = &lat.Float64
	}
	if lon.Valid {
		rec.Longitude = &lon.Float64
	}
	return &rec, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
