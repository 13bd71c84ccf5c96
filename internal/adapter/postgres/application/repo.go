// Package application implements the Application store using PostgreSQL.
package application

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// Repo provides application persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new application repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const columns = `id, organization, role_title, platform, source_channel, applied_date,
	first_seen_date, status, last_updated, portal_link, notes`

// Create inserts the application, keyed on its normalized identity triple.
// When another run already created the same identity, the insert is a no-op
// and the existing row is returned with created = false. Safe to call
// concurrently: the unique identity index serializes racing creates.
func (r *Repo) Create(ctx context.Context, app domain.Application) (bool, domain.Application, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	org, role, plat := app.IdentityKey()

	row := q.QueryRow(ctx, `
		INSERT INTO applications (
			id, organization, role_title, platform, source_channel, applied_date,
			first_seen_date, status, last_updated, portal_link, notes,
			norm_organization, norm_role_title, norm_platform
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (norm_organization, norm_role_title, norm_platform) DO NOTHING
		RETURNING `+columns,
		app.ID, app.Organization, app.RoleTitle, app.Platform, app.SourceChannel,
		app.AppliedDate, app.FirstSeenDate, app.Status.String(), app.LastUpdated,
		app.PortalLink, app.Notes, org, role, plat,
	)

	created, err := scanApplication(row)
	if err == nil {
		return true, created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, domain.Application{}, postgres.MapError(err, "application", app.ID.String())
	}

	// Conflict: fetch the row that won.
	existing, err := r.getByIdentity(ctx, org, role, plat)
	if err != nil {
		return false, domain.Application{}, err
	}
	return false, existing, nil
}

func (r *Repo) getByIdentity(ctx context.Context, org, role, plat string) (domain.Application, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT `+columns+` FROM applications
		WHERE norm_organization = $1 AND norm_role_title = $2 AND norm_platform = $3`,
		org, role, plat,
	)
	app, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, postgres.MapError(err, "application", org+"/"+role)
	}
	return app, nil
}

// GetForUpdate returns the application with its row locked until the current
// transaction ends. Must be called inside RunInTx.
func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Application, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+columns+` FROM applications WHERE id = $1 FOR UPDATE`, id)
	app, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, postgres.MapError(err, "application", id.String())
	}
	return app, nil
}

// Update persists the mutable fields. Identity fields (organization, role,
// platform) are fixed at creation and never updated.
func (r *Repo) Update(ctx context.Context, app domain.Application) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE applications
		SET status = $2, last_updated = $3, portal_link = $4, applied_date = $5, notes = $6
		WHERE id = $1`,
		app.ID, app.Status.String(), app.LastUpdated, app.PortalLink, app.AppliedDate, app.Notes,
	)
	if err != nil {
		return postgres.MapError(err, "application", app.ID.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("application %s: %w", app.ID, domain.ErrNotFound)
	}
	return nil
}

// FindByPortalLink returns the application whose portal link equals the given
// link. Portal links are effectively unique per requisition; if duplicates
// ever exist, the most recently updated wins.
func (r *Repo) FindByPortalLink(ctx context.Context, link string) (domain.Application, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT `+columns+` FROM applications
		WHERE portal_link = $1
		ORDER BY last_updated DESC
		LIMIT 1`, link,
	)
	app, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, postgres.MapError(err, "application", link)
	}
	return app, nil
}

// ListCandidates returns every application ordered most-recently-updated
// first, the order the resolver uses as its fuzzy-match tie-break.
func (r *Repo) ListCandidates(ctx context.Context) ([]domain.Application, error) {
	return r.List(ctx, Filter{})
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status       domain.Status
	Organization string
	Limit        uint64
}

// List returns applications matching the filter, most recently updated first.
func (r *Repo) List(ctx context.Context, f Filter) ([]domain.Application, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	builder := sq.Select(columns).
		From("applications").
		OrderBy("last_updated DESC").
		PlaceholderFormat(sq.Dollar)

	if f.Status != "" {
		builder = builder.Where(sq.Eq{"status": f.Status.String()})
	}
	if f.Organization != "" {
		builder = builder.Where(sq.Eq{"norm_organization": domain.NormalizeText(f.Organization)})
	}
	if f.Limit > 0 {
		builder = builder.Limit(f.Limit)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "application", "list")
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, postgres.MapError(err, "application", "list")
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// StatusCounts returns how many applications sit in each status.
func (r *Repo) StatusCounts(ctx context.Context) (map[domain.Status]int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, `SELECT status, count(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, postgres.MapError(err, "application", "status_counts")
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, postgres.MapError(err, "application", "status_counts")
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

func scanApplication(row pgx.Row) (domain.Application, error) {
	var (
		app    domain.Application
		status string
	)
	err := row.Scan(
		&app.ID, &app.Organization, &app.RoleTitle, &app.Platform, &app.SourceChannel,
		&app.AppliedDate, &app.FirstSeenDate, &status, &app.LastUpdated,
		&app.PortalLink, &app.Notes,
	)
	if err != nil {
		return domain.Application{}, err
	}
	app.Status = domain.Status(status)
	return app, nil
}
