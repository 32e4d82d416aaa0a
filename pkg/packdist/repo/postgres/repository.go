package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/packforge/packdist/pkg/packdist"
)

// DB is the subset of pgxpool.Pool the repository needs. Begin is required
// because a category file and its individual files commit as one
// transaction.
type DB interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements packdist.Repository using PostgreSQL
type Repository struct {
	db DB
}

// New creates a new PostgreSQL repository
func New(db DB) packdist.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) packdist.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "individual_file") {
				return fmt.Errorf("duplicate file path in category file")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) GetVersion(ctx context.Context, id uuid.UUID) (*packdist.Version, error) {
	query := `
        SELECT id, modpack_id, name, mc_version, forge_version, state,
               released_at, created_at
        FROM modpack_version WHERE id = $1`

	var version packdist.Version
	err := r.db.QueryRow(ctx, query, id).Scan(
		&version.ID, &version.ModpackID, &version.Name, &version.McVersion,
		&version.ForgeVersion, &version.State, &version.ReleasedAt,
		&version.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", packdist.ErrVersionNotFound, id)
		}
		return nil, r.handlePostgresError("get version", err)
	}

	return &version, nil
}

func (r *Repository) CreateCategoryFile(ctx context.Context, cf *packdist.CategoryFile, files []packdist.IndividualFile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("begin create category file", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO category_file (
			id, version_id, modpack_id, category, archive_hash, is_delta,
			total_size, file_count, origin_version_id, reused_from,
			uploaded_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.Exec(ctx, query,
		cf.ID, cf.VersionID, cf.ModpackID, cf.Category, cf.ArchiveHash,
		cf.IsDelta, cf.TotalSize, cf.FileCount, cf.OriginVersionID,
		cf.ReusedFrom, cf.UploadedBy, cf.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create category file", err)
	}

	if len(files) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"individual_file"},
			[]string{"id", "category_file_id", "relative_path", "content_hash", "size"},
			pgx.CopyFromSlice(len(files), func(i int) ([]interface{}, error) {
				f := files[i]
				return []interface{}{f.ID, f.CategoryFileID, f.RelativePath, f.ContentHash, f.Size}, nil
			}),
		)
		if err != nil {
			return r.handlePostgresError("insert individual files", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("commit create category file", err)
	}

	return nil
}

func (r *Repository) GetCategoryFile(ctx context.Context, id uuid.UUID) (*packdist.CategoryFile, error) {
	query := categoryFileSelect + ` WHERE cf.id = $1`

	cf, err := r.scanCategoryFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", packdist.ErrCategoryFileNotFound, id)
		}
		return nil, r.handlePostgresError("get category file", err)
	}

	return cf, nil
}

func (r *Repository) GetCurrentCategoryFile(ctx context.Context, versionID uuid.UUID, category packdist.Category) (*packdist.CategoryFile, error) {
	// Superseded rows are retained; the newest row is the current one.
	query := categoryFileSelect + `
        WHERE cf.version_id = $1 AND cf.category = $2
        ORDER BY cf.created_at DESC, cf.id
        LIMIT 1`

	cf, err := r.scanCategoryFile(r.db.QueryRow(ctx, query, versionID, category))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: version %s category %s", packdist.ErrCategoryFileNotFound, versionID, category)
		}
		return nil, r.handlePostgresError("get current category file", err)
	}

	return cf, nil
}

func (r *Repository) FindLatestCategoryFile(ctx context.Context, modpackID uuid.UUID, category packdist.Category) (*packdist.CategoryFile, []packdist.IndividualFile, error) {
	// Baseline lookup: the current category file of the most recently
	// released version of the modpack. Drafts never serve as a baseline.
	query := categoryFileSelect + `
        JOIN modpack_version v ON v.id = cf.version_id
        WHERE v.modpack_id = $1 AND cf.category = $2 AND v.released_at IS NOT NULL
        ORDER BY v.released_at DESC, cf.created_at DESC, cf.id
        LIMIT 1`

	cf, err := r.scanCategoryFile(r.db.QueryRow(ctx, query, modpackID, category))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: modpack %s category %s", packdist.ErrCategoryFileNotFound, modpackID, category)
		}
		return nil, nil, r.handlePostgresError("find latest category file", err)
	}

	files, err := r.ListIndividualFiles(ctx, cf.ID)
	if err != nil {
		return nil, nil, err
	}

	return cf, files, nil
}

func (r *Repository) ListIndividualFiles(ctx context.Context, categoryFileID uuid.UUID) ([]packdist.IndividualFile, error) {
	query := `
        SELECT id, category_file_id, relative_path, content_hash, size
        FROM individual_file
        WHERE category_file_id = $1
        ORDER BY relative_path`

	rows, err := r.db.Query(ctx, query, categoryFileID)
	if err != nil {
		return nil, r.handlePostgresError("list individual files", err)
	}
	defer rows.Close()

	var files []packdist.IndividualFile
	for rows.Next() {
		var f packdist.IndividualFile
		if err := rows.Scan(&f.ID, &f.CategoryFileID, &f.RelativePath, &f.ContentHash, &f.Size); err != nil {
			return nil, r.handlePostgresError("scan individual file", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate individual file rows", err)
	}

	return files, nil
}

const categoryFileSelect = `
        SELECT cf.id, cf.version_id, cf.modpack_id, cf.category,
               cf.archive_hash, cf.is_delta, cf.total_size, cf.file_count,
               cf.origin_version_id, cf.reused_from, cf.uploaded_by,
               cf.created_at
        FROM category_file cf`

func (r *Repository) scanCategoryFile(row pgx.Row) (*packdist.CategoryFile, error) {
	var cf packdist.CategoryFile
	err := row.Scan(
		&cf.ID, &cf.VersionID, &cf.ModpackID, &cf.Category, &cf.ArchiveHash,
		&cf.IsDelta, &cf.TotalSize, &cf.FileCount, &cf.OriginVersionID,
		&cf.ReusedFrom, &cf.UploadedBy, &cf.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cf, nil
}
