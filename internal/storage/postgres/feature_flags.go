package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

const flagColumns = `id, name, title, description, config, owner, launched_at, created_at, updated_at`

func scanFeatureFlag(row pgx.Row) (types.FeatureFlag, error) {
	var f types.FeatureFlag
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Title,
		&f.Description,
		&f.Config,
		&f.Owner,
		&f.LaunchedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

func (p *PostgresBackend) ListFeatureFlags(ctx context.Context) ([]types.FeatureFlag, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+flagColumns+` FROM feature_flags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature flags: %w", err)
	}
	defer rows.Close()

	flags := []types.FeatureFlag{}
	for rows.Next() {
		f, err := scanFeatureFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feature flag: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (p *PostgresBackend) GetFeatureFlag(ctx context.Context, name string) (*types.FeatureFlag, error) {
	f, err := scanFeatureFlag(p.pool.QueryRow(ctx, `SELECT `+flagColumns+` FROM feature_flags WHERE name = $1`, name))
	if err != nil {
		return nil, wrapErr(err, "failed to get feature flag")
	}
	return &f, nil
}

func (p *PostgresBackend) CreateFeatureFlag(ctx context.Context, flag types.FeatureFlag) (*types.FeatureFlag, error) {
	query := `
		INSERT INTO feature_flags (name, title, description, config, owner, launched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + flagColumns
	f, err := scanFeatureFlag(p.pool.QueryRow(ctx, query,
		flag.Name,
		flag.Title,
		flag.Description,
		flag.Config,
		flag.Owner,
		flag.LaunchedAt,
	))
	if err != nil {
		return nil, wrapErr(err, "failed to create feature flag")
	}
	return &f, nil
}

func (p *PostgresBackend) UpdateFeatureFlag(ctx context.Context, flag types.FeatureFlag) (*types.FeatureFlag, error) {
	query := `
		UPDATE feature_flags
		SET title = $2, description = $3, config = $4, launched_at = $5, updated_at = NOW()
		WHERE name = $1
		RETURNING ` + flagColumns
	f, err := scanFeatureFlag(p.pool.QueryRow(ctx, query,
		flag.Name,
		flag.Title,
		flag.Description,
		flag.Config,
		flag.LaunchedAt,
	))
	if err != nil {
		return nil, wrapErr(err, "failed to update feature flag")
	}
	return &f, nil
}

// UpsertFeatureFlag is used by seeding; existing flags keep their config.
func (p *PostgresBackend) UpsertFeatureFlag(ctx context.Context, flag types.FeatureFlag) error {
	query := `
		INSERT INTO feature_flags (name, title, description, config)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			updated_at = NOW()
	`
	_, err := p.pool.Exec(ctx, query, flag.Name, flag.Title, flag.Description, flag.Config)
	return wrapErr(err, "failed to upsert feature flag")
}

func (p *PostgresBackend) DeleteFeatureFlag(ctx context.Context, name string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM feature_flags WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete feature flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("feature flag %s: %w", name, storage.ErrNotFound)
	}
	return nil
}
