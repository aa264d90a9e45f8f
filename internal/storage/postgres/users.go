package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

const userColumns = `id, username, first_name, last_name, email, github_id, github_display_name,
	discord_id, discord_joined_at, roles, created_at, updated_at`

func scanUser(row pgx.Row) (types.User, error) {
	var (
		u         types.User
		discordID *string
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.GithubID,
		&u.GithubDisplay,
		&discordID,
		&u.DiscordJoinedAt,
		&u.Roles,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if discordID != nil {
		u.DiscordID = *discordID
	}
	if u.Roles == nil {
		u.Roles = map[string]bool{}
	}
	return u, err
}

func (p *PostgresBackend) FindUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapErr(err, "failed to find user")
	}
	return &u, nil
}

func (p *PostgresBackend) FindUserByGithubID(ctx context.Context, githubID string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE github_id = $1`
	u, err := scanUser(p.pool.QueryRow(ctx, query, githubID))
	if err != nil {
		return nil, wrapErr(err, "failed to find user by github id")
	}
	return &u, nil
}

func (p *PostgresBackend) CreateUser(ctx context.Context, dto types.UserCreateDto) (*types.User, error) {
	roles := dto.Roles
	if roles == nil {
		roles = map[string]bool{}
	}
	query := `
		INSERT INTO users (username, first_name, last_name, email, github_id, github_display_name, roles)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns
	u, err := scanUser(p.pool.QueryRow(ctx, query,
		dto.Username,
		dto.FirstName,
		dto.LastName,
		dto.Email,
		dto.GithubID,
		dto.GithubDisplay,
		roles,
	))
	if err != nil {
		return nil, wrapErr(err, "failed to create user")
	}
	return &u, nil
}

// LinkDiscordAccount stores the discord id on the user and marks them in_discord.
func (p *PostgresBackend) LinkDiscordAccount(ctx context.Context, userID uuid.UUID, discordID string, joinedAt time.Time) (*types.User, error) {
	query := `
		UPDATE users
		SET discord_id = $2,
		    discord_joined_at = $3,
		    roles = roles || jsonb_build_object($4::text, true),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(p.pool.QueryRow(ctx, query, userID, discordID, joinedAt, types.RoleInDiscord))
	if err != nil {
		return nil, wrapErr(err, "failed to link discord account")
	}
	return &u, nil
}

// UpdateUserRoles merges roles into the stored role map.
func (p *PostgresBackend) UpdateUserRoles(ctx context.Context, userID uuid.UUID, roles map[string]bool) (*types.User, error) {
	query := `
		UPDATE users
		SET roles = roles || $2::jsonb,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(p.pool.QueryRow(ctx, query, userID, roles))
	if err != nil {
		return nil, wrapErr(err, "failed to update user roles")
	}
	return &u, nil
}

func (p *PostgresBackend) StreamDiscordLinkedUsers(ctx context.Context) <-chan storage.RowsStream[types.User] {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE discord_id IS NOT NULL AND NOT COALESCE((roles->>'archived')::boolean, false)
		ORDER BY created_at`
	return storage.GetRowsStream(ctx, p.pool, func(rows pgx.Rows) (types.User, error) {
		return scanUser(rows)
	}, query)
}
