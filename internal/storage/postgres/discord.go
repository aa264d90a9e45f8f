package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

const groupRoleColumns = `id, role_name, role_id, created_by, created_at`

func scanGroupRole(row pgx.Row) (types.GroupRole, error) {
	var g types.GroupRole
	err := row.Scan(&g.ID, &g.RoleName, &g.RoleID, &g.CreatedBy, &g.CreatedAt)
	return g, err
}

func (p *PostgresBackend) ListGroupRoles(ctx context.Context) ([]types.GroupRole, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+groupRoleColumns+` FROM discord_group_roles ORDER BY role_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list group roles: %w", err)
	}
	defer rows.Close()

	roles := []types.GroupRole{}
	for rows.Next() {
		g, err := scanGroupRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group role: %w", err)
		}
		roles = append(roles, g)
	}
	return roles, rows.Err()
}

func (p *PostgresBackend) FindGroupRoleByName(ctx context.Context, roleName string) (*types.GroupRole, error) {
	g, err := scanGroupRole(p.pool.QueryRow(ctx, `SELECT `+groupRoleColumns+` FROM discord_group_roles WHERE role_name = $1`, roleName))
	if err != nil {
		return nil, wrapErr(err, "failed to find group role")
	}
	return &g, nil
}

func (p *PostgresBackend) FindGroupRoleByRoleID(ctx context.Context, roleID string) (*types.GroupRole, error) {
	g, err := scanGroupRole(p.pool.QueryRow(ctx, `SELECT `+groupRoleColumns+` FROM discord_group_roles WHERE role_id = $1`, roleID))
	if err != nil {
		return nil, wrapErr(err, "failed to find group role")
	}
	return &g, nil
}

func (p *PostgresBackend) CreateGroupRole(ctx context.Context, role types.GroupRole) (*types.GroupRole, error) {
	g, err := scanGroupRole(p.pool.QueryRow(ctx, `
		INSERT INTO discord_group_roles (role_name, role_id, created_by)
		VALUES ($1, $2, $3)
		RETURNING `+groupRoleColumns,
		role.RoleName, role.RoleID, role.CreatedBy,
	))
	if err != nil {
		return nil, wrapErr(err, "failed to create group role")
	}
	return &g, nil
}

func (p *PostgresBackend) GetDiscordInvite(ctx context.Context, userID uuid.UUID) (*types.DiscordInvite, error) {
	var inv types.DiscordInvite
	err := p.pool.QueryRow(ctx,
		`SELECT user_id, invite_url, created_at FROM discord_invites WHERE user_id = $1`, userID,
	).Scan(&inv.UserID, &inv.InviteURL, &inv.CreatedAt)
	if err != nil {
		return nil, wrapErr(err, "failed to get discord invite")
	}
	return &inv, nil
}

func (p *PostgresBackend) SaveDiscordInvite(ctx context.Context, invite types.DiscordInvite) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO discord_invites (user_id, invite_url) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET invite_url = EXCLUDED.invite_url, created_at = NOW()`,
		invite.UserID, invite.InviteURL,
	)
	return wrapErr(err, "failed to save discord invite")
}

func (p *PostgresBackend) DeleteDiscordInvitesBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM discord_invites WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale discord invites: %w", err)
	}
	return tag.RowsAffected(), nil
}
