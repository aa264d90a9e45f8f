package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func (p *PostgresBackend) ListSkills(ctx context.Context) ([]types.Skill, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name, created_at FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	skills := []types.Skill{}
	for rows.Next() {
		var s types.Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

func (p *PostgresBackend) GetSkill(ctx context.Context, id uuid.UUID) (*types.Skill, error) {
	var s types.Skill
	err := p.pool.QueryRow(ctx, `SELECT id, name, created_at FROM skills WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, wrapErr(err, "failed to get skill")
	}
	return &s, nil
}

func (p *PostgresBackend) CreateSkill(ctx context.Context, name string) (*types.Skill, error) {
	var s types.Skill
	err := p.pool.QueryRow(ctx,
		`INSERT INTO skills (name) VALUES ($1) RETURNING id, name, created_at`, name,
	).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, wrapErr(err, "failed to create skill")
	}
	return &s, nil
}

func (p *PostgresBackend) CreateEndorsement(ctx context.Context, e types.Endorsement) (*types.Endorsement, error) {
	out := e
	err := p.pool.QueryRow(ctx, `
		INSERT INTO endorsements (skill_id, endorsee_id, endorser_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		e.SkillID, e.EndorseeID, e.EndorserID,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, wrapErr(err, "failed to create endorsement")
	}
	return &out, nil
}

func (p *PostgresBackend) ListUserSkills(ctx context.Context, userID uuid.UUID) ([]types.UserSkill, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT s.id, s.name, COUNT(e.id)
		FROM endorsements e
		JOIN skills s ON s.id = e.skill_id
		WHERE e.endorsee_id = $1
		GROUP BY s.id, s.name
		ORDER BY COUNT(e.id) DESC, s.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user skills: %w", err)
	}
	defer rows.Close()

	skills := []types.UserSkill{}
	for rows.Next() {
		var s types.UserSkill
		if err := rows.Scan(&s.SkillID, &s.Name, &s.Endorsements); err != nil {
			return nil, fmt.Errorf("failed to scan user skill: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}
