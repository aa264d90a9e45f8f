package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func (p *PostgresBackend) SaveDevice(ctx context.Context, d types.Device) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO devices (user_id, device_id, device_info, authorized_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			device_info = EXCLUDED.device_info,
			authorized_at = EXCLUDED.authorized_at`,
		d.UserID, d.DeviceID, d.DeviceInfo, d.AuthorizedAt,
	)
	return wrapErr(err, "failed to save device")
}

func (p *PostgresBackend) ListDevices(ctx context.Context, userID uuid.UUID) ([]types.Device, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, device_id, device_info, authorized_at
		FROM devices WHERE user_id = $1 ORDER BY authorized_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := []types.Device{}
	for rows.Next() {
		var d types.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.DeviceID, &d.DeviceInfo, &d.AuthorizedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}
