package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/wavekeeper/internal/model"
)

// ErrPointNotFound is returned when no spawn point row matches.
var ErrPointNotFound = errors.New("spawn point not found")

const pointColumns = `point_id, template_id, x, y, z, heading, radius, capacity, cooldown_ms, probability`

// SpawnPointRepository stores spawn point descriptors for level setup.
type SpawnPointRepository struct {
	pool *pgxpool.Pool
}

// NewSpawnPointRepository creates a new spawn point repository
func NewSpawnPointRepository(pool *pgxpool.Pool) *SpawnPointRepository {
	return &SpawnPointRepository{pool: pool}
}

// LoadAll loads every enabled spawn point ordered by ID.
func (r *SpawnPointRepository) LoadAll(ctx context.Context) ([]model.SpawnPointDescriptor, error) {
	query := `SELECT ` + pointColumns + `
		FROM spawn_points
		WHERE enabled
		ORDER BY point_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading spawn points: %w", err)
	}
	defer rows.Close()

	points := make([]model.SpawnPointDescriptor, 0, 32)
	for rows.Next() {
		desc, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning spawn point row: %w", err)
		}
		points = append(points, desc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spawn point rows: %w", err)
	}

	return points, nil
}

// LoadByID loads a spawn point regardless of its enabled flag.
func (r *SpawnPointRepository) LoadByID(ctx context.Context, id int64) (model.SpawnPointDescriptor, error) {
	query := `SELECT ` + pointColumns + `
		FROM spawn_points
		WHERE point_id = $1`

	desc, err := scanPoint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SpawnPointDescriptor{}, fmt.Errorf("loading spawn point %d: %w", id, ErrPointNotFound)
		}
		return model.SpawnPointDescriptor{}, fmt.Errorf("loading spawn point %d: %w", id, err)
	}
	return desc, nil
}

// Create inserts a descriptor and returns the assigned ID; desc.ID is ignored.
func (r *SpawnPointRepository) Create(ctx context.Context, desc model.SpawnPointDescriptor) (int64, error) {
	if err := desc.Validate(); err != nil {
		return 0, fmt.Errorf("creating spawn point: %w", err)
	}

	query := `
		INSERT INTO spawn_points (template_id, x, y, z, heading, radius, capacity, cooldown_ms, probability)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING point_id
	`

	loc := desc.Location
	var id int64
	err := r.pool.QueryRow(ctx, query,
		desc.TemplateID,
		loc.X,
		loc.Y,
		loc.Z,
		int32(loc.Heading),
		desc.Radius,
		desc.Capacity,
		desc.Cooldown.Milliseconds(),
		desc.EffectiveProbability(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating spawn point for template %d: %w", desc.TemplateID, err)
	}

	return id, nil
}

// SetEnabled flips the enabled flag; disabled points are skipped by LoadAll.
func (r *SpawnPointRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE spawn_points SET enabled = $1 WHERE point_id = $2`,
		enabled, id,
	)
	if err != nil {
		return fmt.Errorf("updating spawn point %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating spawn point %d: %w", id, ErrPointNotFound)
	}
	return nil
}

func scanPoint(row pgx.Row) (model.SpawnPointDescriptor, error) {
	var (
		id          int64
		templateID  int32
		x, y, z     int32
		heading     int32
		radius      int32
		capacity    int32
		cooldownMS  int64
		probability float64
	)
	if err := row.Scan(&id, &templateID, &x, &y, &z, &heading, &radius, &capacity, &cooldownMS, &probability); err != nil {
		return model.SpawnPointDescriptor{}, err
	}

	desc := model.NewSpawnPointDescriptor(id, templateID, x, y, z, uint16(heading), radius, capacity,
		time.Duration(cooldownMS)*time.Millisecond)
	desc.Probability = probability
	return desc, nil
}
