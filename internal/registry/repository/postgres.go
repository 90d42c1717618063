package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/landtruth/registry/internal/registry/model"
	"go.uber.org/zap"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// Postgres persists the registry to a PostgreSQL database. It implements
// Gateway. Optimistic concurrency is enforced with a conditional UPDATE on
// the asset's current-version pointer inside a single transaction, so it
// remains correct across multiple server processes sharing one store.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres creates a Postgres gateway backed by the given connection pool.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

// CreateAsset implements Gateway. The asset row and its genesis version are
// inserted in one transaction; a duplicate id aborts with no partial effect.
func (p *Postgres) CreateAsset(ctx context.Context, asset *model.Asset, genesis *model.Version) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO assets (id, current_sequence, created_at) VALUES ($1, $2, $3)`,
		asset.ID, asset.CurrentSequence, asset.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.ErrDuplicateAsset
		}
		return fmt.Errorf("insert asset: %w", err)
	}

	if err := insertVersion(ctx, tx, genesis); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit genesis tx: %w", err)
	}

	p.logger.Debug("asset created",
		zap.String("asset_id", asset.ID),
		zap.String("genesis_hash", genesis.Hash),
	)
	return nil
}

// GetAsset implements Gateway.
func (p *Postgres) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	a := &model.Asset{}
	err := p.pool.QueryRow(ctx,
		`SELECT id, current_sequence, created_at FROM assets WHERE id = $1`, id,
	).Scan(&a.ID, &a.CurrentSequence, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return a, nil
}

// ListAssets implements Gateway.
func (p *Postgres) ListAssets(ctx context.Context, limit, offset int) ([]*model.Asset, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, current_sequence, created_at FROM assets
		 ORDER BY created_at DESC, id
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*model.Asset
	for rows.Next() {
		a := &model.Asset{}
		if err := rows.Scan(&a.ID, &a.CurrentSequence, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// GetVersion implements Gateway.
func (p *Postgres) GetVersion(ctx context.Context, assetID string, sequence int) (*model.Version, error) {
	rows, err := p.pool.Query(ctx,
		versionSelect+` WHERE asset_id = $1 AND sequence = $2`, assetID, sequence)
	if err != nil {
		return nil, fmt.Errorf("get version %s/%d: %w", assetID, sequence, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, model.ErrNotFound
	}
	return scanVersion(rows)
}

// ListVersions implements Gateway.
func (p *Postgres) ListVersions(ctx context.Context, assetID string) ([]*model.Version, error) {
	rows, err := p.pool.Query(ctx,
		versionSelect+` WHERE asset_id = $1 ORDER BY sequence ASC`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list versions %s: %w", assetID, err)
	}
	defer rows.Close()

	var versions []*model.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// AppendVersion implements Gateway. The current-sequence pointer advance and
// the version insert share one transaction; if the pointer moved since the
// caller read it, zero rows match and the transaction rolls back.
func (p *Postgres) AppendVersion(ctx context.Context, assetID string, expectedSequence int, v *model.Version) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE assets SET current_sequence = $3
		 WHERE id = $1 AND current_sequence = $2`,
		assetID, expectedSequence, v.Sequence,
	)
	if err != nil {
		return fmt.Errorf("advance current sequence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrConflict
	}

	if err := insertVersion(ctx, tx, v); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.ErrConflict
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append tx: %w", err)
	}

	p.logger.Debug("version appended",
		zap.String("asset_id", assetID),
		zap.Int("sequence", v.Sequence),
		zap.String("hash", v.Hash),
	)
	return nil
}

// AppendEvidence implements Gateway.
func (p *Postgres) AppendEvidence(ctx context.Context, e *model.Evidence) error {
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO evidence (id, asset_id, version_sequence, kind, payload_ref,
		                       description, gps_lat, gps_lon, submitter, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.AssetID, e.VersionSequence, e.Kind, e.PayloadRef,
		e.Description, e.GPSLat, e.GPSLon, e.Submitter, e.SubmittedAt,
	); err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

// ListEvidence implements Gateway. Submission timestamp is the primary order;
// the id tie-break keeps output deterministic when timestamps collide.
func (p *Postgres) ListEvidence(ctx context.Context, assetID string, sequence *int) ([]*model.Evidence, error) {
	query := `
		SELECT id, asset_id, version_sequence, kind, payload_ref,
		       description, gps_lat, gps_lon, submitter, submitted_at
		FROM evidence
		WHERE asset_id = $1
		  AND ($2::int IS NULL OR version_sequence = $2)
		ORDER BY submitted_at ASC, id ASC`

	rows, err := p.pool.Query(ctx, query, assetID, sequence)
	if err != nil {
		return nil, fmt.Errorf("list evidence %s: %w", assetID, err)
	}
	defer rows.Close()

	var records []*model.Evidence
	for rows.Next() {
		e := &model.Evidence{}
		if err := rows.Scan(
			&e.ID, &e.AssetID, &e.VersionSequence, &e.Kind, &e.PayloadRef,
			&e.Description, &e.GPSLat, &e.GPSLon, &e.Submitter, &e.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		records = append(records, e)
	}
	return records, rows.Err()
}

const versionSelect = `
	SELECT asset_id, sequence, status, owner, name,
	       location_lat, location_lon, size_hectares, change_reason,
	       hash, prev_hash, created_at
	FROM asset_versions`

// insertVersion writes one version row inside the given transaction.
func insertVersion(ctx context.Context, tx pgx.Tx, v *model.Version) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO asset_versions (asset_id, sequence, status, owner, name,
		                             location_lat, location_lon, size_hectares, change_reason,
		                             hash, prev_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.AssetID, v.Sequence, v.Payload.Status, v.Payload.Owner, v.Payload.Name,
		v.Payload.LocationLat, v.Payload.LocationLon, v.Payload.SizeHectares, v.Payload.ChangeReason,
		v.Hash, v.PrevHash, v.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// scanVersion reads a single version from a pgx.Rows cursor positioned on a row.
func scanVersion(rows pgx.Rows) (*model.Version, error) {
	v := &model.Version{}
	if err := rows.Scan(
		&v.AssetID, &v.Sequence, &v.Payload.Status, &v.Payload.Owner, &v.Payload.Name,
		&v.Payload.LocationLat, &v.Payload.LocationLon, &v.Payload.SizeHectares, &v.Payload.ChangeReason,
		&v.Hash, &v.PrevHash, &v.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	return v, nil
}
