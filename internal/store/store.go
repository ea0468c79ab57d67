// Package store is the campaign-management persistence boundary. The
// verification pipeline itself never touches the database; the serve path
// writes one audit row per completed verification when a database is
// configured. Nothing in this package ever sees a password.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/scoutflow/credverify/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Customer is one platform account a campaign recruits through. AuthStatus
// mirrors the category of the last verification outcome.
type Customer struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	Platform   schemas.Platform
	Username   string
	AuthStatus string
	CheckedAt  time.Time
	CreatedAt  time.Time
}

// ActivityLog is one audit row describing a completed verification.
type ActivityLog struct {
	ID        uuid.UUID
	Platform  schemas.Platform
	Username  string
	Category  string
	Code      string
	Message   string
	CreatedAt time.Time
}

// Campaign is a scouting campaign owning a set of customers.
type Campaign struct {
	ID        uuid.UUID
	Name      string
	Platform  schemas.Platform
	Status    string
	CreatedAt time.Time
}

// Store provides the PostgreSQL implementation of the repository.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// InsertCustomer upserts a customer keyed on (platform, username).
func (s *Store) InsertCustomer(ctx context.Context, c *Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	const sql = `
        INSERT INTO customers (id, campaign_id, platform, username, auth_status, checked_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (platform, username) DO UPDATE SET
            auth_status = EXCLUDED.auth_status,
            checked_at  = EXCLUDED.checked_at;
    `
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	_, err := s.pool.Exec(ctx, sql,
		c.ID, c.CampaignID, string(c.Platform), c.Username,
		c.AuthStatus, c.CheckedAt.UTC(), c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// InsertActivityLog appends one audit row. The entry carries only the
// outcome's category, code, and message, never credentials.
func (s *Store) InsertActivityLog(ctx context.Context, entry *ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const sql = `
        INSERT INTO activity_logs (id, platform, username, category, code, message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
	_, err := s.pool.Exec(ctx, sql,
		entry.ID, string(entry.Platform), entry.Username,
		entry.Category, entry.Code, entry.Message, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

// RecordOutcome updates the customer's auth status and appends the audit row
// in one transaction, so the status a dashboard shows always has a matching
// log entry behind it.
func (s *Store) RecordOutcome(ctx context.Context, platform schemas.Platform, username string, outcome schemas.VerificationOutcome) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after Commit returns ErrTxClosed; that is the normal path.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	now := time.Now().UTC()
	const updateSQL = `
        UPDATE customers SET auth_status = $1, checked_at = $2
        WHERE platform = $3 AND username = $4;
    `
	if _, err := tx.Exec(ctx, updateSQL, string(outcome.Category), now, string(platform), username); err != nil {
		return fmt.Errorf("failed to update customer status: %w", err)
	}

	const logSQL = `
        INSERT INTO activity_logs (id, platform, username, category, code, message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
	if _, err := tx.Exec(ctx, logSQL,
		uuid.New(), string(platform), username,
		string(outcome.Category), string(outcome.Code), outcome.Message, now); err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetCampaign fetches one campaign by ID.
func (s *Store) GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	const sql = `
        SELECT id, name, platform, status, created_at
        FROM campaigns
        WHERE id = $1;
    `
	var (
		c           Campaign
		platformStr string
	)
	err := s.pool.QueryRow(ctx, sql, id).Scan(&c.ID, &c.Name, &platformStr, &c.Status, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign: %w", err)
	}
	c.Platform = schemas.Platform(platformStr)
	return &c, nil
}

// ListCustomersByCampaign returns the customers attached to a campaign,
// oldest first.
func (s *Store) ListCustomersByCampaign(ctx context.Context, campaignID uuid.UUID) ([]Customer, error) {
	const sql = `
        SELECT id, campaign_id, platform, username, auth_status, checked_at, created_at
        FROM customers
        WHERE campaign_id = $1
        ORDER BY created_at ASC;
    `
	rows, err := s.pool.Query(ctx, sql, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var (
			c           Customer
			platformStr string
		)
		if err := rows.Scan(&c.ID, &c.CampaignID, &platformStr, &c.Username,
			&c.AuthStatus, &c.CheckedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		c.Platform = schemas.Platform(platformStr)
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return customers, nil
}
