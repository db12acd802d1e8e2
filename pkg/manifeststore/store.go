// Package manifeststore persists the audit Manifest emitted by each
// pipeline run to PostgreSQL, for later retrieval. It is unrelated to
// pipeline computation: no manifeststore read ever feeds data back into
// a run, it is a one-way audit trail.
package manifeststore

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for database/sql

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
)

//go:embed migrations
var migrationsFS embed.FS

// Client wraps a pooled *sql.DB against the manifest store, with
// migrations already applied.
type Client struct {
	db *stdsql.DB
}

// DB returns the underlying connection pool, for health checks.
func (c *Client) DB() *stdsql.DB { return c.db }

// Close releases the connection pool.
func (c *Client) Close() error { return c.db.Close() }

// NewClient opens a connection pool against cfg, applies pending
// migrations, and returns a ready Client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest store database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping manifest store database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run manifest store migrations: %w", err)
	}

	return &Client{db: db}, nil
}

func runMigrations(db *stdsql.DB, database string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, database, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Close only the migration source; closing the migrate database driver
	// would close the shared *sql.DB out from under the rest of the client.
	return sourceDriver.Close()
}

// Save upserts manifest keyed by its run_id.
func (c *Client) Save(ctx context.Context, manifest *contract.Manifest) error {
	if manifest.RunID == "" {
		return fmt.Errorf("manifest store: manifest is missing run_id")
	}

	doc, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("manifest store: marshal manifest: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO manifests (run_id, config_hash, questionnaire_hash, overall_status, terminal_phase, terminal_error, document)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			config_hash = EXCLUDED.config_hash,
			questionnaire_hash = EXCLUDED.questionnaire_hash,
			overall_status = EXCLUDED.overall_status,
			terminal_phase = EXCLUDED.terminal_phase,
			terminal_error = EXCLUDED.terminal_error,
			document = EXCLUDED.document
	`, manifest.RunID, manifest.ConfigHash, manifest.QuestionnaireHash, string(manifest.OverallStatus), manifest.TerminalPhase, manifest.TerminalError, doc)
	if err != nil {
		return fmt.Errorf("manifest store: save manifest %s: %w", manifest.RunID, err)
	}
	return nil
}

// Get retrieves a manifest by run_id.
func (c *Client) Get(ctx context.Context, runID string) (*contract.Manifest, error) {
	var doc []byte
	err := c.db.QueryRowContext(ctx, `SELECT document FROM manifests WHERE run_id = $1`, runID).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("manifest store: get manifest %s: %w", runID, err)
	}

	var manifest contract.Manifest
	if err := json.Unmarshal(doc, &manifest); err != nil {
		return nil, fmt.Errorf("manifest store: unmarshal manifest %s: %w", runID, err)
	}
	return &manifest, nil
}

// OlderThan returns the run_ids of every manifest created before cutoff,
// for the retention sweep to delete.
func (c *Client) OlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT run_id FROM manifests WHERE created_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("manifest store: query old manifests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("manifest store: scan run_id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the manifests with the given run_ids.
func (c *Client) Delete(ctx context.Context, runIDs []string) (int64, error) {
	if len(runIDs) == 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM manifests WHERE run_id = ANY($1)`, runIDs)
	if err != nil {
		return 0, fmt.Errorf("manifest store: delete manifests: %w", err)
	}
	return res.RowsAffected()
}
