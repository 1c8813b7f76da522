package history

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres stores history in a messages table.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres connects a pool to dsn.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// Init pings the database and applies pending migrations.
func (p *Postgres) Init(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	for _, r := range results {
		p.logger.Info("Applied history migration", slog.String("migration", r.String()))
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, conversationID uuid.UUID, sender, content string) error {
	if err := validSender(sender); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO messages (conversation_id, sender, content) VALUES ($1, $2, $3)`,
		conversationID, sender, content)
	if err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	query := `SELECT id, conversation_id, sender, content, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at, id`
	args := []any{conversationID}
	if limit > 0 {
		query = `SELECT * FROM (
			SELECT id, conversation_id, sender, content, created_at
			FROM messages WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2
		) recent ORDER BY created_at, id`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByName[Message])
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return msgs, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
