package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/synqronlabs/domainauth"
)

// PostgresConfig holds connection pool parameters.
type PostgresConfig struct {
	ConnectionString string        `env:"DATABASE_URL,required"`
	MaxConns         int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MinConns         int32         `env:"DATABASE_MIN_CONNS" envDefault:"2"`
	MaxConnIdleTime  time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime  time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"30m"`
	RetryAttempts    int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"5s"`
}

// Connect opens a pgx pool and pings it, retrying with a linearly growing delay.
func Connect(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	if cfg.MaxConns > 0 {
		connConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		connConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnIdleTime > 0 {
		connConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		connConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	for i := range max(cfg.RetryAttempts, 1) {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, ErrFailedToOpenDBConnection
}

// Postgres is a Store backed by the "domains" table.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domainauth.Store = (*Postgres)(nil)

// NewPostgres creates a Postgres store on an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const selectDomain = `
SELECT d.id, d.user_id, d.domain, d.description, d.active, d.catch_all,
       d.domain_verified_at, d.domain_mx_validated_at, d.domain_sending_verified_at,
       d.created_at, d.updated_at,
       (SELECT count(*) FROM domains o WHERE o.user_id = d.user_id)
FROM domains d`

func scanDomain(row pgx.Row) (*domainauth.Domain, error) {
	var d domainauth.Domain
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.Hostname, &d.Description, &d.Active, &d.CatchAll,
		&d.VerifiedAt, &d.MXValidatedAt, &d.SendingVerifiedAt,
		&d.CreatedAt, &d.UpdatedAt,
		&d.DomainCount,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func queryOne(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) (*domainauth.Domain, error) {
	d, err := scanDomain(pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainauth.ErrDomainNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	return d, nil
}

// Create inserts a new active domain for ownerID.
func (p *Postgres) Create(ctx context.Context, ownerID, hostname string) (*domainauth.Domain, error) {
	host, err := domainauth.NormalizeHostname(hostname)
	if err != nil {
		return nil, err
	}

	id := ulid.Make().String()
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO domains (id, user_id, domain) VALUES ($1, $2, $3) ON CONFLICT (domain) DO NOTHING`,
		id, ownerID, host,
	)
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDuplicateHostname
	}

	return p.Get(ctx, id)
}

// Get implements domainauth.Store.
func (p *Postgres) Get(ctx context.Context, id string) (*domainauth.Domain, error) {
	return queryOne(ctx, p.pool, selectDomain+` WHERE d.id = $1`, id)
}

// GetOwned implements domainauth.Store.
func (p *Postgres) GetOwned(ctx context.Context, ownerID, id string) (*domainauth.Domain, error) {
	return queryOne(ctx, p.pool, selectDomain+` WHERE d.id = $1 AND d.user_id = $2`, id, ownerID)
}

// ListPending implements domainauth.Store.
func (p *Postgres) ListPending(ctx context.Context, f domainauth.Family, limit int) ([]*domainauth.Domain, error) {
	if !f.Valid() {
		return nil, ErrUnknownFamily
	}
	if limit <= 0 {
		limit = 1000
	}

	sql := fmt.Sprintf(`%s WHERE d.active AND d.%s IS NULL ORDER BY d.created_at, d.id LIMIT $1`, selectDomain, f.Column())
	rows, err := p.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	defer rows.Close()

	var out []*domainauth.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, errors.Join(ErrQuery, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	return out, nil
}

// MarkVerified implements domainauth.Store.
func (p *Postgres) MarkVerified(ctx context.Context, t domainauth.Transition) error {
	if !t.Family.Valid() {
		return ErrUnknownFamily
	}

	col := t.Family.Column()
	tag, err := p.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE domains SET %s = $2 WHERE id = $1 AND %s IS NULL`, col, col),
		t.DomainID, t.At,
	)
	if err != nil {
		return errors.Join(ErrQuery, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM domains WHERE id = $1)`, t.DomainID).Scan(&exists); err != nil {
		return errors.Join(ErrQuery, err)
	}
	if !exists {
		return domainauth.ErrDomainNotFound
	}
	return nil
}
