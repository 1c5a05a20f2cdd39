package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/engage-api/config"
	"github.com/target/engage-api/internal/migrate"
)

const applicationName = "engage-api"

// ErrRedisNotConfigured is returned by ConnectRedis when Redis is disabled
// or has no endpoint for its mode.
var ErrRedisNotConfigured = errors.New("redis not configured")

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

func (c DatabaseConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default().With("component", "datastore")
	}
	return c.Logger.With("component", "datastore")
}

// ConnectDB opens the Postgres pool and waits for one successful ping.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	pg := cfg.DBConfig
	pg.Sanitize()

	connCfg, err := postgresConnConfig(pg)
	if err != nil {
		return nil, err
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(pg.MaxOpenConns)
	db.SetMaxIdleConns(pg.MaxIdleConns)
	db.SetConnMaxLifetime(pg.ConnMaxLifetime)

	if err := pingWithin(ctx, pg.ConnectTimeout, db.PingContext); err != nil {
		return nil, errors.Join(fmt.Errorf("ping postgres %s: %w", connCfg.Host, err), closeOnError("postgres", db.Close))
	}

	cfg.logger().InfoContext(ctx, "postgres connected",
		"host", pg.Host,
		"port", pg.Port,
		"database", pg.Name,
		"max_open_conns", pg.MaxOpenConns,
	)
	return db, nil
}

// postgresConnConfig renders cfg as a URL so credentials with reserved
// characters survive, then hands it to pgx.
func postgresConnConfig(cfg config.DBConfig) (*pgx.ConnConfig, error) {
	params := url.Values{}
	params.Set("sslmode", cfg.SSLMode)
	if secs := int(cfg.ConnectTimeout / time.Second); secs > 0 {
		params.Set("connect_timeout", strconv.Itoa(secs))
	}

	dsn := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: params.Encode(),
	}).String()

	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	connCfg.RuntimeParams["application_name"] = applicationName
	return connCfg, nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	start := time.Now()
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed", "elapsed", time.Since(start))
	}
	return nil
}

const (
	redisModeDirect   = "direct"
	redisModeSentinel = "sentinel"
	redisModeCluster  = "cluster"
)

// redisTarget is a resolved Redis endpoint. Credentials live only in opts,
// so String is safe to log.
type redisTarget struct {
	mode string
	opts redis.UniversalOptions
}

func (t redisTarget) String() string {
	addrs := strings.Join(t.opts.Addrs, ",")
	if t.mode == redisModeSentinel {
		return t.mode + ":" + t.opts.MasterName + "@" + addrs
	}
	return t.mode + ":" + addrs
}

//nolint:ireturn // the mode decides between single, failover and cluster clients.
func (t redisTarget) client() redis.UniversalClient {
	switch t.mode {
	case redisModeCluster:
		return redis.NewClusterClient(t.opts.Cluster())
	case redisModeSentinel:
		return redis.NewFailoverClient(t.opts.Failover())
	default:
		return redis.NewClient(t.opts.Simple())
	}
}

// resolveRedisTarget picks the Redis mode from cfg. Cluster wins over
// sentinel; a redis:// or rediss:// URI supplies address, credentials, DB
// and TLS for direct mode and serves as the seed node for cluster mode.
func resolveRedisTarget(cfg config.RedisConfig) (redisTarget, error) {
	switch {
	case cfg.UseCluster:
		t := redisTarget{mode: redisModeCluster, opts: redis.UniversalOptions{
			Addrs:    trimAll(cfg.ClusterNodes),
			Password: cfg.Password,
		}}
		if len(t.opts.Addrs) == 0 {
			if err := applyRedisURI(&t.opts, cfg.URI); err != nil {
				return redisTarget{}, err
			}
		}
		if len(t.opts.Addrs) == 0 {
			return redisTarget{}, errors.New("redis cluster mode needs REDIS_CLUSTER_NODES or REDIS_URI")
		}
		return t, nil

	case cfg.UseSentinel:
		nodes := trimAll(cfg.SentinelNodes)
		if len(nodes) == 0 {
			return redisTarget{}, errors.New("redis sentinel mode needs REDIS_SENTINEL_NODES")
		}
		return redisTarget{mode: redisModeSentinel, opts: redis.UniversalOptions{
			Addrs:            nodes,
			MasterName:       cfg.SentinelMasterName,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		}}, nil

	default:
		t := redisTarget{mode: redisModeDirect, opts: redis.UniversalOptions{
			Password: cfg.Password,
			DB:       cfg.DB,
		}}
		if err := applyRedisURI(&t.opts, cfg.URI); err != nil {
			return redisTarget{}, err
		}
		if len(t.opts.Addrs) == 0 {
			return redisTarget{}, errors.New("redis direct mode needs REDIS_URI")
		}
		return t, nil
	}
}

// applyRedisURI fills opts from uri, which is either a bare host:port or a
// redis URL. Values present in the URL override the env settings.
func applyRedisURI(opts *redis.UniversalOptions, uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		opts.Addrs = []string{uri}
		return nil
	}

	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	opts.Addrs = []string{parsed.Addr}
	opts.Username = parsed.Username
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	if parsed.DB != 0 {
		opts.DB = parsed.DB
	}
	opts.TLSConfig = parsed.TLSConfig
	return nil
}

// ConnectRedis connects to the configured Redis deployment. It returns
// ErrRedisNotConfigured when Redis is disabled.
//
//nolint:ireturn // callers work against redis.UniversalClient for every mode.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	rc := cfg.RedisConfig
	if !rc.Configured() {
		return nil, ErrRedisNotConfigured
	}
	rc.Sanitize()

	target, err := resolveRedisTarget(rc)
	if err != nil {
		return nil, err
	}
	client := target.client()

	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := pingWithin(ctx, rc.ConnectTimeout, ping); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis %s: %w", target, err), closeOnError("redis", client.Close))
	}

	cfg.logger().InfoContext(ctx, "redis connected", "target", target.String())
	return client, nil
}

func pingWithin(ctx context.Context, timeout time.Duration, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return ping(ctx)
}

func closeOnError(name string, closeFn func() error) error {
	if err := closeFn(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
