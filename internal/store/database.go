package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/errors"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/metrics"
)

const (
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultConfig returns the default store configuration.
// Database name, username, and password must be explicitly configured.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		Database:        "",
		Username:        "",
		Password:        "",
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	}
}

// sanitizeStoreError converts raw database errors into sanitized errors
// that don't expose SQL details or credentials. The original error is
// preserved in the Cause field for debugging.
func sanitizeStoreError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if err == sql.ErrNoRows {
		return errors.NewStoreError(errors.CodeNotFound, "resource not found")
	}

	if pqErr, ok := err.(*pq.Error); ok {
		var storeErr *errors.StoreError
		switch pqErr.Code {
		case "23505": // unique_violation
			storeErr = errors.NewStoreError(errors.CodeConflict, "resource already exists")
		case "23502": // not_null_violation
			storeErr = errors.NewStoreError(errors.CodeValidation, "required field is missing")
		case "57014": // query_canceled
			storeErr = errors.NewStoreError(errors.CodeCanceled, "store operation was canceled")
		case "57P01": // admin_shutdown
			storeErr = errors.NewStoreError(errors.CodeStoreConnection, "store connection lost")
		case "08000", "08003", "08006": // connection errors
			storeErr = errors.NewStoreError(errors.CodeStoreConnection, "store connection error")
		default:
			storeErr = errors.NewStoreError(errors.CodeStoreQuery,
				fmt.Sprintf("store operation failed: %s", operation))
		}
		storeErr.Operation = operation
		storeErr.Cause = err
		return storeErr
	}

	return errors.ErrStoreQuery(operation, err)
}

// DeviceStore is the persistence contract the discovery service
// depends on. *DB satisfies it; tests substitute fakes.
type DeviceStore interface {
	Upsert(ctx context.Context, dev *inventory.NetworkDevice) error
	UpdateLiveness(ctx context.Context, ip string, online bool, seenAt time.Time) error
	GetAll(ctx context.Context) ([]inventory.NetworkDevice, error)
	DeleteLastSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DB wraps the sqlx connection to the device store.
type DB struct {
	conn   *sqlx.DB
	logger *logging.Logger
}

// Connect establishes a connection to PostgreSQL.
// Returns sanitized errors that don't leak credentials or DSN details.
func Connect(ctx context.Context, cfg *Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database,
		cfg.Username, cfg.Password, cfg.SSLMode,
	)

	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.ErrStoreConnection(err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := conn.PingContext(ctx); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logging.ErrorStore("failed to close store connection after ping failure", closeErr)
		}
		return nil, errors.WrapStoreError(errors.CodeStoreConnection, "failed to verify store connection", err)
	}

	return &DB{conn: conn, logger: logging.Default().WithComponent("store")}, nil
}

// NewWithConn wraps an existing connection. Used by tests with sqlmock.
func NewWithConn(conn *sqlx.DB) *DB {
	return &DB{conn: conn, logger: logging.Default().WithComponent("store")}
}

// Close closes the store connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the store connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Stats reports connection pool statistics to the metrics registry.
func (db *DB) Stats() sql.DBStats {
	stats := db.conn.Stats()
	metrics.GetGlobalMetrics().SetActiveConnections(stats.OpenConnections)
	return stats
}

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id UUID PRIMARY KEY,
	ip INET NOT NULL UNIQUE,
	mac MACADDR,
	hostname TEXT,
	vendor TEXT,
	device_type TEXT NOT NULL DEFAULT 'unknown',
	open_ports BIGINT[] NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'online',
	first_seen TIMESTAMPTZ NOT NULL,
	last_seen TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_devices_last_seen ON devices (last_seen);
CREATE INDEX IF NOT EXISTS idx_devices_status ON devices (status);
`

// EnsureSchema creates the devices table when it does not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return sanitizeStoreError("ensure schema", err)
	}
	return nil
}

// Upsert writes a device record with sticky-fill merge semantics:
// identity columns already present keep their value and are only filled
// when NULL, first_seen is written once at insert, and the volatile
// columns are replaced outright.
func (db *DB) Upsert(ctx context.Context, dev *inventory.NetworkDevice) error {
	row, err := rowFromDevice(dev)
	if err != nil {
		return errors.WrapStoreError(errors.CodeValidation, "cannot persist device", err)
	}

	query := `
		INSERT INTO devices (
			id, ip, mac, hostname, vendor, device_type,
			open_ports, status, first_seen, last_seen
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ip) DO UPDATE SET
			mac = COALESCE(devices.mac, EXCLUDED.mac),
			hostname = COALESCE(devices.hostname, EXCLUDED.hostname),
			vendor = COALESCE(devices.vendor, EXCLUDED.vendor),
			device_type = EXCLUDED.device_type,
			open_ports = EXCLUDED.open_ports,
			status = EXCLUDED.status,
			last_seen = EXCLUDED.last_seen
	`

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, query,
		row.ID, row.IP, row.MAC, row.Hostname, row.Vendor, row.DeviceType,
		row.OpenPorts, row.Status, row.FirstSeen, row.LastSeen)
	metrics.RecordStoreQuery("upsert_device", time.Since(start), err == nil)
	if err != nil {
		return sanitizeStoreError("upsert device", err)
	}
	return nil
}

// UpdateLiveness mirrors a liveness transition. A successful probe
// advances last_seen; a demotion changes status only, leaving last_seen
// at the moment the device was last actually observed.
func (db *DB) UpdateLiveness(ctx context.Context, ip string, online bool, seenAt time.Time) error {
	var query string
	var args []interface{}
	if online {
		query = `UPDATE devices SET status = $1, last_seen = $2 WHERE ip = $3`
		args = []interface{}{string(inventory.StatusOnline), seenAt, ip}
	} else {
		query = `UPDATE devices SET status = $1 WHERE ip = $2`
		args = []interface{}{string(inventory.StatusOffline), ip}
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordStoreQuery("update_liveness", time.Since(start), err == nil)
	if err != nil {
		return sanitizeStoreError("update liveness", err)
	}
	return nil
}

// GetAll returns every persisted device ordered by IP address.
func (db *DB) GetAll(ctx context.Context) ([]inventory.NetworkDevice, error) {
	var rows []DeviceRow
	query := `SELECT * FROM devices ORDER BY ip`

	start := time.Now()
	err := db.conn.SelectContext(ctx, &rows, query)
	metrics.RecordStoreQuery("get_devices", time.Since(start), err == nil)
	if err != nil {
		return nil, sanitizeStoreError("get devices", err)
	}

	devices := make([]inventory.NetworkDevice, 0, len(rows))
	for i := range rows {
		devices = append(devices, rows[i].ToDevice())
	}
	return devices, nil
}

// DeleteLastSeenBefore removes devices not observed since the cutoff
// and returns how many rows were deleted.
func (db *DB) DeleteLastSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM devices WHERE last_seen < $1`

	start := time.Now()
	result, err := db.conn.ExecContext(ctx, query, cutoff)
	metrics.RecordStoreQuery("delete_stale_devices", time.Since(start), err == nil)
	if err != nil {
		return 0, sanitizeStoreError("delete stale devices", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, sanitizeStoreError("get rows affected", err)
	}
	return deleted, nil
}

var _ DeviceStore = (*DB)(nil)
