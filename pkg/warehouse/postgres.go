// pkg/warehouse/postgres.go
package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/config"
	"github.com/quotaview/crm-ingress/pkg/model"
)

// insertBatchSize keeps each INSERT under the driver's 65535 bind
// parameter ceiling even for the wide deal table.
const insertBatchSize = 500

// PostgresWarehouse implements the Warehouse interface for PostgreSQL
type PostgresWarehouse struct {
	db     *sqlx.DB
	schema string
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresWarehouse creates and initializes a new PostgreSQL warehouse
func NewPostgresWarehouse(ctx context.Context, cfg *config.PostgresConfig, schema string, logger *zap.Logger) (*PostgresWarehouse, error) {
	logger = logger.Named("postgres-warehouse")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", schema),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	w := &PostgresWarehouse{
		db:     db,
		schema: schema,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return w, nil
}

// Validate verifies the PostgreSQL connection and required permissions
func (w *PostgresWarehouse) Validate() error {
	var version string
	if err := w.db.Get(&version, "SELECT version()"); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	w.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	// Check permissions by creating a temp table
	_, err := w.db.Exec(`
		DO $$
		BEGIN
			CREATE TEMP TABLE _permission_check (id serial, test text);
			INSERT INTO _permission_check (test) VALUES ('test');
			DROP TABLE _permission_check;
		EXCEPTION WHEN OTHERS THEN
			RAISE EXCEPTION 'Permission check failed: %', SQLERRM;
		END $$;
	`)
	if err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}

	if _, err := w.db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(w.schema)); err != nil {
		return fmt.Errorf("failed to create/verify schema %s: %w", w.schema, err)
	}

	w.logger.Info("PostgreSQL connection validated",
		zap.String("database", w.cfg.Database),
		zap.String("schema", w.schema))

	return nil
}

// Close closes the database connection
func (w *PostgresWarehouse) Close() error {
	w.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(w.logger, w.cfg.Database, w.db.DB)
	return w.db.Close()
}

// EnsureTable creates the snapshot table and its filter indexes if they do
// not exist. PostgreSQL has no clustering hints, so the cluster columns
// become btree indexes alongside the partition-column index.
func (w *PostgresWarehouse) EnsureTable(ctx context.Context, spec model.TableSpec) error {
	var exists bool
	err := w.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)
	`, w.schema, spec.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if table exists: %w", err)
	}

	if exists {
		w.logger.Debug("Table already exists", zap.String("table", w.qualified(spec.Name)))
		return nil
	}

	columnDefs := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		def := pq.QuoteIdentifier(col.Name) + " " + postgresType(col.Type)
		if col.Required {
			def += " NOT NULL"
		}
		columnDefs[i] = def
	}

	createSQL := fmt.Sprintf(
		"CREATE TABLE %s (\n\t%s\n)",
		w.qualified(spec.Name),
		strings.Join(columnDefs, ",\n\t"),
	)

	if _, err := w.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.qualified(spec.Name), err)
	}

	indexColumns := append([]string{spec.PartitionColumn}, spec.ClusterColumns...)
	for _, col := range indexColumns {
		indexName := fmt.Sprintf("idx_%s_%s", spec.Name, col)
		indexSQL := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			pq.QuoteIdentifier(indexName),
			w.qualified(spec.Name),
			pq.QuoteIdentifier(col),
		)
		if _, err := w.db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index on %s.%s: %w", spec.Name, col, err)
		}
	}

	w.logger.Info("Created table",
		zap.String("table", w.qualified(spec.Name)),
		zap.Int("columns", len(spec.Columns)),
		zap.Int("indexes", len(indexColumns)))
	return nil
}

// DeleteSnapshot removes all rows for one snapshot date
func (w *PostgresWarehouse) DeleteSnapshot(ctx context.Context, spec model.TableSpec, snapshotDate string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		w.qualified(spec.Name),
		pq.QuoteIdentifier(spec.PartitionColumn),
	)

	result, err := w.db.ExecContext(ctx, query, snapshotDate)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshot %s from %s: %w", snapshotDate, spec.Name, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		w.logger.Warn("Couldn't get rows affected", zap.Error(err))
		return 0, nil
	}
	return deleted, nil
}

// InsertRows bulk-appends rows in batches
func (w *PostgresWarehouse) InsertRows(ctx context.Context, spec model.TableSpec, rows []model.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	valueRows := flattenRows(rows)
	columns := spec.ColumnNames()

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	columnStr := strings.Join(quoted, ", ")

	var totalInserted int64

	for i := 0; i < len(valueRows); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(valueRows) {
			end = len(valueRows)
		}
		batch := valueRows[i:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*len(columns))

		for j, row := range batch {
			if len(row) != len(columns) {
				return totalInserted, fmt.Errorf("row has %d values, table %s has %d columns", len(row), spec.Name, len(columns))
			}
			rowPlaceholders := make([]string, len(columns))
			for k, val := range row {
				rowPlaceholders[k] = fmt.Sprintf("$%d", j*len(columns)+k+1)
				args = append(args, val)
			}
			placeholders[j] = "(" + strings.Join(rowPlaceholders, ", ") + ")"
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			w.qualified(spec.Name), columnStr, strings.Join(placeholders, ", "))

		result, err := w.db.ExecContext(ctx, query, args...)
		if err != nil {
			return totalInserted, fmt.Errorf("batch insert into %s failed: %w", spec.Name, err)
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			w.logger.Warn("Couldn't get rows affected", zap.Error(err))
			inserted = int64(len(batch))
		}
		totalInserted += inserted
	}

	return totalInserted, nil
}

// CountSnapshot returns the number of rows stored for one snapshot date
func (w *PostgresWarehouse) CountSnapshot(ctx context.Context, spec model.TableSpec, snapshotDate string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1",
		w.qualified(spec.Name),
		pq.QuoteIdentifier(spec.PartitionColumn),
	)

	var count int64
	if err := w.db.GetContext(ctx, &count, query, snapshotDate); err != nil {
		return 0, fmt.Errorf("failed to count snapshot %s in %s: %w", snapshotDate, spec.Name, err)
	}
	return count, nil
}

// qualified returns the schema-qualified, quoted table name.
func (w *PostgresWarehouse) qualified(table string) string {
	return pq.QuoteIdentifier(w.schema) + "." + pq.QuoteIdentifier(table)
}

// postgresType maps a backend-neutral column type to PostgreSQL DDL.
func postgresType(t model.ColumnType) string {
	switch t {
	case model.TypeFloat:
		return "DOUBLE PRECISION"
	case model.TypeInteger:
		return "BIGINT"
	case model.TypeBool:
		return "BOOLEAN"
	case model.TypeTimestamp:
		return "TIMESTAMPTZ"
	case model.TypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

var _ Warehouse = (*PostgresWarehouse)(nil)
