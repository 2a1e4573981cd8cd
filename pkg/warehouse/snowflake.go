// pkg/warehouse/snowflake.go
package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/config"
	"github.com/quotaview/crm-ingress/pkg/model"
)

// SnowflakeWarehouse implements the Warehouse interface for Snowflake
type SnowflakeWarehouse struct {
	db     *sqlx.DB
	schema string
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// NewSnowflakeWarehouse creates a new Snowflake warehouse connection
func NewSnowflakeWarehouse(ctx context.Context, cfg *config.SnowflakeConfig, schema string, logger *zap.Logger) (*SnowflakeWarehouse, error) {
	logger = logger.Named("snowflake-warehouse")

	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("schema", schema),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sqlx.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if cfg.QueryTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d",
				int(cfg.QueryTimeout.Seconds())),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db.DB, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	w := &SnowflakeWarehouse{
		db:     db,
		schema: schema,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return w, nil
}

// Validate verifies the Snowflake connection and access rights
func (w *SnowflakeWarehouse) Validate() error {
	var role, database, warehouse string
	err := w.db.QueryRow("SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	w.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	if database != w.cfg.Database {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, w.cfg.Database)
	}

	if _, err := w.db.Exec("CREATE SCHEMA IF NOT EXISTS " + quoteSnowflake(w.schema)); err != nil {
		return fmt.Errorf("failed to create/verify schema %s: %w", w.schema, err)
	}

	return nil
}

// Close closes the database connection
func (w *SnowflakeWarehouse) Close() error {
	w.logger.Info("Closing Snowflake connection")
	LogConnectionStats(w.logger, w.cfg.Database, w.db.DB)
	return w.db.Close()
}

// EnsureTable creates the snapshot table if it does not exist. Snowflake
// micro-partitions automatically, so the partition and cluster columns
// together become the table's CLUSTER BY key.
func (w *SnowflakeWarehouse) EnsureTable(ctx context.Context, spec model.TableSpec) error {
	columnDefs := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		def := quoteSnowflake(col.Name) + " " + snowflakeType(col.Type)
		if col.Required {
			def += " NOT NULL"
		}
		columnDefs[i] = def
	}

	clusterBy := append([]string{spec.PartitionColumn}, spec.ClusterColumns...)
	for i, col := range clusterBy {
		clusterBy[i] = quoteSnowflake(col)
	}

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) CLUSTER BY (%s)",
		w.qualified(spec.Name),
		strings.Join(columnDefs, ",\n\t"),
		strings.Join(clusterBy, ", "),
	)

	if _, err := w.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.qualified(spec.Name), err)
	}

	w.logger.Info("Ensured table",
		zap.String("table", w.qualified(spec.Name)),
		zap.Int("columns", len(spec.Columns)))
	return nil
}

// DeleteSnapshot removes all rows for one snapshot date
func (w *SnowflakeWarehouse) DeleteSnapshot(ctx context.Context, spec model.TableSpec, snapshotDate string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		w.qualified(spec.Name),
		quoteSnowflake(spec.PartitionColumn),
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
func (w *SnowflakeWarehouse) InsertRows(ctx context.Context, spec model.TableSpec, rows []model.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	valueRows := flattenRows(rows)
	columns := spec.ColumnNames()

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteSnowflake(col)
	}
	columnStr := strings.Join(quoted, ", ")

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

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
			placeholders[j] = rowPlaceholder
			args = append(args, row...)
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
func (w *SnowflakeWarehouse) CountSnapshot(ctx context.Context, spec model.TableSpec, snapshotDate string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?",
		w.qualified(spec.Name),
		quoteSnowflake(spec.PartitionColumn),
	)

	var count int64
	if err := w.db.GetContext(ctx, &count, query, snapshotDate); err != nil {
		return 0, fmt.Errorf("failed to count snapshot %s in %s: %w", snapshotDate, spec.Name, err)
	}
	return count, nil
}

// qualified returns the schema-qualified, quoted table name.
func (w *SnowflakeWarehouse) qualified(table string) string {
	return quoteSnowflake(w.schema) + "." + quoteSnowflake(table)
}

// quoteSnowflake double-quotes an identifier, escaping embedded quotes.
func quoteSnowflake(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// snowflakeType maps a backend-neutral column type to Snowflake DDL.
func snowflakeType(t model.ColumnType) string {
	switch t {
	case model.TypeFloat:
		return "DOUBLE"
	case model.TypeInteger:
		return "NUMBER(38,0)"
	case model.TypeBool:
		return "BOOLEAN"
	case model.TypeTimestamp:
		return "TIMESTAMP_TZ"
	case model.TypeDate:
		return "DATE"
	default:
		return "VARCHAR"
	}
}

var _ Warehouse = (*SnowflakeWarehouse)(nil)
