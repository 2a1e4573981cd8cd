// pkg/warehouse/factory.go
package warehouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/config"
)

// New creates the warehouse selected by configuration.
func New(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (Warehouse, error) {
	switch cfg.Backend {
	case "postgres":
		logger.Info("Creating PostgreSQL warehouse")
		wh, err := NewPostgresWarehouse(ctx, cfg.Postgres, cfg.Schema, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL warehouse: %w", err)
		}
		return wh, nil

	case "snowflake":
		logger.Info("Creating Snowflake warehouse")
		wh, err := NewSnowflakeWarehouse(ctx, cfg.Snowflake, cfg.Schema, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Snowflake warehouse: %w", err)
		}
		return wh, nil

	default:
		return nil, fmt.Errorf("unsupported warehouse backend: %s", cfg.Backend)
	}
}
