package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"topicscan/internal/domain"
)

type TenantConfigStore struct {
	db *sqlx.DB
}

func NewTenantConfigStore(db *sqlx.DB) *TenantConfigStore {
	return &TenantConfigStore{db: db}
}

// Get loads a tenant's scan configuration snapshot. Unknown tenants get
// the default configuration rather than an error.
func (s *TenantConfigStore) Get(ctx context.Context, tenantID string) (*domain.ScanConfig, error) {
	var raw []byte
	query := `SELECT config FROM tenant_configs WHERE tenant_id = $1`

	err := s.db.GetContext(ctx, &raw, query, tenantID)
	if err == sql.ErrNoRows {
		cfg := DefaultScanConfig(tenantID)
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg domain.ScanConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse tenant config: %w", err)
	}
	cfg.TenantID = tenantID
	applyConfigDefaults(&cfg)

	return &cfg, nil
}

// Update stores a tenant's configuration snapshot.
func (s *TenantConfigStore) Update(ctx context.Context, cfg *domain.ScanConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal tenant config: %w", err)
	}

	query := `
		INSERT INTO tenant_configs (tenant_id, config, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at`

	_, err = s.db.ExecContext(ctx, query, cfg.TenantID, raw)
	return err
}

// DefaultScanConfig is used for tenants without a stored configuration.
func DefaultScanConfig(tenantID string) domain.ScanConfig {
	cfg := domain.ScanConfig{TenantID: tenantID}
	applyConfigDefaults(&cfg)
	return cfg
}

func applyConfigDefaults(cfg *domain.ScanConfig) {
	if cfg.MaxTopics == 0 {
		cfg.MaxTopics = 10
	}
	if cfg.FreshnessWindowHours == 0 {
		cfg.FreshnessWindowHours = 48
	}
	if cfg.PerSourceCap == 0 {
		cfg.PerSourceCap = 5
	}
	if len(cfg.Queries) == 0 {
		cfg.Queries = []string{"cuba", "cubanos"}
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"es", "en"}
	}
}
