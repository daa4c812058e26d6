package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/modalsource/postal/internal/domain"
)

// Gorm is a sqlite-backed Store.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm opens (creating if needed) the sqlite database at path and
// migrates the domain schema.
func OpenGorm(path string) (*Gorm, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&domain.Domain{}); err != nil {
		return nil, err
	}

	return &Gorm{db: db}, nil
}

// Create adds a domain, generating its UUID and DKIM selector suffix.
func (g *Gorm) Create(ctx context.Context, d *domain.Domain) error {
	if err := prepare(d); err != nil {
		return err
	}

	err := g.db.WithContext(ctx).Create(d).Error
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateName
	}

	return err
}

// Get returns the named domain.
func (g *Gorm) Get(ctx context.Context, name string) (*domain.Domain, error) {
	var d domain.Domain

	err := g.db.WithContext(ctx).Where("name = ?", strings.ToLower(name)).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &d, nil
}

// List returns every stored domain.
func (g *Gorm) List(ctx context.Context) ([]*domain.Domain, error) {
	var domains []*domain.Domain

	if err := g.db.WithContext(ctx).Order("name").Find(&domains).Error; err != nil {
		return nil, err
	}

	return domains, nil
}

// FindForPolicy returns the domain when it may be served policy content.
func (g *Gorm) FindForPolicy(ctx context.Context, name string) (*domain.Domain, error) {
	var d domain.Domain

	err := g.db.WithContext(ctx).
		Where("name = ? AND mta_sts_enabled = ? AND verified_at IS NOT NULL", strings.ToLower(name), true).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &d, nil
}

// ApplyResult writes all mechanism columns and the check timestamp in one
// statement so the snapshot is committed atomically.
func (g *Gorm) ApplyResult(ctx context.Context, name string, res domain.Result) error {
	tx := g.db.WithContext(ctx).
		Model(&domain.Domain{}).
		Where("name = ?", strings.ToLower(name)).
		Updates(map[string]any{
			"spf_status":         res.SPF.Status,
			"spf_error":          res.SPF.Error,
			"dkim_status":        res.DKIM.Status,
			"dkim_error":         res.DKIM.Error,
			"mx_status":          res.MX.Status,
			"mx_error":           res.MX.Error,
			"return_path_status": res.ReturnPath.Status,
			"return_path_error":  res.ReturnPath.Error,
			"dmarc_status":       res.DMARC.Status,
			"dmarc_error":        res.DMARC.Error,
			"mta_sts_status":     res.MTASTS.Status,
			"mta_sts_error":      res.MTASTS.Error,
			"tls_rpt_status":     res.TLSRPT.Status,
			"tls_rpt_error":      res.TLSRPT.Error,
			"dns_checked_at":     res.CheckedAt,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
