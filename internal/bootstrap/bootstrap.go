// Package bootstrap assembles the catalogue and its collaborators from
// configuration. Both binaries start here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"beliefpad/api/internal/auth"
	"beliefpad/api/internal/backup"
	"beliefpad/api/internal/config"
	"beliefpad/api/internal/email"
	"beliefpad/api/internal/export"
	"beliefpad/api/internal/history"
	"beliefpad/api/internal/logging"
	"beliefpad/api/internal/search"
	"beliefpad/api/internal/store"
)

// pinWindow is how long failed PIN attempts are remembered.
const pinWindow = 15 * time.Minute

// Components are the wired services. Optional ones are nil when their
// configuration is missing.
type Components struct {
	Catalogue *store.Catalogue
	Exporter  *export.Service
	History   *history.Service
	Search    *search.Service
	Backup    *backup.Service
	Mailer    *email.Service
	PIN       *auth.PINVerifier

	meili   *search.Meili
	closers []func() error
}

// Open connects the store backend and wires observers onto the catalogue.
func Open(ctx context.Context, cfg config.Config, logger logging.Logger) (*Components, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	kv, closeKV, err := store.Open(ctx, store.Backend{
		Kind:        cfg.StoreBackend,
		BadgerDir:   cfg.BadgerDir,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
		MemoryQuota: cfg.StorageQuotaBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	logger.Info("bootstrap", "store opened", map[string]any{"backend": cfg.StoreBackend})

	c := &Components{
		Catalogue: store.NewCatalogue(kv, logger, cfg.StorageQuotaBytes),
		Exporter:  export.NewService(logger),
		closers:   []func() error{closeKV},
	}

	if strings.TrimSpace(cfg.HistoryDir) != "" {
		if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		c.History = history.New(cfg.HistoryDir, "beliefpad", logger)
		c.Catalogue.AddObserver(c.History)
	}

	if strings.TrimSpace(cfg.MeiliURL) != "" {
		c.meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	c.Search = search.NewService(c.meili, search.NewLocal(c.Catalogue), logger)
	c.Catalogue.AddObserver(c.Search)

	c.Backup, err = backup.New(backup.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	}, logger)
	if err != nil && !errors.Is(err, backup.ErrNotConfigured) {
		logger.Warn("bootstrap", "backups disabled", map[string]any{"error": err.Error()})
	}

	c.Mailer = email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, logger)

	c.PIN, err = auth.NewPINVerifier(cfg.EmailPIN, auth.NewLimiter(cfg.PINMaxAttempts, pinWindow))
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("configure email pin: %w", err)
	}
	if !c.PIN.Configured() {
		logger.Warn("bootstrap", "EMAIL_PIN is not set, remote sending is disabled", nil)
	}
	return c, nil
}

// Reindex pushes every saved form to the search index in the background.
func (c *Components) Reindex(ctx context.Context) {
	if c.meili == nil {
		return
	}
	go c.Search.ReindexAll(ctx, c.Catalogue)
}

// Close releases the store and stops background loops.
func (c *Components) Close() error {
	if c.meili != nil {
		c.meili.Close()
	}
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
