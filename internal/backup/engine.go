// Package backup exports the inventory store to bundles, scans bundles for
// conflicts against the local store, and merges them back in.
//
// A typical round trip:
//
//	report, err := engine.Scan(ctx, "backup.svdata")
//	// show report.Conflicts and report.NewItems to the user
//	result, err := engine.Import(ctx, report.SessionID, backup.Strategies{
//	    Inventory: map[int64]backup.Strategy{12: backup.Overwrite},
//	})
//
// Every scan owns a working directory that is removed by Import or Discard.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
	"github.com/Dicklesworthstone/siliconvault/internal/bundle"
	"github.com/Dicklesworthstone/siliconvault/internal/db"
	"github.com/Dicklesworthstone/siliconvault/internal/metrics"
	"github.com/Dicklesworthstone/siliconvault/internal/session"
)

// Auditor records operation log entries. Failures are logged and ignored.
type Auditor interface {
	Record(ctx context.Context, e db.AuditEntry) error
}

// Options configures an Engine.
type Options struct {
	DB       *db.DB
	Assets   *assets.Store
	Sessions *session.Manager

	// Auditor defaults to DB.
	Auditor Auditor
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// DefaultMinStock applies to bundle records without min_stock.
	DefaultMinStock int64
	// ImportedSuffix disambiguates keep_both inserts. Defaults to " (Imported)".
	ImportedSuffix string
	// KeepRemoteQuantity makes inserted rows keep the bundle's quantity and
	// location instead of starting empty.
	KeepRemoteQuantity bool

	// Now is used for bundle timestamps and backup names.
	Now func() time.Time
}

// Engine runs export, scan and import against one store.
type Engine struct {
	db       *db.DB
	assets   *assets.Store
	sessions *session.Manager
	auditor  Auditor
	metrics  *metrics.Metrics
	logger   *slog.Logger

	defaultMinStock    int64
	importedSuffix     string
	keepRemoteQuantity bool
	now                func() time.Time
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("backup: DB is required")
	}
	if opts.Assets == nil {
		return nil, fmt.Errorf("backup: asset store is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("backup: session manager is required")
	}

	e := &Engine{
		db:                 opts.DB,
		assets:             opts.Assets,
		sessions:           opts.Sessions,
		auditor:            opts.Auditor,
		metrics:            opts.Metrics,
		logger:             opts.Logger,
		defaultMinStock:    opts.DefaultMinStock,
		importedSuffix:     opts.ImportedSuffix,
		keepRemoteQuantity: opts.KeepRemoteQuantity,
		now:                opts.Now,
	}
	if e.auditor == nil {
		e.auditor = opts.DB
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.defaultMinStock <= 0 {
		e.defaultMinStock = bundle.DefaultMinStock
	}
	if e.importedSuffix == "" {
		e.importedSuffix = " (Imported)"
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Close disposes every scan session that was never imported or discarded.
func (e *Engine) Close() error {
	err := e.sessions.Close()
	e.metrics.SetSessionsActive(0)
	return err
}

// audit records an entry without failing the caller.
func (e *Engine) audit(ctx context.Context, entry db.AuditEntry) {
	if e.auditor == nil {
		return
	}
	if err := e.auditor.Record(ctx, entry); err != nil {
		e.logger.Warn("audit record failed", "op", entry.Op, "error", err)
	}
}

func (e *Engine) observe(op string, start time.Time, err error) {
	e.metrics.ObserveOperation(op, err, time.Since(start))
}
