package archive

import (
	"context"
	"time"

	"github.com/newthinker/finsight/internal/logger"
	"go.uber.org/zap"
)

// Recorder receives archive outcomes; metrics.Registry implements it.
type Recorder interface {
	RecordReportArchived(status string)
}

// Archiver writes reports to a Storage on a best-effort basis.
type Archiver struct {
	storage  Storage
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// NewArchiver wraps storage. A nil storage disables archiving.
func NewArchiver(storage Storage, logger *zap.Logger, recorder Recorder) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{storage: storage, logger: logger, recorder: recorder, now: time.Now}
}

// Enabled reports whether a backend is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.storage != nil
}

// ArchiveReport stores a copy of the report and returns its path. Failures
// are logged and yield an empty path.
func (a *Archiver) ArchiveReport(ctx context.Context, data []byte) string {
	if !a.Enabled() {
		return ""
	}

	path := ReportPath(a.now())
	if err := a.storage.Write(ctx, path, data); err != nil {
		a.logger.Warn("archiving report failed", zap.String("path", path), logger.ErrorDetail(err))
		a.record("error")
		return ""
	}

	a.logger.Info("report archived", zap.String("path", path), zap.Int("bytes", len(data)))
	a.record("ok")
	return path
}

func (a *Archiver) record(status string) {
	if a.recorder != nil {
		a.recorder.RecordReportArchived(status)
	}
}
