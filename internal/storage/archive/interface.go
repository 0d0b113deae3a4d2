// Package archive copies generated reports to long-term storage.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/finsight/internal/config"
	"github.com/newthinker/finsight/internal/core"
)

// Storage defines the interface for archive backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// ReportPath returns reports/<YYYY>/<MM>/portfolio_report_<timestamp>.pdf for t in UTC.
func ReportPath(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("reports/%04d/%02d/portfolio_report_%s.pdf",
		t.Year(), int(t.Month()), t.Format("20060102T150405Z"))
}

// New builds the backend selected by cfg. It returns nil, nil when
// archiving is disabled.
func New(cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "localfs":
		fs, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "s3":
		s3, err := NewS3(S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type: %s", cfg.Type))
	}
}
