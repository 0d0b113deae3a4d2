package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/finsight/internal/config"
	"github.com/newthinker/finsight/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct{ *LocalFS }

func (failingStorage) Write(context.Context, string, []byte) error {
	return errors.New("disk full")
}

type statusRecorder struct{ statuses []string }

func (r *statusRecorder) RecordReportArchived(status string) { r.statuses = append(r.statuses, status) }

func TestReportPath(t *testing.T) {
	ts := time.Date(2024, 3, 7, 14, 5, 9, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "reports/2024/03/portfolio_report_20240307T130509Z.pdf", ReportPath(ts))
}

func TestArchiver_WritesReport(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	rec := &statusRecorder{}

	a := NewArchiver(fs, nil, rec)
	a.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	path := a.ArchiveReport(context.Background(), []byte("%PDF"))
	assert.Equal(t, "reports/2024/01/portfolio_report_20240102T030405Z.pdf", path)

	got, err := fs.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), got)
	assert.Equal(t, []string{"ok"}, rec.statuses)
}

func TestArchiver_FailureIsSwallowed(t *testing.T) {
	rec := &statusRecorder{}
	a := NewArchiver(failingStorage{}, nil, rec)

	assert.Empty(t, a.ArchiveReport(context.Background(), []byte("%PDF")))
	assert.Equal(t, []string{"error"}, rec.statuses)
}

func TestArchiver_Disabled(t *testing.T) {
	a := NewArchiver(nil, nil, nil)
	assert.False(t, a.Enabled())
	assert.Empty(t, a.ArchiveReport(context.Background(), []byte("x")))
}

func TestNew(t *testing.T) {
	s, err := New(config.ArchiveConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(config.ArchiveConfig{Type: "localfs", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, s)

	s, err = New(config.ArchiveConfig{Type: "s3", S3: config.S3Config{Bucket: "reports"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)

	_, err = New(config.ArchiveConfig{Type: "ftp"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
