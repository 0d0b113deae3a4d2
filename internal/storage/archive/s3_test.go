package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Storage_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "reports/a.pdf", "reports/a.pdf"},
		{"finsight", "reports/a.pdf", "finsight/reports/a.pdf"},
		{"finsight/", "/reports/a.pdf", "finsight/reports/a.pdf"},
	}

	for _, tt := range tests {
		s, err := NewS3(S3Config{Bucket: "b", Prefix: tt.prefix})
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.key(tt.path), "prefix %q", tt.prefix)
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{})
	assert.Error(t, err)
}
