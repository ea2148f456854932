package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dataset-cli/internal/model"
)

func TestOpen_None(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(context.Background(), driver, "", nil)
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInput))
}

func TestOpen_SQLiteMigrates(t *testing.T) {
	t.Parallel()

	st, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	run, err := st.CreateRun(context.Background(), "q", []string{"Name"}, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
}

func TestURLHash(t *testing.T) {
	t.Parallel()

	h := URLHash("https://example.com")
	assert.Len(t, h, 64)
	assert.Equal(t, h, URLHash("  https://example.com "))
	assert.NotEqual(t, h, URLHash("https://example.org"))
}
