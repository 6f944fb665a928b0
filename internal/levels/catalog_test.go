package levels

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBundledLevels(t *testing.T) {
	ls, err := LoadDir(filepath.Join("..", "..", "levels"))
	require.NoError(t, err)
	require.NotEmpty(t, ls)

	for i := 1; i < len(ls); i++ {
		assert.LessOrEqual(t, ls[i-1].Position, ls[i].Position)
	}
	for _, l := range ls {
		assert.NotEmpty(t, l.Fingerprint, l.Slug)
	}
}

func TestLoadDirOrderAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yaml", "slug: second\nposition: 2\n")
	write("a.yml", "slug: first\nposition: 1\n")
	write("notes.txt", "not a level")

	ls, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, ls, 2)
	assert.Equal(t, "first", ls[0].Slug)
	assert.Equal(t, "second", ls[1].Slug)

	write("c.yaml", "slug: first\n")
	_, err = LoadDir(dir)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog([]Level{
		{Slug: "late", Position: 5},
		{Slug: "early", Position: 1},
	})

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].Slug)

	l, err := c.Get(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, 5, l.Position)

	_, err = c.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
