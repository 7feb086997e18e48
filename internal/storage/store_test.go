package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/storyframe/types"
)

func TestStore_SaveCreatesServableFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "/static", zap.NewNop())
	require.NoError(t, err)

	url, err := store.Save([]byte("png-bytes"), "png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/static/"), "url %q should be under /static/", url)
	assert.True(t, strings.HasSuffix(url, ".png"))

	// URL 返回时文件必须已存在
	filename := strings.TrimPrefix(url, "/static/")
	data, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestStore_SaveGeneratesUniqueNames(t *testing.T) {
	store, err := NewStore(t.TempDir(), "/static/", zap.NewNop())
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		url, err := store.Save([]byte("x"), ".png")
		require.NoError(t, err)
		_, dup := seen[url]
		require.False(t, dup, "duplicate url %s", url)
		seen[url] = struct{}{}
	}
}

func TestStore_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "static")
	_, err := NewStore(dir, "/static", zap.NewNop())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_WriteErrorMapsToStorageWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "/static", zap.NewNop())
	require.NoError(t, err)

	// 移除目录触发写入失败
	require.NoError(t, os.RemoveAll(dir))

	_, err = store.Save([]byte("x"), "png")
	require.Error(t, err)
	assert.Equal(t, types.ErrStorageWrite, types.GetErrorCode(err))
}
