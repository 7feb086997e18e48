// Package storage provides the local content store for generated images.
// This package is internal and should not be imported by external projects.
package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/storyframe/types"
)

// =============================================================================
// 🗂️ 图片内容存储
// =============================================================================

// Store 将生成的图片字节写入本地静态目录，并返回可被 HTTP 层
// 直接服务的 URL。文件名使用随机 UUID（128 位），碰撞概率可忽略。
// 目录只追加：不覆盖已有文件，也不做清理。
type Store struct {
	dir        string
	publicBase string
	logger     *zap.Logger
}

// NewStore 创建存储，目录不存在时自动创建。
func NewStore(dir, publicBase string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &Store{
		dir:        dir,
		publicBase: strings.TrimRight(publicBase, "/"),
		logger:     logger.With(zap.String("component", "storage")),
	}, nil
}

// Save 将图片字节写入新的唯一文件，返回对外 URL。
// 调用方在 URL 返回前即可认为文件已落盘（同步写入）。
func (s *Store) Save(data []byte, ext string) (string, error) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	filename := uuid.NewString() + ext
	fullPath := filepath.Join(s.dir, filename)

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", types.NewError(types.ErrStorageWrite, "failed to write image file").WithCause(err)
	}

	s.logger.Debug("image written",
		zap.String("file", filename),
		zap.Int("bytes", len(data)),
	)

	return path.Join(s.publicBase, filename), nil
}

// Dir 返回存储目录，供静态文件服务挂载。
func (s *Store) Dir() string {
	return s.dir
}

// PublicBase 返回对外 URL 前缀。
func (s *Store) PublicBase() string {
	return s.publicBase
}
