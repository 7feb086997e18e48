// Package dispatch fans out independent image-generation calls and joins
// their results. This package is internal and should not be imported by
// external projects.
package dispatch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/storyframe/internal/pool"
)

// =============================================================================
// ⚡ 并发调度
// =============================================================================

// Generator 是图像生成的最小接口：文本提示词 → 可服务的图片 URL。
// providers/imagen 实现它；测试中用假实现替换。
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Dispatcher 并发执行多个独立的生成请求。
// 结果顺序与提交顺序一致；任一调用失败时整体失败，
// 其余进行中的调用通过 context 取消。
type Dispatcher struct {
	generator Generator
	pool      *pool.WorkerPool
	logger    *zap.Logger
}

// NewDispatcher 创建调度器。pool 为进程级并发上限，可在多个
// Dispatcher 间共享。
func NewDispatcher(generator Generator, p *pool.WorkerPool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		generator: generator,
		pool:      p,
		logger:    logger.With(zap.String("component", "dispatch")),
	}
}

// Generate 并发生成全部 prompts 对应的图片，返回与提交顺序一致的 URL 列表。
// 没有部分成功：第一个失败即整体失败，已发出的兄弟调用被取消。
func (d *Dispatcher) Generate(ctx context.Context, prompts []string) ([]string, error) {
	if len(prompts) == 0 {
		return nil, nil
	}

	// 单提示词直接调用，避免无谓的 goroutine 开销
	if len(prompts) == 1 {
		url, err := d.generate(ctx, prompts[0])
		if err != nil {
			return nil, err
		}
		return []string{url}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	urls := make([]string, len(prompts))

	for i, prompt := range prompts {
		g.Go(func() error {
			url, err := d.generate(gctx, prompt)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.logger.Warn("fan-out failed",
			zap.Int("fanout", len(prompts)),
			zap.Error(err),
		)
		return nil, err
	}

	return urls, nil
}

// generate 通过共享池执行单次生成，池满时排队等待。
func (d *Dispatcher) generate(ctx context.Context, prompt string) (string, error) {
	if d.pool == nil {
		return d.generator.GenerateImage(ctx, prompt)
	}

	var url string
	err := d.pool.SubmitWait(ctx, func(taskCtx context.Context) error {
		var genErr error
		url, genErr = d.generator.GenerateImage(taskCtx, prompt)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return url, nil
}
