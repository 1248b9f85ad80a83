// Package importer 按 分类 -> 可配置商品 -> 简单商品 的顺序执行一次导入，全部完成后提交水位
package importer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"magento-importer/pkg/catalog"
	"magento-importer/pkg/magento"
	"magento-importer/pkg/reconcile"
	"magento-importer/pkg/watermark"
)

type Importer struct {
	cfg       *Config
	source    Source
	store     catalog.Store
	watermark *watermark.Store
	now       func() time.Time
}

type Option func(*Importer)

// WithClock 替换提交水位时使用的时钟
func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		i.now = now
	}
}

func New(cfg *Config, source Source, store catalog.Store, opts ...Option) *Importer {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	i := &Importer{
		cfg:       cfg,
		source:    source,
		store:     store,
		watermark: watermark.New(store),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run 执行一次完整导入
// 目标目录没有店铺记录时只记录日志并返回；任何阶段出现网关错误都会中止导入且不提交水位
func (i *Importer) Run(ctx context.Context, progress ProgressFunc) (*RunResult, error) {
	if progress == nil {
		progress = func(int) {}
	}
	result := &RunResult{}

	if _, err := i.store.RetrieveStore(ctx); err != nil {
		if catalog.IsNotFound(err) {
			zap.S().Warn("目标目录没有店铺记录，跳过本次导入")
			result.Skipped = true
			return result, nil
		}
		return nil, errors.Wrap(err, "读取店铺信息失败")
	}

	since, err := i.watermark.Read(ctx)
	if err != nil {
		return nil, err
	}
	result.Since = since
	if since == "" {
		zap.S().Info("没有水位记录，执行全量导入")
	} else {
		zap.S().Infof("增量导入，拉取 %s 之后更新的数据", since)
	}

	// 币种和配送方案在并发开始前加载好，之后只读
	cache := reconcile.NewRunCache()
	if err = i.store.Transaction(ctx, func(tx catalog.Tx) error { return cache.Prepare(ctx, tx) }); err != nil {
		return nil, err
	}

	categories, err := i.source.FetchCategories(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "拉取分类失败")
	}
	categoryReconciler := reconcile.NewCategoryReconciler(i.store)
	result.Categories, err = runPhase(ctx, i.cfg.workers(), "分类", categories,
		categoryReconciler.Reconcile,
		func(c magento.Category) string { return c.Name + "(" + c.ID.String() + ")" })
	if err != nil {
		return nil, err
	}
	zap.S().Infof("分类同步完成: %s", result.Categories)
	progress(ProgressCategories)

	productReconciler := reconcile.NewProductReconciler(i.store, i.source, cache)
	label := func(p magento.Product) string { return p.SKU + "(" + p.ID.String() + ")" }

	configurable, err := i.source.FetchProducts(ctx, magento.ProductTypeConfigurable, since)
	if err != nil {
		return nil, errors.Wrap(err, "拉取可配置商品失败")
	}
	result.Configurable, err = runPhase(ctx, i.cfg.workers(), "可配置商品", configurable, productReconciler.Reconcile, label)
	if err != nil {
		return nil, err
	}
	zap.S().Infof("可配置商品同步完成: %s", result.Configurable)
	progress(ProgressConfigurable)

	simple, err := i.source.FetchProducts(ctx, magento.ProductTypeSimple, since)
	if err != nil {
		return nil, errors.Wrap(err, "拉取简单商品失败")
	}
	result.Simple, err = runPhase(ctx, i.cfg.workers(), "简单商品", simple, productReconciler.Reconcile, label)
	if err != nil {
		return nil, err
	}
	zap.S().Infof("简单商品同步完成: %s", result.Simple)
	progress(ProgressSimple)

	if result.Watermark, err = i.watermark.Commit(ctx, i.now()); err != nil {
		return nil, err
	}
	zap.S().Infof("导入完成，新水位 %s", result.Watermark)
	return result, nil
}

// runPhase 用有上限的 worker 并发处理一个阶段的条目
// 单条失败只计数；网关错误或 ctx 取消会中止整个阶段
func runPhase[T any](ctx context.Context, workers int, name string, items []T,
	fn func(context.Context, T) (reconcile.Outcome, error), label func(T) string) (PhaseResult, error) {
	tracker := newPhaseTracker(len(items))
	if len(items) == 0 {
		return tracker.snapshot(), nil
	}
	zap.S().Infof("开始同步%s，共 %d 条，并发 %d", name, len(items), workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, err := fn(gctx, item)
			if err == nil {
				tracker.add(outcome)
				return nil
			}
			if magento.IsGatewayError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			tracker.fail()
			zap.S().Errorf("同步%s %s 失败: %v", name, label(item), err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tracker.snapshot(), errors.Wrapf(err, "同步%s中止", name)
	}
	if err := ctx.Err(); err != nil {
		return tracker.snapshot(), err
	}
	return tracker.snapshot(), nil
}
