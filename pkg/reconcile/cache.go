package reconcile

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"magento-importer/pkg/catalog"
)

// RunCache 一次导入内共享的只读数据：启用币种和默认配送方案
// 第一次访问时加载，之后只读
type RunCache struct {
	mu         sync.Mutex
	loaded     bool
	currencies []string
	profileID  string
}

func NewRunCache() *RunCache {
	return &RunCache{}
}

// Prepare 加载缓存，已加载时直接返回
func (c *RunCache) Prepare(ctx context.Context, tx catalog.Tx) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	store, err := tx.RetrieveStore(ctx)
	if err != nil {
		return errors.Wrap(err, "读取店铺信息失败")
	}
	codes := append([]string{}, store.Currencies...)
	if store.DefaultCurrencyCode != "" {
		codes = append(codes, store.DefaultCurrencyCode)
	}
	c.currencies = lo.Uniq(lo.FilterMap(codes, func(code string, _ int) (string, bool) {
		code = strings.ToLower(strings.TrimSpace(code))
		return code, code != ""
	}))

	c.profileID, err = tx.DefaultShippingProfile(ctx)
	if catalog.IsNotFound(err) {
		zap.S().Warn("目标目录没有默认配送方案，新建商品将不关联配送方案")
		err = nil
	}
	if err != nil {
		return errors.Wrap(err, "读取默认配送方案失败")
	}
	c.loaded = true
	return nil
}

func (c *RunCache) Currencies(ctx context.Context, tx catalog.Tx) ([]string, error) {
	if err := c.Prepare(ctx, tx); err != nil {
		return nil, err
	}
	return c.currencies, nil
}

func (c *RunCache) ProfileID(ctx context.Context, tx catalog.Tx) (string, error) {
	if err := c.Prepare(ctx, tx); err != nil {
		return "", err
	}
	return c.profileID, nil
}
