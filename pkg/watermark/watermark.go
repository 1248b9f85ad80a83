// Package watermark 保存上一次成功导入的时间，存放在目标店铺的元数据里
package watermark

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"magento-importer/pkg/catalog"
	"magento-importer/pkg/models"
	"magento-importer/pkg/util"
)

type Store struct {
	store catalog.Store
}

func New(store catalog.Store) *Store {
	return &Store{store: store}
}

// Read 返回当前水位，没有或无法解析时返回空串，表示全量拉取
func (s *Store) Read(ctx context.Context) (string, error) {
	st, err := s.store.RetrieveStore(ctx)
	if err != nil {
		return "", errors.Wrap(err, "读取水位失败")
	}
	value := st.Metadata[models.MetadataBuildTime]
	if value == "" {
		return "", nil
	}
	if _, ok := util.ParseTime(value); !ok {
		zap.S().Warnf("水位 %q 无法解析，本次按全量导入", value)
		return "", nil
	}
	return value, nil
}

// Commit 写入新的水位，只应在所有阶段都完成后调用
func (s *Store) Commit(ctx context.Context, at time.Time) (string, error) {
	value := util.FormatWatermark(at)
	err := s.store.Transaction(ctx, func(tx catalog.Tx) error {
		return tx.UpdateStoreMetadata(ctx, models.MetadataBuildTime, value)
	})
	if err != nil {
		return "", errors.Wrap(err, "写入水位失败")
	}
	return value, nil
}
