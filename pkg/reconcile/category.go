package reconcile

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"magento-importer/pkg/catalog"
	"magento-importer/pkg/magento"
	"magento-importer/pkg/models"
	"magento-importer/pkg/normalizer"
)

type CategoryReconciler struct {
	store catalog.Store
}

func NewCategoryReconciler(store catalog.Store) *CategoryReconciler {
	return &CategoryReconciler{store: store}
}

// Reconcile 在单独的事务里创建或更新一个分类对应的集合
func (r *CategoryReconciler) Reconcile(ctx context.Context, src magento.Category) (Outcome, error) {
	fields := normalizer.Category(src)
	var outcome Outcome
	err := r.store.Transaction(ctx, func(tx catalog.Tx) error {
		var err error
		outcome, err = reconcileCategory(ctx, tx, fields)
		return err
	})
	if err != nil {
		return "", errors.Wrapf(err, "同步分类 %s(%s) 失败", src.Name, src.ID)
	}
	return outcome, nil
}

// findCollection 先按 magento_id 查找，url_key 改名后仍然命中原集合；
// 找不到时再按 handle 认领没有 magento_id 的同名集合
func findCollection(ctx context.Context, tx catalog.Tx, fields normalizer.CategoryFields) (*models.Collection, error) {
	existing, err := tx.CollectionByExternalID(ctx, fields.ExternalID)
	if err == nil || !catalog.IsNotFound(err) || fields.Handle == "" {
		return existing, err
	}
	existing, err = tx.CollectionByHandle(ctx, fields.Handle)
	if err != nil {
		return nil, err
	}
	if ext := existing.Metadata.ExternalID(); ext != "" && ext != fields.ExternalID {
		return nil, errors.Wrapf(catalog.ErrConflict, "handle %s 已被分类 %s 使用", fields.Handle, ext)
	}
	return existing, nil
}

// fallbackHandle 分类没有 url_key 时的 handle，集合的 handle 必须唯一
func fallbackHandle(externalID string) string {
	return "magento-category-" + externalID
}

func reconcileCategory(ctx context.Context, tx catalog.Tx, fields normalizer.CategoryFields) (Outcome, error) {
	existing, err := findCollection(ctx, tx, fields)
	if catalog.IsNotFound(err) {
		handle := fields.Handle
		if handle == "" {
			handle = fallbackHandle(fields.ExternalID)
		}
		c := &models.Collection{
			Title:    fields.Title,
			Handle:   handle,
			Metadata: models.ExternalIDMetadata(fields.ExternalID),
		}
		if err = tx.CreateCollection(ctx, c); err != nil {
			return "", err
		}
		return OutcomeCreated, nil
	}
	if err != nil {
		return "", err
	}
	upd := diffCollection(existing, fields)
	if upd.IsEmpty() {
		return OutcomeUnchanged, nil
	}
	if err = tx.UpdateCollection(ctx, existing.ID, upd); err != nil {
		return "", err
	}
	return OutcomeUpdated, nil
}

// diffCollection 只比较 title 和 handle，metadata 只在创建时写入
func diffCollection(existing *models.Collection, fields normalizer.CategoryFields) models.CollectionUpdate {
	var upd models.CollectionUpdate
	if existing.Title != fields.Title {
		upd.Title = &fields.Title
	}
	if fields.Handle != "" && existing.Handle != fields.Handle {
		upd.Handle = &fields.Handle
	}
	return upd
}

// assignCollection 多分类商品只挂一个集合：按 position 升序稳定排序后从最大的往下找，
// 第一个已经导入成集合的分类胜出；position 相同时源数据中靠后的那个优先
func assignCollection(ctx context.Context, tx catalog.Tx, links []magento.CategoryLink) (string, bool, error) {
	if len(links) == 0 {
		return "", false, nil
	}
	sorted := append([]magento.CategoryLink(nil), links...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	collections, err := tx.ListCollections(ctx)
	if err != nil {
		return "", false, err
	}
	byExternalID := make(map[string]string, len(collections))
	for _, c := range collections {
		ext := c.Metadata.ExternalID()
		if _, ok := byExternalID[ext]; ext != "" && !ok {
			byExternalID[ext] = c.ID
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if id, ok := byExternalID[sorted[i].CategoryID.String()]; ok {
			return id, true, nil
		}
	}
	return "", false, nil
}
