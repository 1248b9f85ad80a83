package reconcile

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"magento-importer/pkg/catalog"
	"magento-importer/pkg/magento"
	"magento-importer/pkg/models"
	"magento-importer/pkg/normalizer"
)

type ProductReconciler struct {
	store    catalog.Store
	variants VariantSource
	cache    *RunCache
}

func NewProductReconciler(store catalog.Store, variants VariantSource, cache *RunCache) *ProductReconciler {
	if cache == nil {
		cache = NewRunCache()
	}
	return &ProductReconciler{store: store, variants: variants, cache: cache}
}

// writeCounter 记录一个商品内实际发生的写操作次数
type writeCounter int

func (w *writeCounter) add(err error) error {
	if err == nil {
		*w++
	}
	return err
}

// ResolveIdentity 先按 magento_id 找商品，再按 SKU 找变体，都没有就是新商品
func ResolveIdentity(ctx context.Context, tx catalog.Tx, src magento.Product) (Identity, error) {
	p, err := tx.ProductByExternalID(ctx, src.ID.String())
	if err == nil {
		return Identity{Kind: ExistingProduct, Product: p}, nil
	}
	if !catalog.IsNotFound(err) {
		return Identity{}, err
	}
	if src.SKU != "" {
		v, err := tx.VariantBySKU(ctx, src.SKU)
		if err == nil {
			return Identity{Kind: OrphanVariant, Variant: v}, nil
		}
		if !catalog.IsNotFound(err) {
			return Identity{}, err
		}
	}
	return Identity{Kind: NewProduct}, nil
}

// Reconcile 同步一个 magento 商品，所有写操作在同一个事务里，任何一步失败整体回滚
// 关联的 simple 商品在事务开始前拉取，网关错误原样返回
func (r *ProductReconciler) Reconcile(ctx context.Context, src magento.Product) (Outcome, error) {
	linked, err := r.fetchLinked(ctx, src)
	if err != nil {
		return "", errors.Wrapf(err, "拉取商品 %s(%s) 的变体失败", src.SKU, src.ID)
	}

	var outcome Outcome
	err = r.store.Transaction(ctx, func(tx catalog.Tx) error {
		identity, err := ResolveIdentity(ctx, tx, src)
		if err != nil {
			return err
		}
		switch identity.Kind {
		case ExistingProduct:
			outcome, err = r.update(ctx, tx, src, identity.Product, linked)
		case OrphanVariant:
			outcome, err = r.updateVariant(ctx, tx, src, identity.Variant)
		default:
			outcome, err = r.create(ctx, tx, src, linked)
		}
		return err
	})
	if err != nil {
		return "", errors.Wrapf(err, "同步商品 %s(%s) 失败", src.SKU, src.ID)
	}
	return outcome, nil
}

func (r *ProductReconciler) fetchLinked(ctx context.Context, src magento.Product) ([]magento.Product, error) {
	links := src.ExtensionAttributes.ConfigurableProductLinks
	if !src.IsConfigurable() || len(links) == 0 {
		return nil, nil
	}
	ids := lo.Map(links, func(id magento.ID, _ int) string { return id.String() })
	return r.variants.FetchVariantsByIDs(ctx, ids)
}

func sourceImages(src magento.Product) []string {
	return normalizer.Product(src).Images
}

// attachOptions 按 magento_id 把源数据里的选项值挂到已有选项上
func attachOptions(current []models.ProductOption, incoming []magento.ConfigurableOption) []models.ProductOption {
	out := make([]models.ProductOption, 0, len(current))
	for _, opt := range current {
		if in, ok := lo.Find(incoming, func(o magento.ConfigurableOption) bool {
			return o.ID.String() == opt.Metadata.ExternalID()
		}); ok {
			opt.Values = normalizer.OptionValues(in.Values)
		}
		out = append(out, opt)
	}
	return out
}

func (r *ProductReconciler) create(ctx context.Context, tx catalog.Tx, src magento.Product, linked []magento.Product) (Outcome, error) {
	currencies, err := r.cache.Currencies(ctx, tx)
	if err != nil {
		return "", err
	}
	profileID, err := r.cache.ProfileID(ctx, tx)
	if err != nil {
		return "", err
	}

	p := normalizer.Product(src)
	p.ProfileID = profileID
	if collectionID, ok, err := assignCollection(ctx, tx, src.ExtensionAttributes.CategoryLinks); err != nil {
		return "", err
	} else if ok {
		p.CollectionID = collectionID
	}
	incoming := src.ExtensionAttributes.ConfigurableProductOptions
	if src.IsConfigurable() {
		for _, opt := range incoming {
			p.Options = append(p.Options, normalizer.Option(opt))
		}
	}
	images := p.Images
	p.Images = nil
	if err = tx.CreateProduct(ctx, p); err != nil {
		return "", err
	}

	if src.IsConfigurable() {
		created, err := tx.RetrieveProduct(ctx, p.ID)
		if err != nil {
			return "", err
		}
		options := attachOptions(created.Options, incoming)
		for _, v := range linked {
			if err = tx.CreateVariant(ctx, p.ID, normalizer.Variant(v, currencies, options)); err != nil {
				return "", err
			}
			images = append(images, sourceImages(v)...)
		}
	} else {
		if err = tx.CreateVariant(ctx, p.ID, normalizer.Variant(src, currencies, nil)); err != nil {
			return "", err
		}
	}

	images = lo.Uniq(images)
	if len(images) > 0 {
		if err = tx.UpdateProduct(ctx, p.ID, models.ProductUpdate{Images: images}); err != nil {
			return "", err
		}
	}
	return OutcomeCreated, nil
}

func (r *ProductReconciler) update(ctx context.Context, tx catalog.Tx, src magento.Product, existing *models.Product, linked []magento.Product) (Outcome, error) {
	var writes writeCounter
	currencies, err := r.cache.Currencies(ctx, tx)
	if err != nil {
		return "", err
	}

	next := normalizer.Product(src)
	upd := diffProduct(existing, next)
	if collectionID, ok, err := assignCollection(ctx, tx, src.ExtensionAttributes.CategoryLinks); err != nil {
		return "", err
	} else if ok && collectionID != existing.CollectionID {
		upd.CollectionID = &collectionID
	}

	current := existing
	incoming := src.ExtensionAttributes.ConfigurableProductOptions
	if src.IsConfigurable() && len(incoming) > 0 {
		if err = syncOptions(ctx, tx, existing, incoming, &writes); err != nil {
			return "", err
		}
		if writes > 0 {
			if current, err = tx.RetrieveProduct(ctx, existing.ID); err != nil {
				return "", err
			}
		}
	}

	images := append(append([]string{}, existing.Images...), next.Images...)
	links := src.ExtensionAttributes.ConfigurableProductLinks
	switch {
	case src.IsConfigurable() && len(links) > 0:
		options := attachOptions(current.Options, incoming)
		for _, v := range linked {
			if err = upsertVariant(ctx, tx, current, normalizer.Variant(v, currencies, options), &writes); err != nil {
				return "", err
			}
			images = append(images, sourceImages(v)...)
		}
		keep := lo.SliceToMap(links, func(id magento.ID) (string, struct{}) { return id.String(), struct{}{} })
		for _, v := range current.Variants {
			if _, ok := keep[v.Metadata.ExternalID()]; ok {
				continue
			}
			if err = writes.add(tx.DeleteVariant(ctx, v.ID)); err != nil {
				return "", err
			}
		}
	case !src.IsConfigurable():
		nv := normalizer.Variant(src, currencies, nil)
		if len(current.Variants) == 0 {
			if err = writes.add(tx.CreateVariant(ctx, current.ID, nv)); err != nil {
				return "", err
			}
		} else if vu := diffVariant(&current.Variants[0], nv); !vu.IsEmpty() {
			if err = writes.add(tx.UpdateVariant(ctx, current.Variants[0].ID, vu)); err != nil {
				return "", err
			}
		}
	}

	images = lo.Uniq(images)
	if !sameSet(images, existing.Images) {
		upd.Images = images
	}
	if !upd.IsEmpty() {
		if err = writes.add(tx.UpdateProduct(ctx, existing.ID, upd)); err != nil {
			return "", err
		}
	}
	if writes == 0 {
		return OutcomeUnchanged, nil
	}
	return OutcomeUpdated, nil
}

// syncOptions 选项按 magento_id 对齐：缺的新建，标题变了的更新，源数据里没有的删除
// 选项值不在这里写，由变体写入时补全
func syncOptions(ctx context.Context, tx catalog.Tx, existing *models.Product, incoming []magento.ConfigurableOption, writes *writeCounter) error {
	for _, in := range incoming {
		current, ok := lo.Find(existing.Options, func(o models.ProductOption) bool {
			return o.Metadata.ExternalID() == in.ID.String()
		})
		if !ok {
			opt := normalizer.Option(in)
			opt.Values = nil
			if err := writes.add(tx.AddOption(ctx, existing.ID, &opt)); err != nil {
				return err
			}
			continue
		}
		if current.Title != in.Label {
			title := in.Label
			if err := writes.add(tx.UpdateOption(ctx, existing.ID, current.ID, models.OptionUpdate{Title: &title})); err != nil {
				return err
			}
		}
	}
	for _, opt := range existing.Options {
		if lo.ContainsBy(incoming, func(in magento.ConfigurableOption) bool {
			return in.ID.String() == opt.Metadata.ExternalID()
		}) {
			continue
		}
		if err := writes.add(tx.DeleteOption(ctx, existing.ID, opt.ID)); err != nil {
			return err
		}
	}
	return nil
}

func upsertVariant(ctx context.Context, tx catalog.Tx, product *models.Product, nv *models.ProductVariant, writes *writeCounter) error {
	ext := nv.Metadata.ExternalID()
	idx := lo.IndexOf(lo.Map(product.Variants, func(v models.ProductVariant, _ int) string {
		return v.Metadata.ExternalID()
	}), ext)
	if idx < 0 {
		return writes.add(tx.CreateVariant(ctx, product.ID, nv))
	}
	upd := diffVariant(&product.Variants[idx], nv)
	if upd.IsEmpty() {
		return nil
	}
	return writes.add(tx.UpdateVariant(ctx, product.Variants[idx].ID, upd))
}

// updateVariant 没有父商品上下文，只更新变体自身字段；SKU 命中其他商品的变体时报错而不是覆盖
func (r *ProductReconciler) updateVariant(ctx context.Context, tx catalog.Tx, src magento.Product, existing *models.ProductVariant) (Outcome, error) {
	if owner := existing.Metadata.ExternalID(); owner != "" && owner != src.ID.String() {
		return "", errors.Wrapf(ErrSKUCollision, "SKU %s 已被 magento 商品 %s 的变体占用", src.SKU, owner)
	}
	if existing.Metadata.ExternalID() == "" {
		zap.S().Warnf("SKU %s 匹配到没有 magento_id 的变体 %s，按变体更新处理", src.SKU, existing.ID)
	}
	currencies, err := r.cache.Currencies(ctx, tx)
	if err != nil {
		return "", err
	}
	upd := diffVariant(existing, normalizer.Variant(src, currencies, nil))
	upd.Options = nil
	upd.SKU = nil
	if upd.IsEmpty() {
		return OutcomeUnchanged, nil
	}
	if err = tx.UpdateVariant(ctx, existing.ID, upd); err != nil {
		return "", err
	}
	return OutcomeUpdated, nil
}
