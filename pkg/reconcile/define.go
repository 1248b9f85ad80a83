// Package reconcile 把 magento 的分类和商品对齐到目标目录：先比对再写，只写有差异的字段
package reconcile

import (
	"context"

	"github.com/pkg/errors"

	"magento-importer/pkg/magento"
	"magento-importer/pkg/models"
)

// ErrSKUCollision SKU 命中的变体属于另一个 magento 商品，拒绝覆盖
var ErrSKUCollision = errors.New("reconcile: sku belongs to a different source product")

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// VariantSource 拉取可配置商品关联的 simple 商品
type VariantSource interface {
	FetchVariantsByIDs(ctx context.Context, ids []string) ([]magento.Product, error)
}

type IdentityKind int

const (
	// NewProduct 目标目录里没有对应的商品或变体
	NewProduct IdentityKind = iota
	// ExistingProduct 按 magento_id 找到了商品
	ExistingProduct
	// OrphanVariant 没有商品，但 SKU 命中了某个已有变体
	OrphanVariant
)

func (k IdentityKind) String() string {
	switch k {
	case ExistingProduct:
		return "existing-product"
	case OrphanVariant:
		return "orphan-variant"
	default:
		return "new-product"
	}
}

// Identity 身份识别的结果，Product 和 Variant 只在对应的 Kind 下有值
type Identity struct {
	Kind    IdentityKind
	Product *models.Product
	Variant *models.ProductVariant
}
