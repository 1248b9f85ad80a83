package catalog

import (
	"context"

	"github.com/pkg/errors"

	"magento-importer/pkg/models"
)

var (
	// ErrNotFound 身份查找未命中，调用方据此走创建分支
	ErrNotFound = errors.New("catalog: record not found")
	// ErrConflict 目标库唯一约束冲突（重复 SKU / handle）
	ErrConflict = errors.New("catalog: unique constraint conflict")
)

// Tx 目标目录的一次工作单元，所有读写都在同一事务里执行
type Tx interface {
	RetrieveStore(ctx context.Context) (*models.Store, error)
	UpdateStoreMetadata(ctx context.Context, key, value string) error
	DefaultShippingProfile(ctx context.Context) (string, error)

	CollectionByHandle(ctx context.Context, handle string) (*models.Collection, error)
	CollectionByExternalID(ctx context.Context, externalID string) (*models.Collection, error)
	ListCollections(ctx context.Context) ([]models.Collection, error)
	CreateCollection(ctx context.Context, c *models.Collection) error
	UpdateCollection(ctx context.Context, id string, upd models.CollectionUpdate) error

	// ProductByExternalID 返回带选项和变体的商品
	ProductByExternalID(ctx context.Context, externalID string) (*models.Product, error)
	RetrieveProduct(ctx context.Context, id string) (*models.Product, error)
	// CreateProduct 写入商品及其选项，选项值由变体写入时补全
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) error

	AddOption(ctx context.Context, productID string, opt *models.ProductOption) error
	UpdateOption(ctx context.Context, productID, optionID string, upd models.OptionUpdate) error
	// DeleteOption 同时清掉该商品所有变体上对这个选项的引用
	DeleteOption(ctx context.Context, productID, optionID string) error

	VariantBySKU(ctx context.Context, sku string) (*models.ProductVariant, error)
	CreateVariant(ctx context.Context, productID string, v *models.ProductVariant) error
	UpdateVariant(ctx context.Context, id string, upd models.VariantUpdate) error
	DeleteVariant(ctx context.Context, id string) error
}

// Store 目标目录存储，Transaction 内任何错误都会回滚整个单元
type Store interface {
	Tx
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// IsNotFound 判断是否为查找未命中
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict 判断是否为唯一约束冲突
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
