package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"magento-importer/pkg/models"
)

// GormStore 基于 gorm 的目标目录存储
// 打开连接时需要 TranslateError，唯一约束冲突才能映射成 ErrConflict
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction 在一个数据库事务里执行 fn，fn 返回错误时整体回滚
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(ErrConflict, err.Error())
	}
	return err
}

func (s *GormStore) RetrieveStore(ctx context.Context) (*models.Store, error) {
	var store models.Store
	if err := s.db.WithContext(ctx).Order("created_at").First(&store).Error; err != nil {
		return nil, translate(err)
	}
	return &store, nil
}

func (s *GormStore) UpdateStoreMetadata(ctx context.Context, key, value string) error {
	store, err := s.RetrieveStore(ctx)
	if err != nil {
		return err
	}
	md := store.Metadata.Clone()
	if md == nil {
		md = models.Metadata{}
	}
	md[key] = value
	err = s.db.WithContext(ctx).Model(&models.Store{ID: store.ID}).
		Select("metadata").Updates(&models.Store{Metadata: md}).Error
	return translate(err)
}

func (s *GormStore) DefaultShippingProfile(ctx context.Context) (string, error) {
	var profile models.ShippingProfile
	err := s.db.WithContext(ctx).Where("type = ?", models.DefaultProfileType).First(&profile).Error
	if err != nil {
		return "", translate(err)
	}
	return profile.ID, nil
}

func (s *GormStore) CollectionByHandle(ctx context.Context, handle string) (*models.Collection, error) {
	var c models.Collection
	if err := s.db.WithContext(ctx).Where("handle = ?", handle).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// CollectionByExternalID metadata 是 json 文本列，各方言的 json 查询不一致，这里在内存里过滤
func (s *GormStore) CollectionByExternalID(ctx context.Context, externalID string) (*models.Collection, error) {
	all, err := s.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := lo.Find(all, func(c models.Collection) bool { return c.Metadata.ExternalID() == externalID })
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *GormStore) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var list []models.Collection
	if err := s.db.WithContext(ctx).Order("created_at").Find(&list).Error; err != nil {
		return nil, translate(err)
	}
	return list, nil
}

func (s *GormStore) CreateCollection(ctx context.Context, c *models.Collection) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) UpdateCollection(ctx context.Context, id string, upd models.CollectionUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	var c models.Collection
	cols := make([]string, 0, 2)
	if upd.Title != nil {
		c.Title = *upd.Title
		cols = append(cols, "title")
	}
	if upd.Handle != nil {
		c.Handle = *upd.Handle
		cols = append(cols, "handle")
	}
	cols = append(cols, "updated_at")
	c.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Model(&models.Collection{ID: id}).Select(cols).Updates(&c).Error
	return translate(err)
}

func (s *GormStore) loadProduct(ctx context.Context, query *gorm.DB) (*models.Product, error) {
	var p models.Product
	err := query.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) ProductByExternalID(ctx context.Context, externalID string) (*models.Product, error) {
	return s.loadProduct(ctx, s.db.Where("external_id = ?", externalID))
}

func (s *GormStore) RetrieveProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.loadProduct(ctx, s.db.Where("id = ?", id))
}

func (s *GormStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.Options {
		opt := &p.Options[i]
		if opt.ID == "" {
			opt.ID = uuid.NewString()
		}
		opt.ProductID = p.ID
		opt.Position = i
		opt.Values = nil
	}
	variants := p.Variants
	p.Variants = nil
	err := s.db.WithContext(ctx).Omit("Variants").Create(p).Error
	if err != nil {
		return translate(err)
	}
	for i := range variants {
		if err = s.CreateVariant(ctx, p.ID, &variants[i]); err != nil {
			return err
		}
	}
	p.Variants = variants
	return nil
}

func (s *GormStore) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	var p models.Product
	cols := make([]string, 0, 8)
	if upd.Title != nil {
		p.Title = *upd.Title
		cols = append(cols, "title")
	}
	if upd.Handle != nil {
		p.Handle = *upd.Handle
		cols = append(cols, "handle")
	}
	if upd.Description != nil {
		p.Description = *upd.Description
		cols = append(cols, "description")
	}
	if upd.Status != nil {
		p.Status = *upd.Status
		cols = append(cols, "status")
	}
	if upd.CollectionID != nil {
		p.CollectionID = *upd.CollectionID
		cols = append(cols, "collection_id")
	}
	if upd.Thumbnail != nil {
		p.Thumbnail = *upd.Thumbnail
		cols = append(cols, "thumbnail")
	}
	if upd.Images != nil {
		p.Images = upd.Images
		cols = append(cols, "images")
	}
	p.UpdatedAt = time.Now()
	cols = append(cols, "updated_at")
	err := s.db.WithContext(ctx).Model(&models.Product{ID: id}).Select(cols).Omit(clause.Associations).Updates(&p).Error
	return translate(err)
}

func (s *GormStore) productOptions(ctx context.Context, productID string) ([]models.ProductOption, error) {
	var opts []models.ProductOption
	err := s.db.WithContext(ctx).Where("product_id = ?", productID).Order("position").Find(&opts).Error
	return opts, translate(err)
}

func (s *GormStore) AddOption(ctx context.Context, productID string, opt *models.ProductOption) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return translate(err)
	}
	if count == 0 {
		return ErrNotFound
	}
	existing, err := s.productOptions(ctx, productID)
	if err != nil {
		return err
	}
	if opt.ID == "" {
		opt.ID = uuid.NewString()
	}
	opt.ProductID = productID
	opt.Position = len(existing)
	opt.Values = nil
	return translate(s.db.WithContext(ctx).Create(opt).Error)
}

func (s *GormStore) UpdateOption(ctx context.Context, productID, optionID string, upd models.OptionUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	var opt models.ProductOption
	cols := make([]string, 0, 2)
	if upd.Title != nil {
		opt.Title = *upd.Title
		cols = append(cols, "title")
	}
	if upd.Metadata != nil {
		opt.Metadata = upd.Metadata
		cols = append(cols, "metadata")
	}
	res := s.db.WithContext(ctx).Model(&models.ProductOption{}).
		Where("id = ? AND product_id = ?", optionID, productID).Select(cols).Updates(&opt)
	return translate(res.Error)
}

func (s *GormStore) DeleteOption(ctx context.Context, productID, optionID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND product_id = ?", optionID, productID).Delete(&models.ProductOption{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	var variants []models.ProductVariant
	if err := s.db.WithContext(ctx).Where("product_id = ?", productID).Find(&variants).Error; err != nil {
		return translate(err)
	}
	for i := range variants {
		v := &variants[i]
		if !stripOption(v, optionID) {
			continue
		}
		err := s.db.WithContext(ctx).Model(&models.ProductVariant{ID: v.ID}).
			Select("option_values").Updates(&models.ProductVariant{Options: v.Options}).Error
		if err != nil {
			return translate(err)
		}
	}
	return nil
}

func (s *GormStore) VariantBySKU(ctx context.Context, sku string) (*models.ProductVariant, error) {
	var v models.ProductVariant
	if err := s.db.WithContext(ctx).Where("sku = ?", sku).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// syncOptionValues 把变体引用的选项值补到选项上
func (s *GormStore) syncOptionValues(ctx context.Context, productID string, refs []models.VariantOptionValue) error {
	if len(refs) == 0 {
		return nil
	}
	opts, err := s.productOptions(ctx, productID)
	if err != nil {
		return err
	}
	changed, err := materializeValues(opts, refs)
	if err != nil {
		return err
	}
	for _, idx := range changed {
		err = s.db.WithContext(ctx).Model(&models.ProductOption{ID: opts[idx].ID}).
			Select("option_values").Updates(&models.ProductOption{Values: opts[idx].Values}).Error
		if err != nil {
			return translate(err)
		}
	}
	return nil
}

func (s *GormStore) CreateVariant(ctx context.Context, productID string, v *models.ProductVariant) error {
	if err := s.syncOptionValues(ctx, productID, v.Options); err != nil {
		return err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ProductVariant{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return translate(err)
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.ProductID = productID
	v.Position = int(count)
	return translate(s.db.WithContext(ctx).Create(v).Error)
}

func (s *GormStore) UpdateVariant(ctx context.Context, id string, upd models.VariantUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	var current models.ProductVariant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&current).Error; err != nil {
		return translate(err)
	}
	var v models.ProductVariant
	cols := make([]string, 0, 9)
	if upd.Title != nil {
		v.Title = *upd.Title
		cols = append(cols, "title")
	}
	if upd.SKU != nil {
		v.SKU = *upd.SKU
		cols = append(cols, "sku")
	}
	if upd.Prices != nil {
		v.Prices = upd.Prices
		cols = append(cols, "prices")
	}
	if upd.InventoryQuantity != nil {
		v.InventoryQuantity = *upd.InventoryQuantity
		cols = append(cols, "inventory_quantity")
	}
	if upd.AllowBackorder != nil {
		v.AllowBackorder = *upd.AllowBackorder
		cols = append(cols, "allow_backorder")
	}
	if upd.ManageInventory != nil {
		v.ManageInventory = *upd.ManageInventory
		cols = append(cols, "manage_inventory")
	}
	if upd.Weight != nil {
		v.Weight = *upd.Weight
		cols = append(cols, "weight")
	}
	if upd.Options != nil {
		if err := s.syncOptionValues(ctx, current.ProductID, upd.Options); err != nil {
			return err
		}
		v.Options = upd.Options
		cols = append(cols, "option_values")
	}
	v.UpdatedAt = time.Now()
	cols = append(cols, "updated_at")
	err := s.db.WithContext(ctx).Model(&models.ProductVariant{ID: id}).Select(cols).Updates(&v).Error
	return translate(err)
}

func (s *GormStore) DeleteVariant(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductVariant{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
