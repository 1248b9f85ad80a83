package models

import "time"

const (
	TableNameProduct       = "product"
	TableNameProductOption = "product_option"
)

type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPublished ProductStatus = "published"
)

// Product 目标目录中的商品
type Product struct {
	ID           string           `json:"id" gorm:"column:id;primaryKey"`
	Title        string           `json:"title" gorm:"column:title"`
	Handle       string           `json:"handle" gorm:"column:handle;index;size:255"`
	Description  string           `json:"description" gorm:"column:description;type:text"` // 已去除 html 标签
	ExternalID   string           `json:"externalId" gorm:"column:external_id;index;size:64"`
	Type         string           `json:"type" gorm:"column:type;size:32"`
	Status       ProductStatus    `json:"status" gorm:"column:status;size:16"`
	ProfileID    string           `json:"profileId" gorm:"column:profile_id;size:64"`       // 配送方案
	CollectionID string           `json:"collectionId" gorm:"column:collection_id;size:64"` // 空串表示没有集合
	Thumbnail    string           `json:"thumbnail" gorm:"column:thumbnail;type:text"`
	Images       []string         `json:"images" gorm:"column:images;serializer:json;type:text"`
	Options      []ProductOption  `json:"options" gorm:"foreignKey:ProductID"`
	Variants     []ProductVariant `json:"variants" gorm:"foreignKey:ProductID"`
	Metadata     Metadata         `json:"metadata" gorm:"column:metadata;serializer:json;type:text"`
	CreatedAt    time.Time        `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt    time.Time        `json:"updatedAt" gorm:"column:updated_at"`
}

func (*Product) TableName() string {
	return TableNameProduct
}

// ProductOption 可配置商品的选项，例如颜色、尺码
type ProductOption struct {
	ID        string        `json:"id" gorm:"column:id;primaryKey"`
	ProductID string        `json:"productId" gorm:"column:product_id;index;size:64"`
	Title     string        `json:"title" gorm:"column:title"`
	Position  int           `json:"position" gorm:"column:position"`
	Values    []OptionValue `json:"values" gorm:"column:option_values;serializer:json;type:text"`
	Metadata  Metadata      `json:"metadata" gorm:"column:metadata;serializer:json;type:text"`
}

func (*ProductOption) TableName() string {
	return TableNameProductOption
}

// OptionValue 选项值，Metadata 中的 magento_value 用于匹配变体属性
type OptionValue struct {
	Value    string   `json:"value"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Code 返回选项值的 Magento 原始编码
func (v OptionValue) Code() string {
	if v.Metadata == nil {
		return ""
	}
	return v.Metadata[MetadataValueCode]
}

// ProductUpdate 商品差异字段，nil 表示不写
type ProductUpdate struct {
	Title        *string
	Handle       *string
	Description  *string
	Status       *ProductStatus
	CollectionID *string
	Thumbnail    *string
	Images       []string // nil 表示不变
}

func (u ProductUpdate) IsEmpty() bool {
	return u.Title == nil && u.Handle == nil && u.Description == nil && u.Status == nil &&
		u.CollectionID == nil && u.Thumbnail == nil && u.Images == nil
}

type OptionUpdate struct {
	Title    *string
	Metadata Metadata
}

func (u OptionUpdate) IsEmpty() bool {
	return u.Title == nil && u.Metadata == nil
}
