package models

import "time"

const TableNameProductVariant = "product_variant"

// ProductVariant 可购买的变体，SKU 全目录唯一（由存储层保证）
type ProductVariant struct {
	ID                string               `json:"id" gorm:"column:id;primaryKey"`
	ProductID         string               `json:"productId" gorm:"column:product_id;index;size:64"`
	Title             string               `json:"title" gorm:"column:title"`
	SKU               string               `json:"sku" gorm:"column:sku;uniqueIndex;size:128"`
	Position          int                  `json:"position" gorm:"column:position"`
	Prices            []MoneyAmount        `json:"prices" gorm:"column:prices;serializer:json;type:text"`
	InventoryQuantity int                  `json:"inventoryQuantity" gorm:"column:inventory_quantity"`
	AllowBackorder    bool                 `json:"allowBackorder" gorm:"column:allow_backorder"`
	ManageInventory   bool                 `json:"manageInventory" gorm:"column:manage_inventory"`
	Weight            float64              `json:"weight" gorm:"column:weight"`
	Options           []VariantOptionValue `json:"options" gorm:"column:option_values;serializer:json;type:text"`
	Metadata          Metadata             `json:"metadata" gorm:"column:metadata;serializer:json;type:text"`
	CreatedAt         time.Time            `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt         time.Time            `json:"updatedAt" gorm:"column:updated_at"`
}

func (*ProductVariant) TableName() string {
	return TableNameProductVariant
}

// MoneyAmount 单一币种价格，Amount 为最小货币单位（分）
type MoneyAmount struct {
	CurrencyCode string `json:"currencyCode"`
	Amount       int64  `json:"amount"`
}

// VariantOptionValue 变体在某个选项上的取值
type VariantOptionValue struct {
	OptionID string `json:"optionId"`
	Value    string `json:"value"`
	Code     string `json:"code,omitempty"` // magento 选项编码，写入时用来补全选项值
}

// VariantUpdate 变体差异字段，nil 表示不写
type VariantUpdate struct {
	Title             *string
	SKU               *string
	Prices            []MoneyAmount
	InventoryQuantity *int
	AllowBackorder    *bool
	ManageInventory   *bool
	Weight            *float64
	Options           []VariantOptionValue
}

func (u VariantUpdate) IsEmpty() bool {
	return u.Title == nil && u.SKU == nil && u.Prices == nil && u.InventoryQuantity == nil &&
		u.AllowBackorder == nil && u.ManageInventory == nil && u.Weight == nil && u.Options == nil
}
