package models

import "time"

const (
	TableNameStore           = "store"
	TableNameShippingProfile = "shipping_profile"
)

// Store 目标店铺，全局只有一条记录
type Store struct {
	ID                  string    `json:"id" gorm:"column:id;primaryKey"`
	Name                string    `json:"name" gorm:"column:name"`
	DefaultCurrencyCode string    `json:"defaultCurrencyCode" gorm:"column:default_currency_code;size:8"`
	Currencies          []string  `json:"currencies" gorm:"column:currencies;serializer:json;type:text"`
	Metadata            Metadata  `json:"metadata" gorm:"column:metadata;serializer:json;type:text"`
	CreatedAt           time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt           time.Time `json:"updatedAt" gorm:"column:updated_at"`
}

func (*Store) TableName() string {
	return TableNameStore
}

// ShippingProfile 配送方案，新建商品默认挂在 type=default 的方案上
type ShippingProfile struct {
	ID   string `json:"id" gorm:"column:id;primaryKey"`
	Name string `json:"name" gorm:"column:name"`
	Type string `json:"type" gorm:"column:type;size:16;index"`
}

func (*ShippingProfile) TableName() string {
	return TableNameShippingProfile
}

// CatalogTables 自动迁移用的全部表
func CatalogTables() []any {
	return []any{
		&Store{},
		&ShippingProfile{},
		&Collection{},
		&Product{},
		&ProductOption{},
		&ProductVariant{},
	}
}
