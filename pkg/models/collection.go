package models

import "time"

const TableNameCollection = "product_collection"

// Collection 商品集合，对应 Magento 的一个分类
type Collection struct {
	ID        string    `json:"id" gorm:"column:id;primaryKey"`
	Title     string    `json:"title" gorm:"column:title"`                        // 集合标题
	Handle    string    `json:"handle" gorm:"column:handle;uniqueIndex;size:255"` // 由 url_key 派生
	Metadata  Metadata  `json:"metadata" gorm:"column:metadata;serializer:json;type:text"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updated_at"`
}

func (*Collection) TableName() string {
	return TableNameCollection
}

// CollectionUpdate 只包含需要写入的字段，nil 表示不变
type CollectionUpdate struct {
	Title  *string
	Handle *string
}

func (u CollectionUpdate) IsEmpty() bool {
	return u.Title == nil && u.Handle == nil
}
