package reconcile

import (
	"github.com/samber/lo"

	"magento-importer/pkg/models"
)

// diffVariant 逐字段比较，价格和选项按集合比较
func diffVariant(existing *models.ProductVariant, next *models.ProductVariant) models.VariantUpdate {
	var upd models.VariantUpdate
	if existing.Title != next.Title {
		upd.Title = &next.Title
	}
	if existing.SKU != next.SKU {
		upd.SKU = &next.SKU
	}
	if !samePrices(existing.Prices, next.Prices) {
		upd.Prices = next.Prices
	}
	if existing.InventoryQuantity != next.InventoryQuantity {
		upd.InventoryQuantity = &next.InventoryQuantity
	}
	if existing.AllowBackorder != next.AllowBackorder {
		upd.AllowBackorder = &next.AllowBackorder
	}
	if existing.ManageInventory != next.ManageInventory {
		upd.ManageInventory = &next.ManageInventory
	}
	if existing.Weight != next.Weight {
		upd.Weight = &next.Weight
	}
	if !sameOptionRefs(existing.Options, next.Options) {
		upd.Options = next.Options
		if upd.Options == nil {
			upd.Options = []models.VariantOptionValue{}
		}
	}
	return upd
}

func samePrices(a, b []models.MoneyAmount) bool {
	if len(a) != len(b) {
		return false
	}
	index := lo.SliceToMap(a, func(m models.MoneyAmount) (string, int64) { return m.CurrencyCode, m.Amount })
	return lo.EveryBy(b, func(m models.MoneyAmount) bool {
		amount, ok := index[m.CurrencyCode]
		return ok && amount == m.Amount
	})
}

func sameOptionRefs(a, b []models.VariantOptionValue) bool {
	if len(a) != len(b) {
		return false
	}
	index := lo.SliceToMap(a, func(o models.VariantOptionValue) (string, string) { return o.OptionID, o.Value })
	return lo.EveryBy(b, func(o models.VariantOptionValue) bool {
		value, ok := index[o.OptionID]
		return ok && value == o.Value
	})
}

// sameSet 忽略顺序和重复
func sameSet(a, b []string) bool {
	as, bs := lo.Uniq(a), lo.Uniq(b)
	return len(as) == len(bs) && lo.Every(as, bs)
}

// diffProduct 顶层字段差异，集合和图片由调用方单独处理
func diffProduct(existing *models.Product, next *models.Product) models.ProductUpdate {
	var upd models.ProductUpdate
	if existing.Title != next.Title {
		upd.Title = &next.Title
	}
	if existing.Handle != next.Handle {
		upd.Handle = &next.Handle
	}
	if existing.Description != next.Description {
		upd.Description = &next.Description
	}
	if existing.Status != next.Status {
		upd.Status = &next.Status
	}
	if existing.Thumbnail != next.Thumbnail {
		upd.Thumbnail = &next.Thumbnail
	}
	return upd
}
