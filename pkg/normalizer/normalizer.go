// Package normalizer 把 magento 实体映射成目标目录的字段，纯函数，不访问网络和存储
package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"magento-importer/pkg/magento"
	"magento-importer/pkg/models"
)

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// StripHTML 去掉所有 <...> 标签
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return htmlTag.ReplaceAllString(s, "")
}

// MaxPriceAmount 价格换算成分后的上限，超出的按上限截断
const MaxPriceAmount = math.MaxInt64

// ParsePrice 按十进制表示四舍五入（half-up）到两位小数，再换算成分
func ParsePrice(price float64) int64 {
	if math.IsNaN(price) {
		zap.S().Warnf("价格 %v 无法解析，按 0 处理", price)
		return 0
	}
	raw, sign := price, int64(1)
	if price < 0 {
		sign, price = -1, -price
	}
	whole, frac, _ := strings.Cut(strconv.FormatFloat(price, 'f', -1, 64), ".")
	frac += "000"
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > (MaxPriceAmount-100)/100 {
		zap.S().Warnf("价格 %v 超出范围，按上限 %d 处理", raw, MaxPriceAmount)
		return sign * MaxPriceAmount
	}
	cents, _ := strconv.ParseInt(frac[:2], 10, 64)
	amount := units*100 + cents
	if frac[2] >= '5' {
		amount++
	}
	return sign * amount
}

// CategoryFields 分类映射结果
type CategoryFields struct {
	Title      string
	Handle     string
	ExternalID string
}

func Category(src magento.Category) CategoryFields {
	return CategoryFields{
		Title:      src.Name,
		Handle:     src.CustomAttributes.Get(magento.AttributeURLKey),
		ExternalID: src.ID.String(),
	}
}

// Product 映射商品的顶层字段，选项、变体和集合由调用方补充
func Product(src magento.Product) *models.Product {
	status := models.ProductStatusDraft
	if src.Status == magento.StatusEnabled {
		status = models.ProductStatusPublished
	}
	images := lo.FilterMap(src.MediaGalleryEntries, func(e magento.MediaEntry, _ int) (string, bool) {
		return e.URL, e.URL != ""
	})
	thumbnail := ""
	if entry, ok := lo.Find(src.MediaGalleryEntries, func(e magento.MediaEntry) bool {
		return lo.Contains(e.Types, magento.MediaTypeThumbnail)
	}); ok {
		thumbnail = entry.URL
	}
	return &models.Product{
		Title:       src.Name,
		Handle:      src.CustomAttributes.Get(magento.AttributeURLKey),
		Description: StripHTML(src.CustomAttributes.Get(magento.AttributeDescription)),
		ExternalID:  src.ID.String(),
		Type:        string(src.TypeID),
		Status:      status,
		Thumbnail:   thumbnail,
		Images:      images,
		Metadata:    models.ExternalIDMetadata(src.ID.String()),
	}
}

// Option 选项值的 metadata.magento_value 记录 magento 编码，变体靠它匹配
func Option(src magento.ConfigurableOption) models.ProductOption {
	return models.ProductOption{
		Title:    src.Label,
		Values:   OptionValues(src.Values),
		Metadata: models.ExternalIDMetadata(src.ID.String()),
	}
}

func OptionValues(values []magento.OptionValue) []models.OptionValue {
	return lo.Map(values, func(v magento.OptionValue, _ int) models.OptionValue {
		return models.OptionValue{
			Value:    v.Label,
			Metadata: models.Metadata{models.MetadataValueCode: v.Value.String()},
		}
	})
}

// Variant 把 simple 商品映射成变体
// options 需要已经带上 id；变体在某个选项上解析不出值时，该选项不出现在结果里
func Variant(src magento.Product, currencies []string, options []models.ProductOption) *models.ProductVariant {
	amount := ParsePrice(src.Price)
	v := &models.ProductVariant{
		Title: src.Name,
		SKU:   src.SKU,
		Prices: lo.Map(currencies, func(code string, _ int) models.MoneyAmount {
			return models.MoneyAmount{CurrencyCode: code, Amount: amount}
		}),
		Weight:   src.Weight,
		Options:  make([]models.VariantOptionValue, 0, len(options)),
		Metadata: models.ExternalIDMetadata(src.ID.String()),
	}
	if src.Stock != nil {
		v.InventoryQuantity = cast.ToInt(src.Stock.Qty)
		v.AllowBackorder = src.Stock.Backorders > 0
		v.ManageInventory = src.Stock.ManageStock
	}
	for _, opt := range options {
		if ref, ok := resolveOption(src, opt); ok {
			v.Options = append(v.Options, ref)
		}
	}
	return v
}

func resolveOption(src magento.Product, opt models.ProductOption) (models.VariantOptionValue, bool) {
	attr, ok := src.CustomAttributes.Find(strings.TrimSpace(opt.Title))
	if !ok {
		return models.VariantOptionValue{}, false
	}
	code := cast.ToString(attr.Value)
	if code == "" {
		return models.VariantOptionValue{}, false
	}
	value, ok := lo.Find(opt.Values, func(v models.OptionValue) bool { return v.Code() == code })
	if !ok {
		return models.VariantOptionValue{}, false
	}
	return models.VariantOptionValue{OptionID: opt.ID, Value: value.Value, Code: code}, true
}
