package catalog

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"magento-importer/pkg/models"
)

// materializeValues 让选项的值列表和变体引用保持一致：没有的值追加，
// 编码相同但显示值变了的就地改名；返回被修改过的选项下标
func materializeValues(options []models.ProductOption, refs []models.VariantOptionValue) ([]int, error) {
	changed := make([]int, 0)
	for _, ref := range refs {
		_, idx, ok := lo.FindIndexOf(options, func(o models.ProductOption) bool { return o.ID == ref.OptionID })
		if !ok {
			return nil, errors.Errorf("变体引用了商品上不存在的选项 %s", ref.OptionID)
		}
		opt := &options[idx]
		_, at, exists := lo.FindIndexOf(opt.Values, func(v models.OptionValue) bool {
			if ref.Code != "" && v.Code() != "" {
				return v.Code() == ref.Code
			}
			return v.Value == ref.Value
		})
		switch {
		case exists && opt.Values[at].Value == ref.Value:
			continue
		case exists:
			opt.Values[at].Value = ref.Value
		default:
			val := models.OptionValue{Value: ref.Value}
			if ref.Code != "" {
				val.Metadata = models.Metadata{models.MetadataValueCode: ref.Code}
			}
			opt.Values = append(opt.Values, val)
		}
		if !lo.Contains(changed, idx) {
			changed = append(changed, idx)
		}
	}
	return changed, nil
}

// stripOption 删除变体上对某个选项的引用，返回是否有改动
func stripOption(v *models.ProductVariant, optionID string) bool {
	kept := lo.Reject(v.Options, func(o models.VariantOptionValue, _ int) bool {
		return o.OptionID == optionID
	})
	if len(kept) == len(v.Options) {
		return false
	}
	v.Options = kept
	return true
}

func cloneOption(o models.ProductOption) models.ProductOption {
	out := o
	out.Metadata = o.Metadata.Clone()
	out.Values = lo.Map(o.Values, func(v models.OptionValue, _ int) models.OptionValue {
		return models.OptionValue{Value: v.Value, Metadata: v.Metadata.Clone()}
	})
	return out
}

func cloneVariant(v models.ProductVariant) models.ProductVariant {
	out := v
	out.Metadata = v.Metadata.Clone()
	out.Prices = append([]models.MoneyAmount(nil), v.Prices...)
	out.Options = append([]models.VariantOptionValue(nil), v.Options...)
	return out
}

func cloneProduct(p models.Product) models.Product {
	out := p
	out.Metadata = p.Metadata.Clone()
	out.Images = append([]string(nil), p.Images...)
	out.Options = lo.Map(p.Options, func(o models.ProductOption, _ int) models.ProductOption { return cloneOption(o) })
	out.Variants = lo.Map(p.Variants, func(v models.ProductVariant, _ int) models.ProductVariant { return cloneVariant(v) })
	return out
}

func cloneCollection(c models.Collection) models.Collection {
	out := c
	out.Metadata = c.Metadata.Clone()
	return out
}
