package magento

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

type ProductType string

const (
	ProductTypeConfigurable ProductType = "configurable"
	ProductTypeSimple       ProductType = "simple"
)

const (
	AttributeURLKey      = "url_key"
	AttributeDescription = "description"
	StatusEnabled        = 1
	MediaTypeThumbnail   = "thumbnail"
)

// ErrPrecondition 调用方没有先设置店铺/币种上下文
var ErrPrecondition = errors.New("magento: default store id and currency code must be set first")

// GatewayError 所有传输层错误统一成这一种，Message 保留上游返回的信息
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("magento %s: %d %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("magento %s: %s", e.Op, e.Message)
}

func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// errorBody magento 的错误响应，message 里的 %1 %2 由 parameters 填充
type errorBody struct {
	Message    string          `json:"message"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

func (b errorBody) render() string {
	msg := b.Message
	if len(b.Parameters) == 0 {
		return msg
	}
	var list []any
	if err := json.Unmarshal(b.Parameters, &list); err == nil {
		for i, p := range list {
			msg = strings.ReplaceAll(msg, fmt.Sprintf("%%%d", i+1), cast.ToString(p))
		}
		return msg
	}
	var named map[string]any
	if err := json.Unmarshal(b.Parameters, &named); err == nil {
		for k, p := range named {
			msg = strings.ReplaceAll(msg, "%"+k, cast.ToString(p))
		}
	}
	return msg
}

// ID magento 接口里的 id 有时是数字有时是字符串，统一成字符串
type ID string

func (i *ID) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*i = ""
		return nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return errors.Wrapf(err, "无法解析 id %s", string(b))
	}
	*i = ID(s)
	return nil
}

func (i ID) String() string {
	return string(i)
}

type CustomAttribute struct {
	AttributeCode string `json:"attribute_code"`
	Value         any    `json:"value"`
}

type CustomAttributes []CustomAttribute

// Get 按编码取属性值，不存在或不是标量时返回空串
func (a CustomAttributes) Get(code string) string {
	for _, attr := range a {
		if attr.AttributeCode == code {
			return cast.ToString(attr.Value)
		}
	}
	return ""
}

// Find 大小写不敏感地查找属性
func (a CustomAttributes) Find(code string) (CustomAttribute, bool) {
	for _, attr := range a {
		if strings.EqualFold(attr.AttributeCode, code) {
			return attr, true
		}
	}
	return CustomAttribute{}, false
}

type MediaEntry struct {
	ID        ID       `json:"id"`
	MediaType string   `json:"media_type"`
	Label     string   `json:"label"`
	Position  int      `json:"position"`
	Disabled  bool     `json:"disabled"`
	Types     []string `json:"types"`
	File      string   `json:"file"`
	URL       string   `json:"url,omitempty"` // 网关补全的完整地址
}

type CategoryLink struct {
	Position   int `json:"position"`
	CategoryID ID  `json:"category_id"`
}

// OptionValue 属性选项，Value 是 magento 内部编码
type OptionValue struct {
	Label string `json:"label"`
	Value ID     `json:"value"`
}

type ValueIndex struct {
	ValueIndex ID `json:"value_index"`
}

type ConfigurableOption struct {
	ID          ID            `json:"id"`
	AttributeID ID            `json:"attribute_id"`
	Label       string        `json:"label"`
	Position    int           `json:"position"`
	Indexes     []ValueIndex  `json:"values"`
	ProductID   ID            `json:"product_id"`
	Values      []OptionValue `json:"-"` // 网关按 attribute_id 从属性目录补全
}

type ExtensionAttributes struct {
	CategoryLinks              []CategoryLink       `json:"category_links,omitempty"`
	ConfigurableProductOptions []ConfigurableOption `json:"configurable_product_options,omitempty"`
	ConfigurableProductLinks   []ID                 `json:"configurable_product_links,omitempty"`
}

type StockItem struct {
	ItemID      ID      `json:"item_id"`
	ProductID   ID      `json:"product_id"`
	Qty         float64 `json:"qty"`
	IsInStock   bool    `json:"is_in_stock"`
	ManageStock bool    `json:"manage_stock"`
	Backorders  int     `json:"backorders"`
}

type Product struct {
	ID                  ID                  `json:"id"`
	SKU                 string              `json:"sku"`
	Name                string              `json:"name"`
	AttributeSetID      int                 `json:"attribute_set_id"`
	Price               float64             `json:"price"`
	Status              int                 `json:"status"`
	Visibility          int                 `json:"visibility"`
	TypeID              ProductType         `json:"type_id"`
	Weight              float64             `json:"weight"`
	CreatedAt           string              `json:"created_at"`
	UpdatedAt           string              `json:"updated_at"`
	ExtensionAttributes ExtensionAttributes `json:"extension_attributes"`
	MediaGalleryEntries []MediaEntry        `json:"media_gallery_entries"`
	CustomAttributes    CustomAttributes    `json:"custom_attributes"`
	Stock               *StockItem          `json:"-"` // simple 类型由网关补全
	Images              []string            `json:"-"` // products-render-info 补全
}

func (p *Product) IsConfigurable() bool {
	return p.TypeID == ProductTypeConfigurable
}

type Category struct {
	ID               ID               `json:"id"`
	ParentID         ID               `json:"parent_id"`
	Name             string           `json:"name"`
	IsActive         bool             `json:"is_active"`
	Position         int              `json:"position"`
	Level            int              `json:"level"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	CustomAttributes CustomAttributes `json:"custom_attributes"`
}

// Attribute 属性目录中的一项，用来解码可配置选项的取值
type Attribute struct {
	AttributeID   ID            `json:"attribute_id"`
	AttributeCode string        `json:"attribute_code"`
	DefaultLabel  string        `json:"default_frontend_label"`
	Options       []OptionValue `json:"options"`
}

type StoreConfig struct {
	ID                     ID     `json:"id"`
	Code                   string `json:"code"`
	WebsiteID              ID     `json:"website_id"`
	BaseCurrencyCode       string `json:"base_currency_code"`
	DefaultDisplayCurrency string `json:"default_display_currency_code"`
	BaseURL                string `json:"base_url"`
	BaseMediaURL           string `json:"base_media_url"`
}

type listResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
}

type renderImage struct {
	URL  string `json:"url"`
	Code string `json:"code"`
}

type renderInfo struct {
	ID     ID            `json:"id"`
	Images []renderImage `json:"images"`
}
