package magento

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"magento-importer/pkg/util"
)

const (
	excludedCategories = "Root Catalog,Default Category"
	stockConcurrency   = 4
	sourceTimeLayout   = "2006-01-02 15:04:05"
)

// Client magento REST 客户端，请求使用 OAuth 1.0a HMAC-SHA256 签名
type Client struct {
	cfg        *Config
	baseURL    string
	httpClient *http.Client

	prefixMu    sync.Mutex
	imagePrefix string

	storeMu      sync.RWMutex
	storeID      string
	currencyCode string
}

func NewClient(cfg *Config) *Client {
	oc := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	oc.Signer = &oauth1.HMAC256Signer{ConsumerSecret: cfg.ConsumerSecret}
	hc := oc.Client(oauth1.NoContext, oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret))
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	hc.Timeout = time.Duration(timeout) * time.Second
	return &Client{
		cfg:         cfg,
		baseURL:     cfg.BaseURL(),
		httpClient:  hc,
		imagePrefix: cfg.ImagePrefix,
	}
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &GatewayError{Op: op, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	zap.S().Debugf("magento %s: GET %s", op, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(string(body))
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
			msg = eb.render()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if err = json.Unmarshal(body, out); err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "响应解析失败: " + err.Error()}
	}
	return nil
}

// paginate 逐页拉取直到 total_count 或遇到空页
func paginate[T any](ctx context.Context, c *Client, op, path string, criteria SearchCriteria) ([]T, error) {
	criteria.PageSize = c.cfg.PageSize
	all := make([]T, 0)
	for page := 1; ; page++ {
		criteria.CurrentPage = page
		var resp listResponse[T]
		if err := c.get(ctx, op, path, criteria.Values(), &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		if len(resp.Items) == 0 || len(all) >= resp.TotalCount || criteria.PageSize <= 0 {
			break
		}
	}
	return all, nil
}

// sourceTime 把水位转成 magento updated_at 过滤用的格式
func sourceTime(since string) string {
	if t, ok := util.ParseTime(since); ok {
		return t.UTC().Format(sourceTimeLayout)
	}
	return since
}

// FetchCategories 拉取分类，根分类和默认分类总是被排除
func (c *Client) FetchCategories(ctx context.Context, since string) ([]Category, error) {
	var criteria SearchCriteria
	criteria.AddGroup(Filter{Field: "name", Value: excludedCategories, ConditionType: ConditionNin})
	if since != "" {
		criteria.AddGroup(Filter{Field: "updated_at", Value: sourceTime(since), ConditionType: ConditionGt})
	}
	return paginate[Category](ctx, c, "fetch categories", "/categories/list", criteria)
}

// FetchProducts 拉取指定类型的商品并补全媒体地址、可配置选项取值和库存
func (c *Client) FetchProducts(ctx context.Context, typ ProductType, since string, extra ...FilterGroup) ([]Product, error) {
	var criteria SearchCriteria
	if typ != "" {
		criteria.AddGroup(Filter{Field: "type_id", Value: string(typ), ConditionType: ConditionEq})
	}
	if since != "" {
		criteria.AddGroup(Filter{Field: "updated_at", Value: sourceTime(since), ConditionType: ConditionGt})
	}
	criteria.FilterGroups = append(criteria.FilterGroups, extra...)

	products, err := paginate[Product](ctx, c, "fetch products", "/products", criteria)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return products, nil
	}

	prefix, err := c.MediaPrefix(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		for j := range products[i].MediaGalleryEntries {
			entry := &products[i].MediaGalleryEntries[j]
			entry.URL = prefix + entry.File
		}
	}

	if typ == ProductTypeConfigurable {
		attrs, err := c.FetchAttributes(ctx)
		if err != nil {
			return nil, err
		}
		for i := range products {
			opts := products[i].ExtensionAttributes.ConfigurableProductOptions
			for j := range opts {
				if attr, ok := attrs[opts[j].AttributeID]; ok {
					opts[j].Values = attr.Options
				} else {
					opts[j].Values = []OptionValue{}
				}
			}
		}
	}

	if typ == ProductTypeSimple {
		if err = c.attachStock(ctx, products); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func (c *Client) attachStock(ctx context.Context, products []Product) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stockConcurrency)
	for i := range products {
		p := &products[i]
		g.Go(func() error {
			stock, err := c.FetchStock(gctx, p.SKU)
			if err != nil {
				return err
			}
			p.Stock = stock
			return nil
		})
	}
	return g.Wait()
}

// FetchVariantsByIDs 按 entity_id 拉取 simple 商品作为变体，ids 为空时不发请求
func (c *Client) FetchVariantsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	ids = lo.Compact(lo.Uniq(ids))
	if len(ids) == 0 {
		return []Product{}, nil
	}
	return c.FetchProducts(ctx, ProductTypeSimple, "", FilterGroup{InFilter("entity_id", ids)})
}

func (c *Client) FetchStock(ctx context.Context, sku string) (*StockItem, error) {
	var stock StockItem
	if err := c.get(ctx, "fetch stock", "/stockItems/"+url.PathEscape(sku), nil, &stock); err != nil {
		return nil, err
	}
	return &stock, nil
}

// FetchAttributes 属性目录，按 attribute_id 索引，空编码的选项被丢弃
func (c *Client) FetchAttributes(ctx context.Context) (map[ID]Attribute, error) {
	attrs, err := paginate[Attribute](ctx, c, "fetch attributes", "/products/attributes", SearchCriteria{})
	if err != nil {
		return nil, err
	}
	out := make(map[ID]Attribute, len(attrs))
	for _, attr := range attrs {
		attr.Options = nonEmptyValues(attr.Options)
		out[attr.AttributeID] = attr
	}
	return out, nil
}

// FetchOptionValueSet 单个属性的全部选项值
func (c *Client) FetchOptionValueSet(ctx context.Context, attributeCode string) ([]OptionValue, error) {
	var attr Attribute
	if err := c.get(ctx, "fetch option values", "/products/attributes/"+url.PathEscape(attributeCode), nil, &attr); err != nil {
		return nil, err
	}
	return nonEmptyValues(attr.Options), nil
}

func nonEmptyValues(values []OptionValue) []OptionValue {
	return lo.Filter(values, func(v OptionValue, _ int) bool {
		return strings.TrimSpace(string(v.Value)) != ""
	})
}

// MediaPrefix 配置了 imagePrefix 直接使用，否则从 storeConfigs 探测一次
func (c *Client) MediaPrefix(ctx context.Context) (string, error) {
	c.prefixMu.Lock()
	defer c.prefixMu.Unlock()
	if c.imagePrefix != "" {
		return c.imagePrefix, nil
	}
	var configs []StoreConfig
	if err := c.get(ctx, "fetch store configs", "/store/storeConfigs", nil, &configs); err != nil {
		return "", err
	}
	if len(configs) == 0 {
		return "", &GatewayError{Op: "fetch store configs", Message: "没有返回任何店铺配置"}
	}
	store, ok := lo.Find(configs, func(s StoreConfig) bool { return s.Code == c.cfg.StoreCode })
	if !ok {
		store = configs[0]
	}
	c.imagePrefix = store.BaseMediaURL + "catalog/product"
	zap.S().Infof("magento 媒体地址前缀: %s", c.imagePrefix)
	return c.imagePrefix, nil
}

// SetStoreContext 设置渲染信息接口需要的店铺和币种
func (c *Client) SetStoreContext(storeID, currencyCode string) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	c.storeID = storeID
	c.currencyCode = currencyCode
}

// FetchProductImages 通过 products-render-info 补全商品的渲染图片
func (c *Client) FetchProductImages(ctx context.Context, products []Product) ([]Product, error) {
	c.storeMu.RLock()
	storeID, currency := c.storeID, c.currencyCode
	c.storeMu.RUnlock()
	if storeID == "" || currency == "" {
		return nil, ErrPrecondition
	}
	if len(products) == 0 {
		return products, nil
	}
	ids := lo.Map(products, func(p Product, _ int) string { return string(p.ID) })
	criteria := SearchCriteria{StoreID: storeID, CurrencyCode: currency}
	criteria.AddGroup(InFilter("entity_id", ids))
	var resp listResponse[renderInfo]
	if err := c.get(ctx, "fetch render info", "/products-render-info", criteria.Values(), &resp); err != nil {
		return nil, err
	}
	byID := lo.KeyBy(resp.Items, func(r renderInfo) ID { return r.ID })
	for i := range products {
		info, ok := byID[products[i].ID]
		if !ok {
			continue
		}
		products[i].Images = lo.Map(info.Images, func(img renderImage, _ int) string { return img.URL })
	}
	return products, nil
}
