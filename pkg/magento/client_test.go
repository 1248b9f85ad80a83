package magento

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMagento struct {
	t        *testing.T
	mu       sync.Mutex
	requests []*http.Request
	routes   map[string]http.HandlerFunc
}

func newFakeMagento(t *testing.T) (*fakeMagento, *Client) {
	f := &fakeMagento{t: t, routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r)
		h, ok := f.routes[strings.TrimPrefix(r.URL.Path, "/rest/default/V1")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Request does not match any route."}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := NewDefaultConfig()
	cfg.URL = srv.URL
	cfg.ConsumerKey, cfg.ConsumerSecret = "ck", "cs"
	cfg.AccessToken, cfg.AccessTokenSecret = "at", "ats"
	return f, NewClient(cfg)
}

func (f *fakeMagento) handle(path string, h http.HandlerFunc) {
	f.routes[path] = h
}

func (f *fakeMagento) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if strings.TrimPrefix(r.URL.Path, "/rest/default/V1") == path {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestSearchCriteriaEncoding(t *testing.T) {
	var c SearchCriteria
	c.AddGroup(Filter{Field: "type_id", Value: "simple"})
	c.AddGroup(Filter{Field: "sku", Value: "A", ConditionType: ConditionEq}, Filter{Field: "sku", Value: "B", ConditionType: ConditionEq})
	c.StoreID, c.CurrencyCode = "1", "USD"

	q := c.Values()
	assert.Equal(t, "1", q.Get("searchCriteria[currentPage]"))
	assert.Equal(t, "type_id", q.Get("searchCriteria[filterGroups][0][filters][0][field]"))
	assert.Equal(t, "eq", q.Get("searchCriteria[filterGroups][0][filters][0][condition_type]"))
	assert.Equal(t, "B", q.Get("searchCriteria[filterGroups][1][filters][1][value]"))
	assert.Equal(t, "1", q.Get("storeId"))
	assert.Equal(t, "USD", q.Get("currencyCode"))
	assert.Empty(t, q.Get("searchCriteria[pageSize]"))
}

func TestFetchCategoriesPaginatesAndFilters(t *testing.T) {
	f, client := newFakeMagento(t)
	client.cfg.PageSize = 2
	f.handle("/categories/list", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "nin", q.Get("searchCriteria[filterGroups][0][filters][0][condition_type]"))
		assert.Equal(t, "Root Catalog,Default Category", q.Get("searchCriteria[filterGroups][0][filters][0][value]"))
		assert.Equal(t, "2024-03-01 10:20:30", q.Get("searchCriteria[filterGroups][1][filters][0][value]"))
		assert.Equal(t, "gt", q.Get("searchCriteria[filterGroups][1][filters][0][condition_type]"))
		switch q.Get("searchCriteria[currentPage]") {
		case "1":
			_, _ = w.Write([]byte(`{"items":[{"id":3,"name":"Men"},{"id":"4","name":"Women"}],"total_count":3}`))
		default:
			_, _ = w.Write([]byte(`{"items":[{"id":5,"name":"Kids","custom_attributes":[{"attribute_code":"url_key","value":"kids"}]}],"total_count":3}`))
		}
	})

	cats, err := client.FetchCategories(context.Background(), "2024-03-01T10:20:30.000Z")
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, ID("3"), cats[0].ID)
	assert.Equal(t, ID("4"), cats[1].ID)
	assert.Equal(t, "kids", cats[2].CustomAttributes.Get(AttributeURLKey))
	assert.Equal(t, 2, f.count("/categories/list"))
}

func TestFetchConfigurableProducts(t *testing.T) {
	f, client := newFakeMagento(t)
	f.handle("/products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "configurable", r.URL.Query().Get("searchCriteria[filterGroups][0][filters][0][value]"))
		_, _ = w.Write([]byte(`{"items":[{"id":10,"sku":"TEE","type_id":"configurable","status":1,
			"media_gallery_entries":[{"file":"/t/e/tee.jpg","types":["image","thumbnail"]}],
			"extension_attributes":{"configurable_product_options":[{"id":7,"attribute_id":"93","label":"Color","values":[{"value_index":5}]}],
			"configurable_product_links":[11,12]}}],"total_count":1}`))
	})
	f.handle("/store/storeConfigs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"id": 0, "code": "admin", "base_media_url": "http://admin/media/"},
			{"id": 1, "code": "default", "base_media_url": "http://shop/media/"},
		})
	})
	f.handle("/products/attributes", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"attribute_id":93,"attribute_code":"color","options":[{"label":" ","value":""},{"label":"Red","value":"5"}]}],"total_count":1}`))
	})

	products, err := client.FetchProducts(context.Background(), ProductTypeConfigurable, "")
	require.NoError(t, err)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "http://shop/media/catalog/product/t/e/tee.jpg", p.MediaGalleryEntries[0].URL)
	require.Len(t, p.ExtensionAttributes.ConfigurableProductOptions, 1)
	opt := p.ExtensionAttributes.ConfigurableProductOptions[0]
	assert.Equal(t, []OptionValue{{Label: "Red", Value: "5"}}, opt.Values)
	assert.Equal(t, []ID{"11", "12"}, p.ExtensionAttributes.ConfigurableProductLinks)
	assert.Zero(t, f.count("/stockItems/TEE"))

	// 前缀只探测一次
	_, err = client.FetchProducts(context.Background(), ProductTypeConfigurable, "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("/store/storeConfigs"))
}

func TestMediaPrefixDiscoveryIsRaceSafe(t *testing.T) {
	f, client := newFakeMagento(t)
	var hits atomic.Int32
	f.handle("/store/storeConfigs", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, []map[string]any{{"code": "default", "base_media_url": "http://shop/media/"}})
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prefix, err := client.MediaPrefix(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "http://shop/media/catalog/product", prefix)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchVariantsAttachesStock(t *testing.T) {
	f, client := newFakeMagento(t)
	client.imagePrefix = "http://cdn"
	f.handle("/products", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "simple", q.Get("searchCriteria[filterGroups][0][filters][0][value]"))
		assert.Equal(t, "entity_id", q.Get("searchCriteria[filterGroups][1][filters][0][field]"))
		assert.Equal(t, "11,12", q.Get("searchCriteria[filterGroups][1][filters][0][value]"))
		assert.Equal(t, "in", q.Get("searchCriteria[filterGroups][1][filters][0][condition_type]"))
		_, _ = w.Write([]byte(`{"items":[{"id":11,"sku":"TEE-R","type_id":"simple","price":19.999},{"id":12,"sku":"TEE-B","type_id":"simple","price":5}],"total_count":2}`))
	})
	f.handle("/stockItems/TEE-R", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"qty":7,"backorders":1,"manage_stock":true,"is_in_stock":true}`))
	})
	f.handle("/stockItems/TEE-B", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"qty":null,"backorders":0,"manage_stock":false}`))
	})

	variants, err := client.FetchVariantsByIDs(context.Background(), []string{"11", "12", "11"})
	require.NoError(t, err)
	require.Len(t, variants, 2)
	require.NotNil(t, variants[0].Stock)
	assert.Equal(t, 7.0, variants[0].Stock.Qty)
	assert.Equal(t, 1, variants[0].Stock.Backorders)
	require.NotNil(t, variants[1].Stock)
	assert.False(t, variants[1].Stock.ManageStock)
	assert.Zero(t, f.count("/store/storeConfigs"))
}

func TestFetchVariantsByEmptyIDsMakesNoCall(t *testing.T) {
	f, client := newFakeMagento(t)
	variants, err := client.FetchVariantsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, variants)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.requests)
}

func TestGatewayErrorCarriesUpstreamMessage(t *testing.T) {
	f, client := newFakeMagento(t)
	f.handle("/products/attributes/size", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"The attribute with a \"%1\" attributeCode doesn't exist.","parameters":["size"]}`))
	})
	f.handle("/products", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.FetchOptionValueSet(context.Background(), "size")
	require.Error(t, err)
	assert.True(t, IsGatewayError(err))
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, http.StatusNotFound, ge.StatusCode)
	assert.Equal(t, `The attribute with a "size" attributeCode doesn't exist.`, ge.Message)

	_, err = client.FetchProducts(context.Background(), ProductTypeSimple, "")
	assert.True(t, IsGatewayError(err))
}

func TestFetchOptionValueSetDropsEmptyValues(t *testing.T) {
	f, client := newFakeMagento(t)
	f.handle("/products/attributes/color", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"attribute_id":93,"options":[{"label":" ","value":""},{"label":"Red","value":"5"},{"label":"Blue","value":6}]}`))
	})
	values, err := client.FetchOptionValueSet(context.Background(), "color")
	require.NoError(t, err)
	assert.Equal(t, []OptionValue{{Label: "Red", Value: "5"}, {Label: "Blue", Value: "6"}}, values)
}

func TestFetchProductImagesRequiresStoreContext(t *testing.T) {
	f, client := newFakeMagento(t)
	_, err := client.FetchProductImages(context.Background(), []Product{{ID: "1"}})
	assert.ErrorIs(t, err, ErrPrecondition)

	f.handle("/products-render-info", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("storeId"))
		assert.Equal(t, "USD", q.Get("currencyCode"))
		_, _ = w.Write([]byte(`{"items":[{"id":1,"images":[{"url":"http://shop/a.jpg","code":"small"}]}]}`))
	})
	client.SetStoreContext("1", "USD")
	products, err := client.FetchProductImages(context.Background(), []Product{{ID: "1"}, {ID: "2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://shop/a.jpg"}, products[0].Images)
	assert.Nil(t, products[1].Images)
}
