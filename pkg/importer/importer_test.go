package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magento-importer/pkg/catalog"
	"magento-importer/pkg/db"
	"magento-importer/pkg/magento"
	"magento-importer/pkg/models"
	"magento-importer/pkg/reconcile"
)

type fakeSource struct {
	mu         sync.Mutex
	categories []magento.Category
	products   map[magento.ProductType][]magento.Product
	failOn     magento.ProductType
	since      []string
}

func (f *fakeSource) FetchCategories(_ context.Context, since string) ([]magento.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	return f.categories, nil
}

func (f *fakeSource) FetchProducts(_ context.Context, typ magento.ProductType, _ string, _ ...magento.FilterGroup) ([]magento.Product, error) {
	if typ == f.failOn {
		return nil, &magento.GatewayError{Op: "fetch products", StatusCode: 500, Message: "Internal Error"}
	}
	return f.products[typ], nil
}

func (f *fakeSource) FetchVariantsByIDs(_ context.Context, ids []string) ([]magento.Product, error) {
	var out []magento.Product
	for _, p := range f.products[magento.ProductTypeSimple] {
		for _, id := range ids {
			if p.ID.String() == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func newSource() *fakeSource {
	red := simple("101", "TEE-R")
	red.CustomAttributes = append(red.CustomAttributes, magento.CustomAttribute{AttributeCode: "color", Value: "5"})
	red.MediaGalleryEntries = []magento.MediaEntry{{URL: "http://cdn/tee-red.jpg"}}
	return &fakeSource{
		categories: []magento.Category{
			{ID: "3", Name: "Tops", CustomAttributes: magento.CustomAttributes{{AttributeCode: "url_key", Value: "tops"}}},
		},
		products: map[magento.ProductType][]magento.Product{
			magento.ProductTypeConfigurable: {{
				ID:                  "100",
				SKU:                 "TEE",
				Name:                "Tee",
				Status:              magento.StatusEnabled,
				TypeID:              magento.ProductTypeConfigurable,
				MediaGalleryEntries: []magento.MediaEntry{{URL: "http://cdn/tee.jpg", Types: []string{"thumbnail"}}},
				CustomAttributes:    magento.CustomAttributes{{AttributeCode: "url_key", Value: "tee"}},
				ExtensionAttributes: magento.ExtensionAttributes{
					ConfigurableProductOptions: []magento.ConfigurableOption{{
						ID: "7", AttributeID: "93", Label: "Color",
						Values: []magento.OptionValue{{Label: "Red", Value: "5"}},
					}},
					ConfigurableProductLinks: []magento.ID{"101"},
				},
			}},
			magento.ProductTypeSimple: {red, simple("200", "MUG")},
		},
	}
}

func simple(id, sku string) magento.Product {
	return magento.Product{
		ID:     magento.ID(id),
		SKU:    sku,
		Name:   sku,
		Price:  19.999,
		Status: magento.StatusEnabled,
		TypeID: magento.ProductTypeSimple,
		Stock:  &magento.StockItem{Qty: 4, ManageStock: true},
	}
}

func newStore() *catalog.MemoryStore {
	s := catalog.NewMemoryStore()
	s.SeedStore(
		models.Store{ID: "store_1", DefaultCurrencyCode: "usd"},
		models.ShippingProfile{ID: "sp_1", Type: models.DefaultProfileType},
	)
	return s
}

var clock = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func TestFirstAndSecondRun(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	source := newSource()
	imp := New(&Config{Workers: 3}, source, store, WithClock(func() time.Time { return clock }))

	var progress []int
	result, err := imp.Run(ctx, func(p int) { progress = append(progress, p) })
	require.NoError(t, err)
	assert.Equal(t, []int{ProgressCategories, ProgressConfigurable, ProgressSimple}, progress)
	assert.Equal(t, PhaseResult{Total: 1, Created: 1}, result.Categories)
	assert.Equal(t, PhaseResult{Total: 1, Created: 1}, result.Configurable)
	// 101 已作为变体导入，简单商品阶段按变体比对
	assert.Equal(t, PhaseResult{Total: 2, Created: 1, Unchanged: 1}, result.Simple)
	assert.Equal(t, "2024-05-01T08:00:00.000Z", result.Watermark)
	assert.Empty(t, result.Since)

	tee, err := store.ProductByExternalID(ctx, "100")
	require.NoError(t, err)
	assert.Empty(t, tee.CollectionID)
	assert.Len(t, tee.Options, 1)
	require.Len(t, tee.Variants, 1)
	assert.Equal(t, []models.MoneyAmount{{CurrencyCode: "usd", Amount: 2000}}, tee.Variants[0].Prices)
	assert.ElementsMatch(t, []string{"http://cdn/tee.jpg", "http://cdn/tee-red.jpg"}, tee.Images)

	st, err := store.RetrieveStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Watermark, st.Metadata[models.MetadataBuildTime])

	store.ResetWrites()
	clock = clock.Add(time.Hour)
	result, err = imp.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T08:00:00.000Z", result.Since)
	assert.Equal(t, []string{"", "2024-05-01T08:00:00.000Z"}, source.since)
	assert.Equal(t, 1, result.Categories.Unchanged)
	assert.Equal(t, 1, result.Configurable.Unchanged)
	assert.Equal(t, 2, result.Simple.Unchanged)
	assert.Equal(t, 1, store.WriteCount(), "第二次只写水位: %v", store.Writes)
	assert.Equal(t, "2024-05-01T09:00:00.000Z", result.Watermark)
}

func TestMissingStoreSkipsRun(t *testing.T) {
	source := newSource()
	result, err := New(nil, source, catalog.NewMemoryStore()).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, source.since)
}

func TestGatewayErrorKeepsWatermark(t *testing.T) {
	store := newStore()
	source := newSource()
	source.failOn = magento.ProductTypeConfigurable

	var progress []int
	_, err := New(nil, source, store).Run(context.Background(), func(p int) { progress = append(progress, p) })
	require.Error(t, err)
	assert.True(t, magento.IsGatewayError(err))
	assert.Equal(t, []int{ProgressCategories}, progress)

	st, err := store.RetrieveStore(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Metadata[models.MetadataBuildTime])
}

func TestItemFailureDoesNotStopPhase(t *testing.T) {
	store := newStore()
	source := newSource()
	// 与变体 TEE-R 的 SKU 相同但来自另一个 magento 商品
	source.products[magento.ProductTypeSimple] = append(source.products[magento.ProductTypeSimple], simple("999", "TEE-R"))

	result, err := New(&Config{Workers: 2}, source, store).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Simple.Failed)
	assert.Equal(t, 1, result.Failed())
	assert.NotEmpty(t, result.Watermark)
}

func TestRunPhaseStopsOnGatewayError(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	var mu sync.Mutex
	seen := 0
	_, err := runPhase(context.Background(), 1, "测试", items, func(_ context.Context, n int) (reconcile.Outcome, error) {
		mu.Lock()
		seen++
		mu.Unlock()
		if n == 2 {
			return "", &magento.GatewayError{Op: "fetch", Message: "down"}
		}
		return reconcile.OutcomeUnchanged, nil
	}, func(n int) string { return "" })
	require.Error(t, err)
	assert.True(t, magento.IsGatewayError(err))
	assert.Less(t, seen, len(items))
}

func TestConcurrentImportOnSQLite(t *testing.T) {
	ctx := context.Background()
	gdb, err := db.Open(&db.Config{
		Driver:       db.DriverSQLite,
		Database:     filepath.Join(t.TempDir(), "catalog.db"),
		MaxOpenConns: 20,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&models.Store{ID: "store_1", DefaultCurrencyCode: "usd"}).Error)
	require.NoError(t, gdb.Create(&models.ShippingProfile{ID: "sp_1", Type: models.DefaultProfileType}).Error)

	source := &fakeSource{products: map[magento.ProductType][]magento.Product{}}
	for n := 0; n < 40; n++ {
		source.products[magento.ProductTypeSimple] = append(source.products[magento.ProductTypeSimple],
			simple(fmt.Sprint(1000+n), fmt.Sprintf("SKU-%d", n)))
	}
	imp := New(&Config{Workers: 4}, source, catalog.NewGormStore(gdb))

	result, err := imp.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, PhaseResult{Total: 40, Created: 40}, result.Simple)

	result, err = imp.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, PhaseResult{Total: 40, Unchanged: 40}, result.Simple)

	var count int64
	require.NoError(t, gdb.Model(&models.Product{}).Count(&count).Error)
	assert.EqualValues(t, 40, count)
}

func TestConfigValidate(t *testing.T) {
	assert.Empty(t, NewDefaultConfig().Validate())
	assert.Len(t, (&Config{Workers: -1}).Validate(), 1)
	assert.Equal(t, 1, (&Config{}).workers())
}
