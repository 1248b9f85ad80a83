package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"magento-importer/pkg/models"
)

type storeFactory func(t *testing.T, store models.Store, profiles ...models.ShippingProfile) Store

func newMemory(t *testing.T, store models.Store, profiles ...models.ShippingProfile) Store {
	m := NewMemoryStore()
	m.SeedStore(store, profiles...)
	return m
}

func newGorm(t *testing.T, store models.Store, profiles ...models.ShippingProfile) Store {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.CatalogTables()...))
	require.NoError(t, db.Create(&store).Error)
	for i := range profiles {
		require.NoError(t, db.Create(&profiles[i]).Error)
	}
	return NewGormStore(db)
}

var factories = map[string]storeFactory{
	"memory": newMemory,
	"gorm":   newGorm,
}

func testStore() models.Store {
	return models.Store{ID: "store_1", Name: "demo", DefaultCurrencyCode: "usd", Currencies: []string{"usd", "eur"}}
}

func TestStoreAndProfile(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, testStore(), models.ShippingProfile{ID: "sp_1", Name: models.DefaultShippingName, Type: models.DefaultProfileType})

			store, err := s.RetrieveStore(ctx)
			require.NoError(t, err)
			assert.Equal(t, "usd", store.DefaultCurrencyCode)
			assert.Equal(t, []string{"usd", "eur"}, store.Currencies)

			require.NoError(t, s.UpdateStoreMetadata(ctx, models.MetadataBuildTime, "2024-01-01T00:00:00.000Z"))
			store, err = s.RetrieveStore(ctx)
			require.NoError(t, err)
			assert.Equal(t, "2024-01-01T00:00:00.000Z", store.Metadata[models.MetadataBuildTime])

			profile, err := s.DefaultShippingProfile(ctx)
			require.NoError(t, err)
			assert.Equal(t, "sp_1", profile)
		})
	}
}

func TestCollections(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, testStore())

			_, err := s.CollectionByHandle(ctx, "shoes")
			assert.True(t, IsNotFound(err))

			c := &models.Collection{Title: "Shoes", Handle: "shoes", Metadata: models.ExternalIDMetadata("7")}
			require.NoError(t, s.CreateCollection(ctx, c))
			require.NotEmpty(t, c.ID)

			byExt, err := s.CollectionByExternalID(ctx, "7")
			require.NoError(t, err)
			assert.Equal(t, c.ID, byExt.ID)

			title := "Sneakers"
			require.NoError(t, s.UpdateCollection(ctx, c.ID, models.CollectionUpdate{Title: &title}))
			got, err := s.CollectionByHandle(ctx, "shoes")
			require.NoError(t, err)
			assert.Equal(t, "Sneakers", got.Title)
			assert.Equal(t, "7", got.Metadata.ExternalID())

			err = s.CreateCollection(ctx, &models.Collection{Title: "Dup", Handle: "shoes"})
			assert.True(t, IsConflict(err), "got %v", err)

			list, err := s.ListCollections(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestProductOptionsAndVariants(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, testStore())

			p := &models.Product{
				Title:      "Tee",
				Handle:     "tee",
				ExternalID: "100",
				Type:       models.ProductTypeConfig,
				Status:     models.ProductStatusPublished,
				Options: []models.ProductOption{
					{Title: "Color", Metadata: models.ExternalIDMetadata("93")},
					{Title: "Size", Metadata: models.ExternalIDMetadata("144")},
				},
				Metadata: models.ExternalIDMetadata("100"),
			}
			require.NoError(t, s.CreateProduct(ctx, p))
			color, size := p.Options[0].ID, p.Options[1].ID
			require.NotEmpty(t, color)
			require.NotEmpty(t, size)

			v := &models.ProductVariant{
				Title:    "Tee Red S",
				SKU:      "TEE-R-S",
				Prices:   []models.MoneyAmount{{CurrencyCode: "usd", Amount: 1000}},
				Options:  []models.VariantOptionValue{{OptionID: color, Value: "Red", Code: "5"}, {OptionID: size, Value: "S", Code: "10"}},
				Metadata: models.ExternalIDMetadata("101"),
			}
			require.NoError(t, s.CreateVariant(ctx, p.ID, v))

			got, err := s.ProductByExternalID(ctx, "100")
			require.NoError(t, err)
			require.Len(t, got.Options, 2)
			assert.Equal(t, "Color", got.Options[0].Title)
			require.Len(t, got.Options[0].Values, 1)
			assert.Equal(t, "Red", got.Options[0].Values[0].Value)
			assert.Equal(t, "5", got.Options[0].Values[0].Code())
			require.Len(t, got.Variants, 1)
			assert.Equal(t, "TEE-R-S", got.Variants[0].SKU)

			// 同一个值不会重复追加
			v2 := &models.ProductVariant{SKU: "TEE-R-M", Options: []models.VariantOptionValue{{OptionID: color, Value: "Red", Code: "5"}}}
			require.NoError(t, s.CreateVariant(ctx, p.ID, v2))
			got, err = s.RetrieveProduct(ctx, p.ID)
			require.NoError(t, err)
			assert.Len(t, got.Options[0].Values, 1)

			err = s.CreateVariant(ctx, p.ID, &models.ProductVariant{SKU: "TEE-R-S"})
			assert.True(t, IsConflict(err), "got %v", err)

			err = s.CreateVariant(ctx, p.ID, &models.ProductVariant{SKU: "X", Options: []models.VariantOptionValue{{OptionID: "missing", Value: "x"}}})
			assert.Error(t, err)

			require.NoError(t, s.DeleteOption(ctx, p.ID, size))
			got, err = s.RetrieveProduct(ctx, p.ID)
			require.NoError(t, err)
			require.Len(t, got.Options, 1)
			for _, variant := range got.Variants {
				for _, ref := range variant.Options {
					assert.NotEqual(t, size, ref.OptionID)
				}
			}

			byID, err := s.VariantBySKU(ctx, "TEE-R-M")
			require.NoError(t, err)
			require.NoError(t, s.DeleteVariant(ctx, byID.ID))
			_, err = s.VariantBySKU(ctx, "TEE-R-M")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestOptionValueRelabel(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, testStore())

			p := &models.Product{
				Title:      "Tee",
				Handle:     "tee",
				ExternalID: "100",
				Options:    []models.ProductOption{{Title: "Color", Metadata: models.ExternalIDMetadata("93")}},
				Metadata:   models.ExternalIDMetadata("100"),
			}
			require.NoError(t, s.CreateProduct(ctx, p))
			color := p.Options[0].ID
			v := &models.ProductVariant{SKU: "TEE-R", Options: []models.VariantOptionValue{{OptionID: color, Value: "Red", Code: "5"}}}
			require.NoError(t, s.CreateVariant(ctx, p.ID, v))

			crimson := []models.VariantOptionValue{{OptionID: color, Value: "Crimson", Code: "5"}}
			require.NoError(t, s.UpdateVariant(ctx, v.ID, models.VariantUpdate{Options: crimson}))

			got, err := s.RetrieveProduct(ctx, p.ID)
			require.NoError(t, err)
			require.Len(t, got.Options[0].Values, 1)
			assert.Equal(t, "Crimson", got.Options[0].Values[0].Value)
			assert.Equal(t, "5", got.Options[0].Values[0].Code())
			require.Len(t, got.Variants, 1)
			assert.Equal(t, "Crimson", got.Variants[0].Options[0].Value)
		})
	}
}

func TestUpdateWritesOnlyGivenFields(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, testStore())

			p := &models.Product{Title: "Mug", Handle: "mug", ExternalID: "5", Description: "keep", Status: models.ProductStatusDraft}
			require.NoError(t, s.CreateProduct(ctx, p))

			status := models.ProductStatusPublished
			require.NoError(t, s.UpdateProduct(ctx, p.ID, models.ProductUpdate{Status: &status, Images: []string{"a.jpg", "b.jpg"}}))
			got, err := s.RetrieveProduct(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ProductStatusPublished, got.Status)
			assert.Equal(t, "keep", got.Description)
			assert.Equal(t, []string{"a.jpg", "b.jpg"}, got.Images)

			v := &models.ProductVariant{Title: "Mug", SKU: "MUG", InventoryQuantity: 3}
			require.NoError(t, s.CreateVariant(ctx, p.ID, v))
			qty := 0
			require.NoError(t, s.UpdateVariant(ctx, v.ID, models.VariantUpdate{InventoryQuantity: &qty}))
			gotV, err := s.VariantBySKU(ctx, "MUG")
			require.NoError(t, err)
			assert.Equal(t, 0, gotV.InventoryQuantity)
			assert.Equal(t, "Mug", gotV.Title)
		})
	}
}

func TestTransactionRollback(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, testStore())
			boom := errors.New("boom")

			err := s.Transaction(ctx, func(tx Tx) error {
				if err := tx.CreateProduct(ctx, &models.Product{Title: "Lamp", ExternalID: "9"}); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			_, err = s.ProductByExternalID(ctx, "9")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestMemoryStoreCountsWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.SeedStore(testStore())

	require.NoError(t, m.CreateCollection(ctx, &models.Collection{Title: "A", Handle: "a"}))
	assert.True(t, IsNotFound(m.UpdateCollection(ctx, "missing", models.CollectionUpdate{})))
	assert.Equal(t, 1, m.WriteCount())
	assert.Equal(t, 1, m.WriteCount("CreateCollection"))

	m.ResetWrites()
	assert.Zero(t, m.WriteCount())
}
