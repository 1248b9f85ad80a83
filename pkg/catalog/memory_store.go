package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"magento-importer/pkg/models"
)

// MemoryStore 内存版目标目录，用于单测和本地演练
// 事务串行执行，出错时恢复到事务开始前的快照；Writes 记录每种写操作的调用次数
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	store       *models.Store
	profiles    []models.ShippingProfile
	collections map[string]*models.Collection
	products    map[string]*models.Product
	options     map[string]*models.ProductOption
	variants    map[string]*models.ProductVariant
	seq         int
	order       map[string]int

	Writes map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: map[string]*models.Collection{},
		products:    map[string]*models.Product{},
		options:     map[string]*models.ProductOption{},
		variants:    map[string]*models.ProductVariant{},
		order:       map[string]int{},
		Writes:      map[string]int{},
	}
}

// SeedStore 设置店铺记录和默认配送方案
func (m *MemoryStore) SeedStore(store models.Store, profiles ...models.ShippingProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := store
	s.Metadata = store.Metadata.Clone()
	m.store = &s
	m.profiles = append([]models.ShippingProfile(nil), profiles...)
}

// WriteCount 返回写操作总次数，op 不为空时只统计该操作
func (m *MemoryStore) WriteCount(ops ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(ops) == 0 {
		return lo.Sum(lo.Values(m.Writes))
	}
	return lo.Sum(lo.Map(ops, func(op string, _ int) int { return m.Writes[op] }))
}

// ResetWrites 清零写计数
func (m *MemoryStore) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes = map[string]int{}
}

type memorySnapshot struct {
	store       *models.Store
	collections map[string]*models.Collection
	products    map[string]*models.Product
	options     map[string]*models.ProductOption
	variants    map[string]*models.ProductVariant
	order       map[string]int
	seq         int
}

func (m *MemoryStore) snapshot() memorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memorySnapshot{
		collections: make(map[string]*models.Collection, len(m.collections)),
		products:    make(map[string]*models.Product, len(m.products)),
		options:     make(map[string]*models.ProductOption, len(m.options)),
		variants:    make(map[string]*models.ProductVariant, len(m.variants)),
		order:       make(map[string]int, len(m.order)),
		seq:         m.seq,
	}
	if m.store != nil {
		s := *m.store
		s.Metadata = m.store.Metadata.Clone()
		snap.store = &s
	}
	for k, v := range m.collections {
		c := cloneCollection(*v)
		snap.collections[k] = &c
	}
	for k, v := range m.products {
		p := cloneProduct(*v)
		snap.products[k] = &p
	}
	for k, v := range m.options {
		o := cloneOption(*v)
		snap.options[k] = &o
	}
	for k, v := range m.variants {
		vv := cloneVariant(*v)
		snap.variants[k] = &vv
	}
	for k, v := range m.order {
		snap.order[k] = v
	}
	return snap
}

func (m *MemoryStore) restore(snap memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = snap.store
	m.collections = snap.collections
	m.products = snap.products
	m.options = snap.options
	m.variants = snap.variants
	m.order = snap.order
	m.seq = snap.seq
}

func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.snapshot()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// 以下方法调用时已持有 mu

func (m *MemoryStore) touch(op, id string) {
	m.Writes[op]++
	if _, ok := m.order[id]; !ok {
		m.seq++
		m.order[id] = m.seq
	}
}

func (m *MemoryStore) sortedByOrder(ids []string) []string {
	sort.SliceStable(ids, func(i, j int) bool { return m.order[ids[i]] < m.order[ids[j]] })
	return ids
}

func (m *MemoryStore) assemble(p *models.Product) *models.Product {
	out := cloneProduct(*p)
	opts := lo.Filter(lo.Values(m.options), func(o *models.ProductOption, _ int) bool { return o.ProductID == p.ID })
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Position < opts[j].Position })
	out.Options = lo.Map(opts, func(o *models.ProductOption, _ int) models.ProductOption { return cloneOption(*o) })
	vars := lo.Filter(lo.Values(m.variants), func(v *models.ProductVariant, _ int) bool { return v.ProductID == p.ID })
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].Position < vars[j].Position })
	out.Variants = lo.Map(vars, func(v *models.ProductVariant, _ int) models.ProductVariant { return cloneVariant(*v) })
	return &out
}

func (m *MemoryStore) nextOptionPosition(productID string) int {
	pos := 0
	for _, o := range m.options {
		if o.ProductID == productID && o.Position >= pos {
			pos = o.Position + 1
		}
	}
	return pos
}

func (m *MemoryStore) nextVariantPosition(productID string) int {
	pos := 0
	for _, v := range m.variants {
		if v.ProductID == productID && v.Position >= pos {
			pos = v.Position + 1
		}
	}
	return pos
}

func (m *MemoryStore) RetrieveStore(_ context.Context) (*models.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil, ErrNotFound
	}
	s := *m.store
	s.Metadata = m.store.Metadata.Clone()
	s.Currencies = append([]string(nil), m.store.Currencies...)
	return &s, nil
}

func (m *MemoryStore) UpdateStoreMetadata(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return ErrNotFound
	}
	if m.store.Metadata == nil {
		m.store.Metadata = models.Metadata{}
	}
	m.store.Metadata[key] = value
	m.Writes["UpdateStoreMetadata"]++
	return nil
}

func (m *MemoryStore) DefaultShippingProfile(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := lo.Find(m.profiles, func(p models.ShippingProfile) bool { return p.Type == models.DefaultProfileType })
	if !ok {
		return "", ErrNotFound
	}
	return p.ID, nil
}

func (m *MemoryStore) CollectionByHandle(_ context.Context, handle string) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.sortedByOrder(lo.Keys(m.collections)) {
		if c := m.collections[id]; c.Handle == handle {
			out := cloneCollection(*c)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CollectionByExternalID(_ context.Context, externalID string) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.sortedByOrder(lo.Keys(m.collections)) {
		if c := m.collections[id]; c.Metadata.ExternalID() == externalID {
			out := cloneCollection(*c)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListCollections(_ context.Context) ([]models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(m.sortedByOrder(lo.Keys(m.collections)), func(id string, _ int) models.Collection {
		return cloneCollection(*m.collections[id])
	}), nil
}

func (m *MemoryStore) CreateCollection(_ context.Context, c *models.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lo.SomeBy(lo.Values(m.collections), func(e *models.Collection) bool { return e.Handle == c.Handle }) {
		return ErrConflict
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	stored := cloneCollection(*c)
	m.collections[c.ID] = &stored
	m.touch("CreateCollection", c.ID)
	return nil
}

func (m *MemoryStore) UpdateCollection(_ context.Context, id string, upd models.CollectionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[id]
	if !ok {
		return ErrNotFound
	}
	if upd.IsEmpty() {
		return nil
	}
	if upd.Handle != nil && lo.SomeBy(lo.Values(m.collections), func(e *models.Collection) bool {
		return e.ID != id && e.Handle == *upd.Handle
	}) {
		return ErrConflict
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Handle != nil {
		c.Handle = *upd.Handle
	}
	m.Writes["UpdateCollection"]++
	return nil
}

func (m *MemoryStore) ProductByExternalID(_ context.Context, externalID string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.sortedByOrder(lo.Keys(m.products)) {
		if p := m.products[id]; p.ExternalID == externalID {
			return m.assemble(p), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) RetrieveProduct(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.assemble(p), nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.Options {
		opt := &p.Options[i]
		if opt.ID == "" {
			opt.ID = uuid.NewString()
		}
		opt.ProductID = p.ID
		opt.Position = i
		opt.Values = nil
		stored := cloneOption(*opt)
		m.options[opt.ID] = &stored
	}
	stored := cloneProduct(*p)
	stored.Options, stored.Variants = nil, nil
	m.products[p.ID] = &stored
	m.touch("CreateProduct", p.ID)
	m.mu.Unlock()

	for i := range p.Variants {
		if err := m.CreateVariant(ctx, p.ID, &p.Variants[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) UpdateProduct(_ context.Context, id string, upd models.ProductUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	if upd.IsEmpty() {
		return nil
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Handle != nil {
		p.Handle = *upd.Handle
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.CollectionID != nil {
		p.CollectionID = *upd.CollectionID
	}
	if upd.Thumbnail != nil {
		p.Thumbnail = *upd.Thumbnail
	}
	if upd.Images != nil {
		p.Images = append([]string(nil), upd.Images...)
	}
	m.Writes["UpdateProduct"]++
	return nil
}

func (m *MemoryStore) AddOption(_ context.Context, productID string, opt *models.ProductOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productID]; !ok {
		return ErrNotFound
	}
	if opt.ID == "" {
		opt.ID = uuid.NewString()
	}
	opt.ProductID = productID
	opt.Position = m.nextOptionPosition(productID)
	opt.Values = nil
	stored := cloneOption(*opt)
	m.options[opt.ID] = &stored
	m.touch("AddOption", opt.ID)
	return nil
}

func (m *MemoryStore) UpdateOption(_ context.Context, productID, optionID string, upd models.OptionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	opt, ok := m.options[optionID]
	if !ok || opt.ProductID != productID {
		return ErrNotFound
	}
	if upd.IsEmpty() {
		return nil
	}
	if upd.Title != nil {
		opt.Title = *upd.Title
	}
	if upd.Metadata != nil {
		opt.Metadata = upd.Metadata.Clone()
	}
	m.Writes["UpdateOption"]++
	return nil
}

func (m *MemoryStore) DeleteOption(_ context.Context, productID, optionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	opt, ok := m.options[optionID]
	if !ok || opt.ProductID != productID {
		return ErrNotFound
	}
	delete(m.options, optionID)
	for _, v := range m.variants {
		if v.ProductID == productID {
			stripOption(v, optionID)
		}
	}
	m.Writes["DeleteOption"]++
	return nil
}

func (m *MemoryStore) VariantBySKU(_ context.Context, sku string) (*models.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := lo.Find(lo.Values(m.variants), func(v *models.ProductVariant) bool { return v.SKU == sku })
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneVariant(*v)
	return &out, nil
}

func (m *MemoryStore) materialize(productID string, refs []models.VariantOptionValue) error {
	if len(refs) == 0 {
		return nil
	}
	ptrs := lo.Filter(lo.Values(m.options), func(o *models.ProductOption, _ int) bool { return o.ProductID == productID })
	opts := lo.Map(ptrs, func(o *models.ProductOption, _ int) models.ProductOption { return cloneOption(*o) })
	changed, err := materializeValues(opts, refs)
	if err != nil {
		return err
	}
	for _, idx := range changed {
		m.options[opts[idx].ID].Values = opts[idx].Values
	}
	return nil
}

func (m *MemoryStore) skuTaken(sku, exceptID string) bool {
	return lo.SomeBy(lo.Values(m.variants), func(v *models.ProductVariant) bool {
		return v.ID != exceptID && v.SKU == sku
	})
}

func (m *MemoryStore) CreateVariant(_ context.Context, productID string, v *models.ProductVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productID]; !ok {
		return ErrNotFound
	}
	if v.SKU != "" && m.skuTaken(v.SKU, "") {
		return ErrConflict
	}
	if err := m.materialize(productID, v.Options); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.ProductID = productID
	v.Position = m.nextVariantPosition(productID)
	stored := cloneVariant(*v)
	m.variants[v.ID] = &stored
	m.touch("CreateVariant", v.ID)
	return nil
}

func (m *MemoryStore) UpdateVariant(_ context.Context, id string, upd models.VariantUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return ErrNotFound
	}
	if upd.IsEmpty() {
		return nil
	}
	if upd.SKU != nil && *upd.SKU != "" && m.skuTaken(*upd.SKU, id) {
		return ErrConflict
	}
	if upd.Options != nil {
		if err := m.materialize(v.ProductID, upd.Options); err != nil {
			return err
		}
		v.Options = append([]models.VariantOptionValue(nil), upd.Options...)
	}
	if upd.Title != nil {
		v.Title = *upd.Title
	}
	if upd.SKU != nil {
		v.SKU = *upd.SKU
	}
	if upd.Prices != nil {
		v.Prices = append([]models.MoneyAmount(nil), upd.Prices...)
	}
	if upd.InventoryQuantity != nil {
		v.InventoryQuantity = *upd.InventoryQuantity
	}
	if upd.AllowBackorder != nil {
		v.AllowBackorder = *upd.AllowBackorder
	}
	if upd.ManageInventory != nil {
		v.ManageInventory = *upd.ManageInventory
	}
	if upd.Weight != nil {
		v.Weight = *upd.Weight
	}
	m.Writes["UpdateVariant"]++
	return nil
}

func (m *MemoryStore) DeleteVariant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.variants[id]; !ok {
		return ErrNotFound
	}
	delete(m.variants, id)
	m.Writes["DeleteVariant"]++
	return nil
}
