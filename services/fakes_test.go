package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/repository"
)

// --- In-memory repositories ---
// They enforce the same unique and sparse-unique rules as the Mongo indexes.

type memAttributeSetRepo struct {
	mu   sync.Mutex
	sets map[primitive.ObjectID]models.AttributeSet
	// afterFind runs once FindByID has read a set, outside the lock.
	afterFind func()
}

func newMemAttributeSetRepo() *memAttributeSetRepo {
	return &memAttributeSetRepo{sets: make(map[primitive.ObjectID]models.AttributeSet)}
}

func (m *memAttributeSetRepo) EnsureIndexes(context.Context) error { return nil }

func (m *memAttributeSetRepo) Create(_ context.Context, set *models.AttributeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sets {
		if s.Name == set.Name {
			return &repository.DuplicateKeyError{Field: "name"}
		}
	}
	set.ID = primitive.NewObjectID()
	set.CreatedAt = time.Now().UTC()
	set.UpdatedAt = set.CreatedAt
	m.sets[set.ID] = *set
	return nil
}

func (m *memAttributeSetRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.AttributeSet, error) {
	m.mu.Lock()
	s, ok := m.sets[id]
	hook := m.afterFind
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	if hook != nil {
		hook()
	}
	return &s, nil
}

func (m *memAttributeSetRepo) Find(_ context.Context, filter repository.AttributeSetFilter, page repository.Page) ([]models.AttributeSet, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.AttributeSet
	for _, s := range m.sets {
		if filter.Lifecycle != nil && s.Lifecycle() != *filter.Lifecycle {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, page), int64(len(all)), nil
}

func (m *memAttributeSetRepo) Update(_ context.Context, set *models.AttributeSet) (*models.AttributeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[set.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	for id, s := range m.sets {
		if id != set.ID && s.Name == set.Name {
			return nil, &repository.DuplicateKeyError{Field: "name"}
		}
	}
	set.UpdatedAt = time.Now().UTC()
	m.sets[set.ID] = *set
	cp := *set
	return &cp, nil
}

func (m *memAttributeSetRepo) SetLifecycle(_ context.Context, id primitive.ObjectID, state models.Lifecycle) (*models.AttributeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.IsActive = state.IsActive()
	m.sets[id] = s
	return &s, nil
}

type memVariantRepo struct {
	mu       sync.Mutex
	variants map[primitive.ObjectID]models.ProductVariant
}

func newMemVariantRepo() *memVariantRepo {
	return &memVariantRepo{variants: make(map[primitive.ObjectID]models.ProductVariant)}
}

func (m *memVariantRepo) EnsureIndexes(context.Context) error { return nil }

func (m *memVariantRepo) conflict(v *models.ProductVariant) error {
	for id, other := range m.variants {
		if id == v.ID {
			continue
		}
		if other.SKU == v.SKU {
			return &repository.DuplicateKeyError{Field: "sku"}
		}
		if v.Barcode != nil && other.Barcode != nil && *other.Barcode == *v.Barcode {
			return &repository.DuplicateKeyError{Field: "barcode"}
		}
	}
	return nil
}

func (m *memVariantRepo) Create(_ context.Context, v *models.ProductVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conflict(v); err != nil {
		return err
	}
	v.ID = primitive.NewObjectID()
	v.CreatedAt = time.Now().UTC()
	v.UpdatedAt = v.CreatedAt
	m.variants[v.ID] = *v
	return nil
}

func (m *memVariantRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (m *memVariantRepo) FindBySKU(_ context.Context, sku string) (*models.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.variants {
		if v.SKU == sku {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memVariantRepo) FindByProduct(_ context.Context, productID primitive.ObjectID, state *models.Lifecycle) ([]models.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ProductVariant{}
	for _, v := range m.variants {
		if v.ProductID != productID {
			continue
		}
		if state != nil && v.Lifecycle() != *state {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (m *memVariantRepo) Update(_ context.Context, v *models.ProductVariant) (*models.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.variants[v.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	if err := m.conflict(v); err != nil {
		return nil, err
	}
	v.UpdatedAt = time.Now().UTC()
	m.variants[v.ID] = *v
	cp := *v
	return &cp, nil
}

func (m *memVariantRepo) SetLifecycle(_ context.Context, id primitive.ObjectID, state models.Lifecycle) (*models.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v.IsActive = state.IsActive()
	m.variants[id] = v
	return &v, nil
}

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[primitive.ObjectID]models.Payment
	// findErr makes FindUnnotified fail when set.
	findErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[primitive.ObjectID]models.Payment)}
}

func (m *memPaymentRepo) EnsureIndexes(context.Context) error { return nil }

func (m *memPaymentRepo) Create(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.IdempotencyKey != nil {
		for _, other := range m.payments {
			if other.IdempotencyKey != nil && *other.IdempotencyKey == *p.IdempotencyKey {
				return &repository.DuplicateKeyError{Field: "idempotencyKey"}
			}
		}
	}
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.payments[p.ID] = clonePayment(*p)
	return nil
}

func (m *memPaymentRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := clonePayment(p)
	return &cp, nil
}

func (m *memPaymentRepo) findFirst(match func(p models.Payment) bool) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if match(p) {
			cp := clonePayment(p)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPaymentRepo) FindByIdempotencyKey(_ context.Context, key string) (*models.Payment, error) {
	return m.findFirst(func(p models.Payment) bool { return p.IdempotencyKey != nil && *p.IdempotencyKey == key })
}

func (m *memPaymentRepo) FindByTransactionID(_ context.Context, txID string) (*models.Payment, error) {
	return m.findFirst(func(p models.Payment) bool { return p.TransactionID == txID })
}

func (m *memPaymentRepo) Find(_ context.Context, f repository.PaymentFilter, page repository.Page) ([]models.Payment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if f.OrderID != nil && p.OrderID != *f.OrderID {
			continue
		}
		if f.CustomerID != nil && p.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), int64(len(out)), nil
}

func (m *memPaymentRepo) ApplyTransition(_ context.Context, id primitive.ObjectID, t *models.PaymentTransition) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Status != t.From {
		return nil, repository.ErrStatusConflict
	}
	p.Apply(t)
	m.payments[id] = p
	cp := clonePayment(p)
	return &cp, nil
}

func (m *memPaymentRepo) UpdateNotes(_ context.Context, id primitive.ObjectID, notes string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Notes = notes
	m.payments[id] = p
	cp := clonePayment(p)
	return &cp, nil
}

func (m *memPaymentRepo) MarkNotified(_ context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if ok && p.Status == status {
		p.NotifiedStatus = status
		m.payments[id] = p
	}
	return nil
}

func (m *memPaymentRepo) FindUnnotified(_ context.Context, olderThan time.Time, limit int) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []models.Payment{}
	for _, p := range m.payments {
		if p.NotifiedStatus != p.Status && p.UpdatedAt.Before(olderThan) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// put stores p as-is, bypassing Create.
func (m *memPaymentRepo) put(p models.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = clonePayment(p)
}

func (m *memPaymentRepo) get(id primitive.ObjectID) models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePayment(m.payments[id])
}

func clonePayment(p models.Payment) models.Payment {
	p.StatusHistory = append([]models.StatusChange(nil), p.StatusHistory...)
	return p
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Limit <= 0 {
		return items
	}
	start := 0
	if page.Page > 1 {
		start = (page.Page - 1) * page.Limit
	}
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- Mock SNS publisher ---

type publishedMessage struct {
	topicArn   string
	event      models.PaymentEvent
	attributes map[string]string
}

type mockSNSPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (m *mockSNSPublisher) Publish(_ context.Context, topicArn string, message []byte, attributes map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	var ev models.PaymentEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return err
	}
	m.published = append(m.published, publishedMessage{topicArn: topicArn, event: ev, attributes: attributes})
	return nil
}

func (m *mockSNSPublisher) messages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedMessage(nil), m.published...)
}

// --- Mock reference checker ---

type mockReferences struct {
	productErr  error
	orderErr    error
	customerErr error
}

func (m *mockReferences) ProductExists(context.Context, string) error  { return m.productErr }
func (m *mockReferences) OrderExists(context.Context, string) error    { return m.orderErr }
func (m *mockReferences) CustomerExists(context.Context, string) error { return m.customerErr }

// --- Mock cache ---

type mockCache struct {
	mu          sync.Mutex
	version     int64
	sets        map[string]models.AttributeSet
	hits        int
	invalidated int
}

func newMockCache() *mockCache {
	return &mockCache{version: 1, sets: make(map[string]models.AttributeSet)}
}

func cacheKey(version int64, id string) string {
	return fmt.Sprintf("%d:%s", version, id)
}

func (c *mockCache) Get(_ context.Context, id string) (*models.AttributeSet, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[cacheKey(c.version, id)]
	if !ok {
		return nil, c.version, false
	}
	c.hits++
	return &s, c.version, true
}

func (c *mockCache) SetAsync(set *models.AttributeSet, version int64) {
	if version <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[cacheKey(version, set.ID.Hex())] = *set
}

func (c *mockCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.invalidated++
}

const testTopicArn = "arn:aws:sns:eu-central-1:000000000000:payment-events"

func testLogger() *zap.Logger {
	return zap.NewNop()
}
