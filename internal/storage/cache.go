package storage

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/model"
)

// Collection names used as cache metric labels.
const (
	CollectionUsers      = "users"
	CollectionGroups     = "groups"
	CollectionCategories = "categories"
	CollectionDocuments  = "documents"
	CollectionAudit      = "audit"
)

const allKey = "all"

// CacheConfig sets how long list reads may be served stale, per collection.
type CacheConfig struct {
	Size       int
	Users      time.Duration
	Groups     time.Duration
	Categories time.Duration
	Documents  time.Duration
	Audit      time.Duration
}

// DefaultCacheConfig returns the stale windows used by the application.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Size:       128,
		Users:      5 * time.Minute,
		Groups:     5 * time.Minute,
		Categories: 5 * time.Minute,
		Documents:  2 * time.Minute,
		Audit:      time.Minute,
	}
}

// listCache caches list reads of one collection. Every purge starts a new
// generation; a read that began in an older generation is not stored, so a
// slow read racing a write cannot put the pre-write rows back.
type listCache[T any] struct {
	name    string
	entries *lru.LRU[string, []T]
	clone   func(T) T
	metrics *metrics.Metrics

	mu  sync.Mutex
	gen uint64
}

func newListCache[T any](name string, size int, ttl time.Duration, clone func(T) T, m *metrics.Metrics) *listCache[T] {
	return &listCache[T]{
		name:    name,
		entries: lru.NewLRU[string, []T](size, nil, ttl),
		clone:   clone,
		metrics: m,
	}
}

func (c *listCache[T]) peek(key string) ([]T, bool) {
	v, ok := c.entries.Get(key)
	c.metrics.Cache(c.name, ok)

	if !ok {
		return nil, false
	}

	return c.copyOf(v), true
}

// generation returns the current generation, to be passed to put.
func (c *listCache[T]) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gen
}

// put stores v unless the collection was purged since gen was read.
func (c *listCache[T]) put(gen uint64, key string, v []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}

	c.entries.Add(key, c.copyOf(v))
}

func (c *listCache[T]) load(key string, fetch func() ([]T, error)) ([]T, error) {
	if v, ok := c.peek(key); ok {
		return v, nil
	}

	gen := c.generation()

	v, err := fetch()
	if err != nil {
		return nil, err
	}

	c.put(gen, key, v)

	return v, nil
}

func (c *listCache[T]) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.entries.Purge()
}

func (c *listCache[T]) copyOf(in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = c.clone(v)
	}

	return out
}

// CachedStore serves list reads from a time-bounded cache and forwards
// everything else to the wrapped Store. Any write purges the collections it
// touches, so a client only sees stale data for writes made elsewhere.
type CachedStore struct {
	Store

	users      *listCache[model.User]
	groups     *listCache[model.Group]
	categories *listCache[model.Category]
	documents  *listCache[model.Document]
	audit      *listCache[model.AuditLog]
}

// NewCachedStore wraps store. A nil metrics records nothing.
func NewCachedStore(store Store, cfg CacheConfig, m *metrics.Metrics) *CachedStore {
	if cfg.Size <= 0 {
		cfg.Size = DefaultCacheConfig().Size
	}

	return &CachedStore{
		Store:      store,
		users:      newListCache(CollectionUsers, cfg.Size, cfg.Users, model.User.Clone, m),
		groups:     newListCache(CollectionGroups, cfg.Size, cfg.Groups, model.Group.Clone, m),
		categories: newListCache(CollectionCategories, cfg.Size, cfg.Categories, model.Category.Clone, m),
		documents:  newListCache(CollectionDocuments, cfg.Size, cfg.Documents, model.Document.Clone, m),
		audit:      newListCache(CollectionAudit, cfg.Size, cfg.Audit, model.AuditLog.Clone, m),
	}
}

// Reset clears the wrapped store and drops every cached list.
func (c *CachedStore) Reset(ctx context.Context) error {
	r, ok := c.Store.(Resetter)
	if !ok {
		return ErrResetUnsupported
	}

	defer c.Invalidate()

	return r.Reset(ctx)
}

// Invalidate drops every cached list.
func (c *CachedStore) Invalidate() {
	c.users.purge()
	c.groups.purge()
	c.categories.purge()
	c.documents.purge()
	c.audit.purge()
}

func (c *CachedStore) ListUsers(ctx context.Context) ([]model.User, error) {
	return c.users.load(allKey, func() ([]model.User, error) { return c.Store.ListUsers(ctx) })
}

func (c *CachedStore) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	defer c.users.purge()

	return c.Store.CreateUser(ctx, user)
}

func (c *CachedStore) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	defer c.users.purge()

	return c.Store.UpdateUser(ctx, user)
}

func (c *CachedStore) DeleteUser(ctx context.Context, id string) error {
	defer c.users.purge()

	return c.Store.DeleteUser(ctx, id)
}

func (c *CachedStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	return c.groups.load(allKey, func() ([]model.Group, error) { return c.Store.ListGroups(ctx) })
}

func (c *CachedStore) CreateGroup(ctx context.Context, group model.Group) (model.Group, error) {
	defer c.groups.purge()

	return c.Store.CreateGroup(ctx, group)
}

func (c *CachedStore) UpdateGroup(ctx context.Context, group model.Group) (model.Group, error) {
	defer c.groups.purge()

	return c.Store.UpdateGroup(ctx, group)
}

func (c *CachedStore) DeleteGroup(ctx context.Context, id string) error {
	defer c.groups.purge()

	return c.Store.DeleteGroup(ctx, id)
}

func (c *CachedStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	return c.categories.load(allKey, func() ([]model.Category, error) { return c.Store.ListCategories(ctx) })
}

func (c *CachedStore) CreateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	defer c.categories.purge()

	return c.Store.CreateCategory(ctx, category)
}

func (c *CachedStore) UpdateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	defer c.categories.purge()

	return c.Store.UpdateCategory(ctx, category)
}

func (c *CachedStore) DeleteCategory(ctx context.Context, id string) error {
	defer c.categories.purge()

	return c.Store.DeleteCategory(ctx, id)
}

func (c *CachedStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	return c.documents.load(allKey, func() ([]model.Document, error) { return c.Store.ListDocuments(ctx) })
}

func (c *CachedStore) ListDocumentsByCategory(ctx context.Context, categoryID string) ([]model.Document, error) {
	return c.documents.load("category:"+categoryID, func() ([]model.Document, error) {
		return c.Store.ListDocumentsByCategory(ctx, categoryID)
	})
}

func (c *CachedStore) CreateDocument(ctx context.Context, document model.Document) (model.Document, error) {
	defer c.documents.purge()

	return c.Store.CreateDocument(ctx, document)
}

func (c *CachedStore) UpdateDocument(ctx context.Context, document model.Document) (model.Document, error) {
	defer c.documents.purge()

	return c.Store.UpdateDocument(ctx, document)
}

func (c *CachedStore) DeleteDocument(ctx context.Context, id string) error {
	defer c.documents.purge()

	return c.Store.DeleteDocument(ctx, id)
}

func (c *CachedStore) ListAuditLogs(ctx context.Context) ([]model.AuditLog, error) {
	return c.audit.load(allKey, func() ([]model.AuditLog, error) { return c.Store.ListAuditLogs(ctx) })
}

func (c *CachedStore) AppendAuditLog(ctx context.Context, entry model.AuditLog) (model.AuditLog, error) {
	defer c.audit.purge()

	return c.Store.AppendAuditLog(ctx, entry)
}

// Snapshot serves the four collections from cache when all are present.
// Otherwise it reloads them together from the wrapped store.
func (c *CachedStore) Snapshot(ctx context.Context) (Snapshot, error) {
	users, uok := c.users.peek(allKey)
	groups, gok := c.groups.peek(allKey)
	categories, cok := c.categories.peek(allKey)
	documents, dok := c.documents.peek(allKey)

	if uok && gok && cok && dok {
		return Snapshot{Users: users, Groups: groups, Categories: categories, Documents: documents}, nil
	}

	ugen, ggen := c.users.generation(), c.groups.generation()
	cgen, dgen := c.categories.generation(), c.documents.generation()

	snap, err := LoadSnapshot(ctx, c.Store)
	if err != nil {
		return Snapshot{}, err
	}

	c.users.put(ugen, allKey, snap.Users)
	c.groups.put(ggen, allKey, snap.Groups)
	c.categories.put(cgen, allKey, snap.Categories)
	c.documents.put(dgen, allKey, snap.Documents)

	return snap, nil
}

// Ping checks the wrapped store when it supports health checks.
func (c *CachedStore) Ping(ctx context.Context) error {
	if p, ok := c.Store.(interface{ Ping(ctx context.Context) error }); ok {
		return p.Ping(ctx)
	}

	return nil
}

// Ensure CachedStore implements Store.
var (
	_ Store       = (*CachedStore)(nil)
	_ Snapshotter = (*CachedStore)(nil)
)
