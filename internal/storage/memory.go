package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-content-mediafilter/internal/content"
)

// MemoryRepository keeps items, containers and asset metadata in memory and
// asset bytes in a BlobStore. It is safe for concurrent use.
type MemoryRepository struct {
	blobs BlobStore
	now   func() time.Time

	mu         sync.RWMutex
	items      map[string]*content.Item
	itemOrder  []string
	containers map[string]*content.Container
	byItem     map[string][]string // item id -> container ids
	assets     map[string]*content.Asset
	byCont     map[string][]string // container id -> asset ids
}

// NewMemoryRepository creates an empty repository over blobs. A nil store
// selects a MemoryBlobStore.
func NewMemoryRepository(blobs BlobStore) *MemoryRepository {
	if blobs == nil {
		blobs = NewMemoryBlobStore()
	}
	return &MemoryRepository{
		blobs:      blobs,
		now:        time.Now,
		items:      make(map[string]*content.Item),
		containers: make(map[string]*content.Container),
		byItem:     make(map[string][]string),
		assets:     make(map[string]*content.Asset),
		byCont:     make(map[string][]string),
	}
}

// AddItem registers an item, replacing any item with the same id
func (m *MemoryRepository) AddItem(item content.Item) *content.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if _, ok := m.items[item.ID]; !ok {
		m.itemOrder = append(m.itemOrder, item.ID)
	}
	stored := item
	m.items[item.ID] = &stored
	return &stored
}

// ItemIDs returns the ids of all items in insertion order
func (m *MemoryRepository) ItemIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.itemOrder)
}

func (m *MemoryRepository) GetItem(ctx context.Context, itemID string) (*content.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, content.ErrNotFound)
	}
	out := *item
	return &out, nil
}

// ListContainers returns the item's containers named name, oldest first
func (m *MemoryRepository) ListContainers(ctx context.Context, itemID string, name string) ([]*content.Container, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.items[itemID]; !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, content.ErrNotFound)
	}
	var out []*content.Container
	for _, id := range m.byItem[itemID] {
		if c := m.containers[id]; c.Name == name {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepository) CreateContainer(ctx context.Context, itemID string, name string) (*content.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[itemID]; !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, content.ErrNotFound)
	}
	c := &content.Container{ID: uuid.NewString(), Name: name, ItemID: itemID}
	m.containers[c.ID] = c
	m.byItem[itemID] = append(m.byItem[itemID], c.ID)
	cp := *c
	return &cp, nil
}

// ListAssets returns the container's assets in creation order
func (m *MemoryRepository) ListAssets(ctx context.Context, containerID string) ([]*content.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.containers[containerID]; !ok {
		return nil, fmt.Errorf("container %s: %w", containerID, content.ErrNotFound)
	}
	ids := m.byCont[containerID]
	out := make([]*content.Asset, 0, len(ids))
	for _, id := range ids {
		a := *m.assets[id]
		a.Extensions = slices.Clone(a.Extensions)
		out = append(out, &a)
	}
	return out, nil
}

func (m *MemoryRepository) OpenAsset(ctx context.Context, assetID string) (io.ReadCloser, error) {
	m.mu.RLock()
	_, ok := m.assets[assetID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID, content.ErrNotFound)
	}
	return m.blobs.GetReader(ctx, assetID)
}

// CreateAsset buffers r completely, stores it and only then links the new
// asset into the container. A failed or cancelled read leaves the
// container unchanged.
func (m *MemoryRepository) CreateAsset(ctx context.Context, containerID string, meta content.AssetMeta, r io.Reader) (*content.Asset, error) {
	m.mu.RLock()
	_, ok := m.containers[containerID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("container %s: %w", containerID, content.ErrNotFound)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %s: %w", meta.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	size, err := m.blobs.Put(ctx, id, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store asset %s: %w", meta.Name, err)
	}

	a := &content.Asset{
		ID:          id,
		ContainerID: containerID,
		Name:        meta.Name,
		MediaType:   meta.MediaType,
		Format:      meta.Format,
		Extensions:  slices.Clone(meta.Extensions),
		Size:        size,
		Description: meta.Description,
		Source:      meta.Source,
		CreatedAt:   m.now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.containers[containerID]; !ok {
		_ = m.blobs.Delete(ctx, id)
		return nil, fmt.Errorf("container %s: %w", containerID, content.ErrNotFound)
	}
	m.assets[id] = a
	m.byCont[containerID] = append(m.byCont[containerID], id)
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) RemoveAsset(ctx context.Context, containerID string, assetID string) error {
	m.mu.Lock()
	ids := m.byCont[containerID]
	i := slices.Index(ids, assetID)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("asset %s in container %s: %w", assetID, containerID, content.ErrNotFound)
	}
	m.byCont[containerID] = slices.Delete(ids, i, i+1)
	delete(m.assets, assetID)
	m.mu.Unlock()

	if err := m.blobs.Delete(ctx, assetID); err != nil {
		return fmt.Errorf("failed to delete blob of %s: %w", assetID, err)
	}
	return nil
}
