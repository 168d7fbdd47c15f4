package shadowtwin

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// memProvider is an in-memory StorageProvider used by the package tests
type memProvider struct {
	items   map[string]*memItem
	nextID  int
	clock   time.Time
	deleted []string

	failDelete bool
}

type memItem struct {
	item    interfaces.StorageItem
	content []byte
}

func newMemProvider() *memProvider {
	p := &memProvider{
		items: make(map[string]*memItem),
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	p.addFolder("", "root")
	return p
}

func (p *memProvider) tick() time.Time {
	p.clock = p.clock.Add(time.Minute)
	return p.clock
}

func (p *memProvider) addFolder(parentID, name string) *interfaces.StorageItem {
	p.nextID++
	id := fmt.Sprintf("folder-%d", p.nextID)
	p.items[id] = &memItem{item: interfaces.StorageItem{
		ID: id, ParentID: parentID, Name: name, IsFolder: true, UpdatedAt: p.tick(),
	}}
	return &p.items[id].item
}

func (p *memProvider) addFile(parentID, name string, content []byte) *interfaces.StorageItem {
	p.nextID++
	id := fmt.Sprintf("file-%d", p.nextID)
	p.items[id] = &memItem{
		item: interfaces.StorageItem{
			ID: id, ParentID: parentID, Name: name,
			Size: int64(len(content)), UpdatedAt: p.tick(),
		},
		content: content,
	}
	return &p.items[id].item
}

func (p *memProvider) ListItemsByID(_ context.Context, folderID string) ([]interfaces.StorageItem, error) {
	var out []interfaces.StorageItem
	for _, it := range p.items {
		if it.item.ParentID == folderID {
			out = append(out, it.item)
		}
	}
	return out, nil
}

func (p *memProvider) GetItemByID(_ context.Context, itemID string) (*interfaces.StorageItem, error) {
	it, ok := p.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item not found: %s", itemID)
	}
	item := it.item
	return &item, nil
}

func (p *memProvider) CreateFolder(_ context.Context, parentID, name string) (*interfaces.StorageItem, error) {
	for _, it := range p.items {
		if it.item.ParentID == parentID && it.item.Name == name && it.item.IsFolder {
			item := it.item
			return &item, nil
		}
	}
	return p.addFolder(parentID, name), nil
}

func (p *memProvider) UploadFile(_ context.Context, parentID, name string, content []byte) (*interfaces.StorageItem, error) {
	for _, it := range p.items {
		if it.item.ParentID == parentID && it.item.Name == name && !it.item.IsFolder {
			it.content = content
			it.item.Size = int64(len(content))
			it.item.UpdatedAt = p.tick()
			item := it.item
			return &item, nil
		}
	}
	return p.addFile(parentID, name, content), nil
}

func (p *memProvider) DeleteItem(_ context.Context, itemID string) error {
	if p.failDelete {
		return fmt.Errorf("delete refused")
	}
	if _, ok := p.items[itemID]; !ok {
		return fmt.Errorf("item not found: %s", itemID)
	}
	delete(p.items, itemID)
	p.deleted = append(p.deleted, itemID)
	return nil
}

func (p *memProvider) MoveItem(_ context.Context, itemID, newParentID string) (*interfaces.StorageItem, error) {
	it, ok := p.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item not found: %s", itemID)
	}
	it.item.ParentID = newParentID
	it.item.UpdatedAt = p.tick()
	item := it.item
	return &item, nil
}

func (p *memProvider) GetBinary(_ context.Context, itemID string) ([]byte, error) {
	it, ok := p.items[itemID]
	if !ok || it.item.IsFolder {
		return nil, fmt.Errorf("item not found: %s", itemID)
	}
	return it.content, nil
}
