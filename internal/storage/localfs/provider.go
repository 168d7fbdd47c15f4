// -----------------------------------------------------------------------
// Local filesystem storage provider
// -----------------------------------------------------------------------

package localfs

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// RootID is the item ID of a library's root folder
const RootID = "."

// Provider implements StorageProvider over a directory tree. Item IDs are
// slash-separated paths relative to the library root; the root itself is ".".
// IDs never contain ".." segments, so every item resolves inside the root.
type Provider struct {
	root   string
	logger arbor.ILogger
}

// NewProvider creates a provider rooted at the given directory
func NewProvider(root string, logger arbor.ILogger) (*Provider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open library root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root is not a directory: %s", abs)
	}
	return &Provider{root: abs, logger: logger}, nil
}

var _ interfaces.StorageProvider = (*Provider)(nil)

func (p *Provider) ListItemsByID(ctx context.Context, folderID string) ([]interfaces.StorageItem, error) {
	dir, err := p.resolve(folderID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}

	items := make([]interfaces.StorageItem, 0, len(entries))
	for _, entry := range entries {
		childID := path.Join(cleanID(folderID), entry.Name())
		item, err := p.itemFromPath(childID)
		if err != nil {
			p.logger.Warn().Err(err).Str("item", childID).Msg("Skipping unreadable entry")
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

func (p *Provider) GetItemByID(ctx context.Context, itemID string) (*interfaces.StorageItem, error) {
	return p.itemFromPath(itemID)
}

func (p *Provider) CreateFolder(ctx context.Context, parentID, name string) (*interfaces.StorageItem, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	childID := path.Join(cleanID(parentID), name)
	dir, err := p.resolve(childID)
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("item exists and is not a folder: %s", childID)
		}
		return p.itemFromPath(childID)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", childID, err)
	}
	return p.itemFromPath(childID)
}

func (p *Provider) UploadFile(ctx context.Context, parentID, name string, content []byte) (*interfaces.StorageItem, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	childID := path.Join(cleanID(parentID), name)
	target, err := p.resolve(childID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent folder for %s: %w", childID, err)
	}
	if err := os.WriteFile(target, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write file %s: %w", childID, err)
	}
	return p.itemFromPath(childID)
}

func (p *Provider) DeleteItem(ctx context.Context, itemID string) error {
	if cleanID(itemID) == RootID {
		return fmt.Errorf("refusing to delete library root")
	}
	target, err := p.resolve(itemID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", itemID, err)
	}
	return nil
}

func (p *Provider) MoveItem(ctx context.Context, itemID, newParentID string) (*interfaces.StorageItem, error) {
	id := cleanID(itemID)
	if id == RootID {
		return nil, fmt.Errorf("refusing to move library root")
	}
	src, err := p.resolve(id)
	if err != nil {
		return nil, err
	}
	destID := path.Join(cleanID(newParentID), path.Base(id))
	dest, err := p.resolve(destID)
	if err != nil {
		return nil, err
	}
	if err := os.Rename(src, dest); err != nil {
		return nil, fmt.Errorf("failed to move item %s: %w", itemID, err)
	}
	return p.itemFromPath(destID)
}

func (p *Provider) GetBinary(ctx context.Context, itemID string) ([]byte, error) {
	target, err := p.resolve(itemID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read item %s: %w", itemID, err)
	}
	return data, nil
}

// ---- Helpers ----

func (p *Provider) itemFromPath(itemID string) (*interfaces.StorageItem, error) {
	id := cleanID(itemID)
	target, err := p.resolve(id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("item not found: %s", itemID)
	}

	item := &interfaces.StorageItem{
		ID:        id,
		ParentID:  parentOf(id),
		Name:      info.Name(),
		IsFolder:  info.IsDir(),
		UpdatedAt: info.ModTime(),
	}
	if id == RootID {
		item.Name = filepath.Base(p.root)
		item.ParentID = ""
	}
	if !info.IsDir() {
		item.Size = info.Size()
		item.MimeType = mime.TypeByExtension(strings.ToLower(path.Ext(info.Name())))
	}
	return item, nil
}

func (p *Provider) resolve(itemID string) (string, error) {
	id := cleanID(itemID)
	for _, seg := range strings.Split(id, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid item id: %s", itemID)
		}
	}
	if id == RootID {
		return p.root, nil
	}
	return filepath.Join(p.root, filepath.FromSlash(id)), nil
}

func cleanID(itemID string) string {
	id := path.Clean(strings.TrimPrefix(itemID, "/"))
	if id == "" || id == "." {
		return RootID
	}
	return id
}

func parentOf(id string) string {
	if id == RootID {
		return ""
	}
	parent := path.Dir(id)
	if parent == "." {
		return RootID
	}
	return parent
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid item name: %q", name)
	}
	return nil
}
