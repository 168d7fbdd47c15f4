package interfaces

import (
	"context"
	"time"
)

// StorageItem is one file or folder exposed by a storage provider
type StorageItem struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"`
	Name      string    `json:"name"`
	IsFolder  bool      `json:"is_folder"`
	MimeType  string    `json:"mime_type,omitempty"`
	Size      int64     `json:"size,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// StorageProvider abstracts the backing store of a library (local filesystem,
// cloud drive, ...). The pipeline never branches on backend type except
// through this interface.
type StorageProvider interface {
	// ListItemsByID lists the direct children of a folder
	ListItemsByID(ctx context.Context, folderID string) ([]StorageItem, error)

	GetItemByID(ctx context.Context, itemID string) (*StorageItem, error)

	// CreateFolder creates a child folder and returns it. Creating a folder
	// that already exists returns the existing folder.
	CreateFolder(ctx context.Context, parentID, name string) (*StorageItem, error)

	// UploadFile creates or replaces a file in the given folder
	UploadFile(ctx context.Context, parentID, name string, content []byte) (*StorageItem, error)

	DeleteItem(ctx context.Context, itemID string) error

	// MoveItem moves an item into another folder
	MoveItem(ctx context.Context, itemID, newParentID string) (*StorageItem, error)

	GetBinary(ctx context.Context, itemID string) ([]byte, error)
}
