// Package content holds the repository model shared by the media filter
// components: items, their named containers and the binary assets inside
// them.
package content

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories for unknown items, containers or
// assets
var ErrNotFound = errors.New("not found")

// Item is a content item owning one or more containers
type Item struct {
	ID string
	// Handle is the persistent identifier, empty for unpublished items
	Handle string
	// CollectionID identifies the owning collection, empty if none
	CollectionID string
}

// DisplayID returns the handle, or a workspace label when the item has none
func (i *Item) DisplayID() string {
	if i.Handle != "" {
		return i.Handle
	}
	return "workspace item: " + i.ID
}

// Container is a named group of assets within an item
type Container struct {
	ID     string
	Name   string
	ItemID string
}

// Asset is a binary content object stored in a container
type Asset struct {
	ID          string
	ContainerID string
	Name        string
	MediaType   string
	// Format is the short format identifier, e.g. "JPEG" or "Text"
	Format     string
	Extensions []string
	Size       int64

	Description string
	// Source records the provenance of a generated asset
	Source    string
	CreatedAt time.Time
}

// AssetMeta describes an asset about to be created
type AssetMeta struct {
	Name        string
	MediaType   string
	Format      string
	Extensions  []string
	Description string
	Source      string
}
