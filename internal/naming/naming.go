// Package naming computes derivative names and finds derivatives that
// already carry a computed name.
package naming

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tendant/simple-content-mediafilter/internal/content"
	"github.com/tendant/simple-content-mediafilter/internal/formats"
)

// Template placeholders
const (
	SourcePlaceholder    = "$src"
	ExtensionPlaceholder = "$ext"
)

// ErrNoExtension is returned when the target format has no registered extension
var ErrNoExtension = errors.New("target format has no registered extension")

// Lister is the part of the repository the namer reads
type Lister interface {
	ListContainers(ctx context.Context, itemID string, name string) ([]*content.Container, error)
	ListAssets(ctx context.Context, containerID string) ([]*content.Asset, error)
}

// Namer names derivatives written to one target container
type Namer struct {
	container string
	template  string
	extension string
}

// New creates a namer for the target container, naming template and target
// format. An empty template appends the format's first extension.
func New(container string, template string, target formats.Format) (*Namer, error) {
	ext := target.PrimaryExtension()
	if ext == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoExtension, target.ShortDescription)
	}
	return &Namer{
		container: container,
		template:  template,
		extension: ext,
	}, nil
}

// Container returns the target container name
func (n *Namer) Container() string {
	return n.container
}

// Name returns the derivative name for a source name
func (n *Namer) Name(sourceName string) string {
	if n.template == "" {
		return sourceName + "." + n.extension
	}
	return strings.NewReplacer(
		SourcePlaceholder, sourceName,
		ExtensionPlaceholder, n.extension,
	).Replace(n.template)
}

// Existing returns the first asset in the item's target containers whose
// name equals the derivative name of sourceName, or nil.
func (n *Namer) Existing(ctx context.Context, repo Lister, itemID string, sourceName string) (*content.Asset, error) {
	target := n.Name(sourceName)

	containers, err := repo.ListContainers(ctx, itemID, n.container)
	if err != nil {
		return nil, fmt.Errorf("failed to list target containers: %w", err)
	}

	for _, c := range containers {
		assets, err := repo.ListAssets(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list assets of %s: %w", c.ID, err)
		}
		for _, a := range assets {
			if a.Name == target {
				return a, nil
			}
		}
	}

	return nil, nil
}
