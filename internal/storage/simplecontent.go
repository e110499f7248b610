package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-content/pkg/simplecontent"

	"github.com/tendant/simple-content-mediafilter/internal/content"
	"github.com/tendant/simple-content-mediafilter/internal/formats"
)

// SimpleContentRepository maps the item model onto a simple-content
// service. An item is an uploaded content; its source container holds that
// content alone. Every other container is the set of contents derived from
// it with the container name, lower-cased, as derivation type.
type SimpleContentRepository struct {
	service         simplecontent.Service
	registry        *formats.Registry
	sourceContainer string
}

// NewSimpleContentRepository creates the adapter. sourceContainer names the
// container that holds the item's own content.
func NewSimpleContentRepository(service simplecontent.Service, registry *formats.Registry, sourceContainer string) *SimpleContentRepository {
	return &SimpleContentRepository{
		service:         service,
		registry:        registry,
		sourceContainer: sourceContainer,
	}
}

func parseID(kind, id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID %q: %w", kind, id, err)
	}
	return u, nil
}

func containerID(itemID, name string) string {
	return itemID + "/" + name
}

func splitContainerID(id string) (itemID, name string, err error) {
	itemID, name, ok := strings.Cut(id, "/")
	if !ok || itemID == "" || name == "" {
		return "", "", fmt.Errorf("invalid container ID %q: %w", id, content.ErrNotFound)
	}
	return itemID, name, nil
}

func derivationType(container string) string {
	return strings.ToLower(container)
}

const octetStream = "application/octet-stream"

// derivation metadata keys carrying the asset fields the service has no
// column for
const (
	paramMediaType   = "media_type"
	paramFormat      = "format"
	paramDescription = "description"
	paramSource      = "source"
)

func derivationParams(meta content.AssetMeta) map[string]interface{} {
	params := make(map[string]interface{})
	for k, v := range map[string]string{
		paramMediaType:   formats.NormalizeMediaType(meta.MediaType),
		paramFormat:      meta.Format,
		paramDescription: meta.Description,
		paramSource:      meta.Source,
	} {
		if v != "" {
			params[k] = v
		}
	}
	return params
}

func paramString(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}

func (s *SimpleContentRepository) GetItem(ctx context.Context, itemID string) (*content.Item, error) {
	id, err := parseID("item", itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", content.ErrNotFound, err)
	}
	if _, err := s.service.GetContent(ctx, id); err != nil {
		return nil, fmt.Errorf("item %s: %w: %w", itemID, content.ErrNotFound, err)
	}
	return &content.Item{ID: itemID}, nil
}

func (s *SimpleContentRepository) ListContainers(ctx context.Context, itemID string, name string) ([]*content.Container, error) {
	c := &content.Container{ID: containerID(itemID, name), Name: name, ItemID: itemID}
	if name == s.sourceContainer {
		return []*content.Container{c}, nil
	}
	derived, err := s.listDerived(ctx, itemID, name)
	if err != nil {
		return nil, err
	}
	if len(derived) == 0 {
		return nil, nil
	}
	return []*content.Container{c}, nil
}

// CreateContainer returns the virtual container; it becomes listable once
// it holds a derived content
func (s *SimpleContentRepository) CreateContainer(ctx context.Context, itemID string, name string) (*content.Container, error) {
	return &content.Container{ID: containerID(itemID, name), Name: name, ItemID: itemID}, nil
}

func (s *SimpleContentRepository) listDerived(ctx context.Context, itemID, name string) ([]*simplecontent.DerivedContent, error) {
	parentID, err := parseID("item", itemID)
	if err != nil {
		return nil, err
	}
	derived, err := s.service.ListDerivedContent(ctx,
		simplecontent.WithParentID(parentID),
		simplecontent.WithDerivationType(derivationType(name)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list derived content: %w", err)
	}
	return derived, nil
}

func (s *SimpleContentRepository) ListAssets(ctx context.Context, cid string) ([]*content.Asset, error) {
	itemID, name, err := splitContainerID(cid)
	if err != nil {
		return nil, err
	}

	if name == s.sourceContainer {
		a, err := s.asset(ctx, cid, itemID, "", nil)
		if err != nil {
			return nil, err
		}
		return []*content.Asset{a}, nil
	}

	derived, err := s.listDerived(ctx, itemID, name)
	if err != nil {
		return nil, err
	}
	out := make([]*content.Asset, 0, len(derived))
	for _, d := range derived {
		a, err := s.asset(ctx, cid, d.ContentID.String(), d.Variant, d.DerivationParams)
		if err != nil {
			// deleted derivatives stay in the relationship list
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// asset prefers the fields recorded with a derivation. Blob stores that do
// not sniff content report application/octet-stream, so the format registry
// decides the media type in that case.
func (s *SimpleContentRepository) asset(ctx context.Context, cid, contentID, fallbackName string, params map[string]interface{}) (*content.Asset, error) {
	id, err := parseID("content", contentID)
	if err != nil {
		return nil, err
	}
	details, err := s.service.GetContentDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get content details: %w", err)
	}

	a := &content.Asset{
		ID:          contentID,
		ContainerID: cid,
		Name:        details.FileName,
		MediaType:   paramString(params, paramMediaType),
		Format:      paramString(params, paramFormat),
		Size:        details.FileSize,
		Description: paramString(params, paramDescription),
		Source:      paramString(params, paramSource),
	}
	if a.Name == "" {
		a.Name = fallbackName
	}
	if a.MediaType == "" {
		if mt := formats.NormalizeMediaType(details.MimeType); mt != octetStream {
			a.MediaType = mt
		}
	}

	f, ok := s.registry.ByMediaType(a.MediaType)
	if !ok && a.Format != "" {
		f, ok = s.registry.ByShortDescription(a.Format)
	}
	if !ok {
		f, ok = s.registry.ByFileName(a.Name)
	}
	if ok {
		if a.Format == "" {
			a.Format = f.ShortDescription
		}
		a.Extensions = slices.Clone(f.Extensions)
		if a.MediaType == "" {
			a.MediaType = f.MediaType
		}
	}
	if a.MediaType == "" {
		a.MediaType = octetStream
	}
	return a, nil
}

func (s *SimpleContentRepository) OpenAsset(ctx context.Context, assetID string) (io.ReadCloser, error) {
	id, err := parseID("content", assetID)
	if err != nil {
		return nil, err
	}
	reader, err := s.service.DownloadContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to download content: %w", err)
	}
	return reader, nil
}

// CreateAsset buffers the derivative before uploading it so a failed read
// never reaches the service
func (s *SimpleContentRepository) CreateAsset(ctx context.Context, cid string, meta content.AssetMeta, r io.Reader) (*content.Asset, error) {
	itemID, name, err := splitContainerID(cid)
	if err != nil {
		return nil, err
	}
	parentID, err := parseID("item", itemID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %s: %w", meta.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dt := derivationType(name)
	derived, err := s.service.UploadDerivedContent(ctx, simplecontent.UploadDerivedContentRequest{
		ParentID:       parentID,
		DerivationType: dt,
		Variant:        meta.Name,
		Reader:         bytes.NewReader(data),
		FileName:       meta.Name,
		FileSize:       int64(len(data)),
		Tags:           []string{"mediafilter", dt},
		Metadata:       derivationParams(meta),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload derived content: %w", err)
	}

	return &content.Asset{
		ID:          derived.ID.String(),
		ContainerID: cid,
		Name:        meta.Name,
		MediaType:   formats.NormalizeMediaType(meta.MediaType),
		Format:      meta.Format,
		Extensions:  slices.Clone(meta.Extensions),
		Size:        int64(len(data)),
		Description: meta.Description,
		Source:      meta.Source,
	}, nil
}

func (s *SimpleContentRepository) RemoveAsset(ctx context.Context, cid string, assetID string) error {
	id, err := parseID("content", assetID)
	if err != nil {
		return err
	}
	if err := s.service.DeleteContent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}
