package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/tendant/simple-content-mediafilter/internal/content"
	"github.com/tendant/simple-content-mediafilter/internal/formats"
	"github.com/tendant/simple-content-mediafilter/internal/policy"
)

// ItemFile is the optional per-item metadata file of a tree
const ItemFile = "item.yaml"

// unknownFormat is assigned to files whose extension is not registered
var unknownFormat = formats.Format{ShortDescription: "Unknown", MediaType: octetStream}

type itemManifest struct {
	Handle     string        `yaml:"handle"`
	Collection string        `yaml:"collection"`
	Rules      []policy.Rule `yaml:"rules"`
}

// LoadTree imports a directory laid out as <item>/<container>/<file>. Each
// item directory may hold an item.yaml with its handle, owning collection
// and access rules; the rules are given to the item, its containers and its
// files. It returns the imported item ids.
func LoadTree(ctx context.Context, dir string, repo *MemoryRepository, rules policy.Store, registry *formats.Registry) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree %s: %w", dir, err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		id, err := loadItem(ctx, filepath.Join(dir, e.Name()), e.Name(), repo, rules, registry)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func loadItem(ctx context.Context, dir, id string, repo *MemoryRepository, rules policy.Store, registry *formats.Registry) (string, error) {
	var manifest itemManifest
	data, err := os.ReadFile(filepath.Join(dir, ItemFile))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return "", fmt.Errorf("failed to parse %s of %s: %w", ItemFile, id, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("failed to read %s of %s: %w", ItemFile, id, err)
	}

	repo.AddItem(content.Item{ID: id, Handle: manifest.Handle, CollectionID: manifest.Collection})
	grant := func(objectID string) error {
		if rules == nil {
			return nil
		}
		for _, r := range manifest.Rules {
			if err := rules.AddRule(ctx, objectID, r); err != nil {
				return fmt.Errorf("failed to grant rule on %s: %w", objectID, err)
			}
		}
		return nil
	}
	if err := grant(id); err != nil {
		return "", err
	}

	containers, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read item %s: %w", id, err)
	}
	for _, ce := range containers {
		if !ce.IsDir() {
			continue
		}
		c, err := repo.CreateContainer(ctx, id, ce.Name())
		if err != nil {
			return "", err
		}
		if err := grant(c.ID); err != nil {
			return "", err
		}

		files, err := os.ReadDir(filepath.Join(dir, ce.Name()))
		if err != nil {
			return "", fmt.Errorf("failed to read container %s/%s: %w", id, ce.Name(), err)
		}
		for _, fe := range files {
			if fe.IsDir() {
				continue
			}
			a, err := importFile(ctx, filepath.Join(dir, ce.Name(), fe.Name()), c.ID, repo, registry)
			if err != nil {
				return "", err
			}
			if err := grant(a.ID); err != nil {
				return "", err
			}
		}
	}
	return id, nil
}

func importFile(ctx context.Context, path, containerID string, repo *MemoryRepository, registry *formats.Registry) (*content.Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	format, ok := registry.ByFileName(name)
	if !ok {
		format = unknownFormat
	}
	return repo.CreateAsset(ctx, containerID, content.AssetMeta{
		Name:       name,
		MediaType:  format.MediaType,
		Format:     format.ShortDescription,
		Extensions: slices.Clone(format.Extensions),
	}, f)
}

// Export writes the assets of every container named containerName of the
// given items to dir/<item>/<container>/<asset name> and returns the
// written paths
func Export(ctx context.Context, repo *MemoryRepository, itemIDs []string, containerName, dir string) ([]string, error) {
	out, err := NewFilesystemStorage(dir)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, itemID := range itemIDs {
		containers, err := repo.ListContainers(ctx, itemID, containerName)
		if err != nil {
			return written, err
		}
		for _, c := range containers {
			assets, err := repo.ListAssets(ctx, c.ID)
			if err != nil {
				return written, err
			}
			for _, a := range assets {
				key := filepath.Join(itemID, containerName, a.Name)
				if err := exportAsset(ctx, repo, out, a.ID, key); err != nil {
					return written, err
				}
				written = append(written, filepath.Join(dir, key))
			}
		}
	}
	return written, nil
}

func exportAsset(ctx context.Context, repo *MemoryRepository, out *FilesystemStorage, assetID, key string) error {
	r, err := repo.OpenAsset(ctx, assetID)
	if err != nil {
		return err
	}
	defer r.Close()
	if _, err := out.Put(ctx, key, r); err != nil {
		return fmt.Errorf("failed to export %s: %w", key, err)
	}
	return nil
}
