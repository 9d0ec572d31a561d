package mcpservice

import (
	"context"
	"fmt"
	"sync"

	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/sessions"
)

// ResourceReader produces the contents of a single resource on demand.
type ResourceReader func(ctx context.Context, uri string) ([]mcp.ResourceContents, error)

// StaticResource pairs a resource descriptor with its contents. When Reader is
// set it is called on every read; otherwise Contents is returned as is.
type StaticResource struct {
	Descriptor mcp.Resource
	Contents   []mcp.ResourceContents
	Reader     ResourceReader
}

// TextResource builds a StaticResource holding a single text body.
func TextResource(uri, name, description, mimeType, text string) StaticResource {
	return StaticResource{
		Descriptor: mcp.Resource{URI: uri, Name: name, Description: description, MimeType: mimeType},
		Contents:   []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Text: text}},
	}
}

// StaticResources is a fixed, threadsafe resource catalog.
type StaticResources struct {
	mu        sync.RWMutex
	resources []mcp.Resource
	byURI     map[string]StaticResource
}

var _ ResourceRegistry = (*StaticResources)(nil)

// NewStaticResources constructs a catalog from defs. Later duplicates of a uri
// are ignored.
func NewStaticResources(defs ...StaticResource) *StaticResources {
	sr := &StaticResources{byURI: make(map[string]StaticResource, len(defs))}
	for _, d := range defs {
		if _, dup := sr.byURI[d.Descriptor.URI]; dup || d.Descriptor.URI == "" {
			continue
		}
		sr.resources = append(sr.resources, d.Descriptor)
		sr.byURI[d.Descriptor.URI] = d
	}
	return sr
}

func (sr *StaticResources) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	out := make([]mcp.Resource, len(sr.resources))
	copy(out, sr.resources)
	return out, nil
}

func (sr *StaticResources) ReadResource(ctx context.Context, _ *sessions.Session, uri string) ([]mcp.ResourceContents, error) {
	sr.mu.RLock()
	def, ok := sr.byURI[uri]
	sr.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("resource %q: %w", uri, ErrNotFound)
	}
	if def.Reader != nil {
		return def.Reader(ctx, uri)
	}
	out := make([]mcp.ResourceContents, len(def.Contents))
	copy(out, def.Contents)
	return out, nil
}

// MultiResources merges several catalogs. Listing concatenates them in order;
// a read is served by the first catalog that does not report ErrNotFound.
type MultiResources []ResourceRegistry

var _ ResourceRegistry = MultiResources(nil)

func (m MultiResources) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	var out []mcp.Resource
	seen := make(map[string]struct{})
	for _, r := range m {
		items, err := r.ListResources(ctx)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if _, dup := seen[it.URI]; dup {
				continue
			}
			seen[it.URI] = struct{}{}
			out = append(out, it)
		}
	}
	if out == nil {
		out = []mcp.Resource{}
	}
	return out, nil
}

func (m MultiResources) ReadResource(ctx context.Context, sess *sessions.Session, uri string) ([]mcp.ResourceContents, error) {
	for _, r := range m {
		contents, err := r.ReadResource(ctx, sess, uri)
		if err == nil {
			return contents, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("resource %q: %w", uri, ErrNotFound)
}
