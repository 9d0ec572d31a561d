package mcpservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/sessions"
)

// DefaultDocsBaseURI prefixes every resource served by FSResources.
const DefaultDocsBaseURI = "tudescuento://docs"

// FSResources exposes the regular files below an OS directory as resources
// named <baseURI>/<relative path>. The listing is cached and rebuilt whenever
// Watch observes a create, remove or rename under the root.
//
// Reads resolve symlinks and refuse anything that lands outside the root.
type FSResources struct {
	root    string // absolute, symlink-evaluated
	baseURI string
	log     *slog.Logger

	mu      sync.RWMutex
	catalog []mcp.Resource
}

var _ ResourceRegistry = (*FSResources)(nil)

// FSOption configures FSResources.
type FSOption func(*FSResources)

// WithBaseURI sets the URI prefix used in Resource.URI.
func WithBaseURI(base string) FSOption {
	return func(r *FSResources) { r.baseURI = strings.TrimRight(base, "/") }
}

// WithFSLogger sets the logger used by the watcher.
func WithFSLogger(log *slog.Logger) FSOption {
	return func(r *FSResources) { r.log = log }
}

// NewFSResources scans root and returns the catalog. root must be an
// existing directory.
func NewFSResources(root string, opts ...FSOption) (*FSResources, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve resources dir: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve resources dir: %w", err)
	}
	st, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("stat resources dir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("resources dir %s is not a directory", root)
	}

	r := &FSResources{root: real, baseURI: DefaultDocsBaseURI, log: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	if err := r.Rescan(); err != nil {
		return nil, err
	}
	return r, nil
}

// Rescan rebuilds the cached listing from disk.
func (r *FSResources) Rescan() error {
	var out []mcp.Resource
	err := fs.WalkDir(os.DirFS(r.root), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		out = append(out, mcp.Resource{
			URI:      r.relToURI(p),
			Name:     path.Base(p),
			MimeType: mimeFor(p),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan resources dir: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })

	r.mu.Lock()
	r.catalog = out
	r.mu.Unlock()
	return nil
}

func (r *FSResources) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Resource, len(r.catalog))
	copy(out, r.catalog)
	return out, nil
}

func (r *FSResources) ReadResource(ctx context.Context, _ *sessions.Session, uri string) ([]mcp.ResourceContents, error) {
	rel, ok := r.uriToRel(uri)
	if !ok {
		return nil, fmt.Errorf("resource %q: %w", uri, ErrNotFound)
	}
	real, err := filepath.EvalSymlinks(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil || !within(real, r.root) {
		return nil, fmt.Errorf("resource %q: %w", uri, ErrNotFound)
	}
	data, err := os.ReadFile(real)
	if err != nil {
		return nil, fmt.Errorf("read resource %q: %w", uri, err)
	}
	return []mcp.ResourceContents{contentsFor(uri, mimeFor(rel), data)}, nil
}

// Watch keeps the listing in sync with the directory until ctx is done. It
// returns an error only when the watcher cannot be started.
func (r *FSResources) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start resources watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := r.addDirs(w, r.root); err != nil {
		return fmt.Errorf("watch resources dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					_ = r.addDirs(w, ev.Name)
				}
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := r.Rescan(); err != nil {
				r.log.WarnContext(ctx, "resources.rescan.fail", slog.String("err", err.Error()))
				continue
			}
			r.log.DebugContext(ctx, "resources.rescan.ok", slog.String("path", ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.WarnContext(ctx, "resources.watch.fail", slog.String("err", err.Error()))
		}
	}
}

func (r *FSResources) addDirs(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return w.Add(p)
	})
}

func (r *FSResources) relToURI(rel string) string {
	return r.baseURI + "/" + rel
}

func (r *FSResources) uriToRel(uri string) (string, bool) {
	rel, ok := strings.CutPrefix(uri, r.baseURI+"/")
	if !ok || rel == "" || !fs.ValidPath(rel) {
		return "", false
	}
	return rel, true
}

func within(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func mimeFor(p string) string {
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", "":
		return "text/plain"
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

func contentsFor(uri, mimeType string, data []byte) mcp.ResourceContents {
	if utf8.Valid(data) {
		return mcp.ResourceContents{URI: uri, MimeType: mimeType, Text: string(data)}
	}
	return mcp.ResourceContents{URI: uri, MimeType: mimeType, Blob: base64.StdEncoding.EncodeToString(data)}
}
