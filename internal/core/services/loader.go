package services

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/cdm-corpus/corpus/internal/core/domain"
	"github.com/cdm-corpus/corpus/internal/core/ports/driven"
)

// LoaderConfig configures a Loader (spec.md §4.4, §5 "I/O is concurrent").
// Grounded on worker.WorkerConfig's config-struct-plus-logger shape.
type LoaderConfig struct {
	Registry     *StorageRegistry
	Library      *DocumentLibrary
	Materializer driven.Materializer
	IDs          *domain.IDGenerator
	Logger       *slog.Logger
	// Concurrency bounds how many documents load in parallel within one
	// fan-out round. Defaults to 8.
	Concurrency int
}

// Loader fetches documents on demand and fans out over newly discovered
// imports until fixpoint, at most one concurrent load per path (spec.md
// §4.4). Grounded on worker.Worker's bounded-concurrency pool shape,
// adapted from a queue-drain loop into round-based breadth-first fan-out.
type Loader struct {
	registry     *StorageRegistry
	library      *DocumentLibrary
	materializer driven.Materializer
	ids          *domain.IDGenerator
	logger       *slog.Logger
	concurrency  int
}

// NewLoader builds a loader from cfg.
func NewLoader(cfg LoaderConfig) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Loader{
		registry:     cfg.Registry,
		library:      cfg.Library,
		materializer: cfg.Materializer,
		ids:          cfg.IDs,
		logger:       logger,
		concurrency:  concurrency,
	}
}

// EnsureLoaded fetches every document in paths (and transitively, every
// document they import) that is not already in the library, running each
// round's fetches concurrently and bounded (spec.md §5 "the loader fans
// out one task per missing document and awaits their union; after each
// batch, newly discovered imports are enqueued and another round is
// spawned until fixpoint").
func (l *Loader) EnsureLoaded(ctx context.Context, paths []string) error {
	frontier := paths
	for len(frontier) > 0 {
		next, err := l.loadRound(ctx, frontier)
		if err != nil {
			return err
		}
		frontier = next
	}
	return nil
}

func (l *Loader) loadRound(ctx context.Context, paths []string) ([]string, error) {
	sem := make(chan struct{}, l.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	var next []string

	for _, p := range paths {
		if !l.library.NeedToLoad(p) {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			doc, err := l.loadOne(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			for _, imp := range doc.Imports {
				next = append(next, l.registry.Rebase(imp.Path, doc))
			}
		}(p)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return next, nil
}

// loadOne applies the at-most-one-concurrent-load-per-path gate and
// performs the actual fetch-and-materialize for the leader.
func (l *Loader) loadOne(ctx context.Context, corpusPath string) (*domain.Document, error) {
	gate, isLeader := l.library.BeginLoad(corpusPath)
	if !isLeader {
		<-gate.done
		return gate.doc, gate.err
	}

	doc, err := l.fetchAndMaterialize(ctx, corpusPath)
	l.library.FinishLoad(corpusPath, doc, err)
	if err != nil {
		l.logger.Warn("document load failed", "path", corpusPath, "error", err)
		return nil, err
	}
	l.logger.Info("document loaded", "path", corpusPath, "imports", len(doc.Imports))
	return doc, nil
}

func (l *Loader) fetchAndMaterialize(ctx context.Context, corpusPath string) (*domain.Document, error) {
	ns, rest, err := l.registry.Split(corpusPath)
	if err != nil {
		return nil, err
	}
	adapter, err := l.registry.Adapter(ns)
	if err != nil {
		return nil, err
	}
	raw, err := adapter.Read(ctx, rest)
	if err != nil {
		return nil, err
	}

	doc := domain.NewDocument(ns, path.Base(rest), corpusPath)
	if err := l.materializer.Materialize(ctx, raw, "json", doc, l.ids); err != nil {
		return nil, err
	}

	folder, err := l.ensureFolder(ns, path.Dir(rest))
	if err != nil {
		return nil, err
	}
	folder.AddDocument(doc)
	l.library.Add(corpusPath, folder, doc)
	return doc, nil
}

// ensureFolder walks/creates the folder chain for dir under namespace's
// root, without touching storage (the adapter already proved the document
// exists by serving Read). Creating missing segments here, rather than
// failing when one is absent, is a deliberate choice recorded in
// DESIGN.md: the adapter contract has no way to query folder existence
// ahead of a load.
func (l *Loader) ensureFolder(namespace, dir string) (*domain.Folder, error) {
	root, err := l.registry.Root(namespace)
	if err != nil {
		return nil, err
	}
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return root, nil
	}
	current := root
	for _, segment := range strings.Split(dir, "/") {
		child := current.ChildFolder(segment)
		if child == nil {
			child = domain.NewFolder(namespace, segment, current.Path+"/"+segment, current)
			current.AddChildFolder(child)
		}
		current = child
	}
	return current, nil
}

// DiscoverFolder lists every document transitively reachable under
// corpusPath via the namespace's adapter, returning their absolute corpus
// paths without loading them. Used to bootstrap a corpus from a folder
// root (spec.md §4.1's folder tree, walked through the §6 adapter
// contract's ListChildren).
func (l *Loader) DiscoverFolder(ctx context.Context, corpusPath string) ([]string, error) {
	ns, rest, err := l.registry.Split(corpusPath)
	if err != nil {
		return nil, err
	}
	adapter, err := l.registry.Adapter(ns)
	if err != nil {
		return nil, err
	}
	return l.discover(ctx, adapter, ns, rest)
}

func (l *Loader) discover(ctx context.Context, adapter driven.StorageAdapter, ns, dir string) ([]string, error) {
	children, err := adapter.ListChildren(ctx, dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range children {
		childPath := strings.TrimSuffix(dir, "/") + "/" + name
		if strings.HasSuffix(name, ".cdm.json") {
			out = append(out, ns+":"+childPath)
			continue
		}
		nested, err := l.discover(ctx, adapter, ns, childPath)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}
