// Package features exercises the acceptance scenarios of spec.md §8
// end-to-end, using godog as the BDD runner (the retrieval pack carries
// no in-repo godog fixture to ground this on; the library itself is the
// standard Go ecosystem choice for Gherkin-driven acceptance tests and is
// wired here rather than left unused in go.mod).
//
// Moniker resolution, priority tie-break, and duplicate declaration are
// exercised directly against the resolver and symbol table, mirroring
// how the services package's own unit tests build documents. Relationship
// extraction and path-format rejection go through the full Corpus,
// including the JSON materializer and an in-memory storage adapter, since
// those scenarios depend on the indexing pipeline end to end.
package features

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cdm-corpus/corpus/internal/adapters/driven/persistence/jsoncdm"
	"github.com/cdm-corpus/corpus/internal/core/domain"
	"github.com/cdm-corpus/corpus/internal/core/ports/driven"
	"github.com/cdm-corpus/corpus/internal/core/services"
	"github.com/cucumber/godog"
)

// memoryAdapter is an in-memory driven.StorageAdapter keyed by raw path.
// The full-corpus scenarios in corpus.feature only ever fetch documents
// by known path, so ListChildren is never exercised here.
type memoryAdapter struct {
	bodies map[string][]byte
}

func newMemoryAdapter() *memoryAdapter {
	return &memoryAdapter{bodies: make(map[string][]byte)}
}

func (a *memoryAdapter) put(path string, body []byte) {
	a.bodies[path] = body
}

func (a *memoryAdapter) Read(ctx context.Context, path string) ([]byte, error) {
	b, ok := a.bodies[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (a *memoryAdapter) ComputeLastModifiedTime(ctx context.Context, path string) (time.Time, error) {
	return time.Time{}, nil
}

func (a *memoryAdapter) ListChildren(ctx context.Context, path string) ([]string, error) {
	return nil, nil
}

var _ driven.StorageAdapter = (*memoryAdapter)(nil)

// declareIn registers a bare entity definition under name inside doc,
// mirroring resolver_test.go's own declareIn helper.
func declareIn(doc *domain.Document, st *services.SymbolTable, ids *domain.IDGenerator, name string) *domain.Definition {
	def := domain.NewDefinition(ids, domain.Entity, name, doc)
	def.DeclaredPath = name
	if err := doc.DeclareAt(name, def); err != nil {
		panic(err)
	}
	st.Declare(name, doc)
	return def
}

// docWithImports builds a Document from a full corpus path such as
// "local:/A.cdm.json", mirroring resolver_test.go's docWithImports but
// keyed the way the feature steps reference documents.
func docWithImports(fullPath string, imports ...*domain.Import) *domain.Document {
	name := fullPath[len("local:/"):]
	d := domain.NewDocument("local", name, fullPath)
	d.Imports = imports
	return d
}

func byPathResolver(docs map[string]*domain.Document) services.ResolveImportFunc {
	return func(importPath string, from *domain.Document) (*domain.Document, error) {
		d, ok := docs[importPath]
		if !ok {
			return nil, domain.ErrNotFound
		}
		return d, nil
	}
}

type wireImport struct {
	CorpusPath string `json:"corpusPath"`
	Moniker    string `json:"moniker,omitempty"`
}

type wireDefinition struct {
	Kind            string           `json:"kind"`
	Name            string           `json:"name"`
	EntityReference string           `json:"entityReference,omitempty"`
	HasAttributes   []wireDefinition `json:"hasAttributes,omitempty"`
	AppliedTraits   []wireTrait      `json:"appliedTraits,omitempty"`
}

type wireTrait struct {
	TraitReference string         `json:"traitReference"`
	Arguments      []wireArgument `json:"arguments,omitempty"`
}

type wireArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wireDocument struct {
	Imports     []wireImport     `json:"imports"`
	Definitions []wireDefinition `json:"definitions"`
}

// corpusScenario holds everything the godog steps accumulate across one
// scenario's lifetime.
type corpusScenario struct {
	// Low-level resolver state (moniker/priority/duplicate scenarios).
	ids          *domain.IDGenerator
	st           *services.SymbolTable
	docs         map[string]*domain.Document
	lastErr      error
	lastResolved *domain.Definition

	// Full-corpus state (relationship/path-format scenarios).
	adapter *memoryAdapter
	bodies  map[string]*wireDocument
	corpus  *services.Corpus
}

func newCorpusScenario() *corpusScenario {
	return &corpusScenario{
		ids:     &domain.IDGenerator{},
		st:      services.NewSymbolTable(),
		docs:    make(map[string]*domain.Document),
		adapter: newMemoryAdapter(),
		bodies:  make(map[string]*wireDocument),
	}
}

func (s *corpusScenario) resolverDoc(path string) *domain.Document {
	d, ok := s.docs[path]
	if !ok {
		d = docWithImports(path)
		s.docs[path] = d
	}
	return d
}

func (s *corpusScenario) wireDoc(path string) *wireDocument {
	d, ok := s.bodies[path]
	if !ok {
		d = &wireDocument{}
		s.bodies[path] = d
	}
	return d
}

func (s *corpusScenario) buildPriorities(path string) error {
	graph := services.NewImportGraphBuilder(byPathResolver(s.docs))
	priorities, err := graph.Build(s.docs[path])
	if err != nil {
		return err
	}
	s.docs[path].SetPriorities(priorities)
	return nil
}

func (s *corpusScenario) flushWireDocs() {
	for path, d := range s.bodies {
		raw, _ := json.Marshal(d)
		rest := path[len("local:"):]
		s.adapter.put(rest, raw)
	}
}

func (s *corpusScenario) buildCorpus() {
	s.flushWireDocs()
	s.corpus = services.NewCorpus(jsoncdm.NewMaterializer(), services.CorpusConfig{DefaultNamespace: "local"})
	s.corpus.RegisterStorage("local", s.adapter)
}

func documentImportsUnderMoniker(s *corpusScenario, from, to, moniker string) error {
	d := s.resolverDoc(from)
	d.Imports = append(d.Imports, &domain.Import{Path: to[len("local:/"):], Moniker: moniker})
	return nil
}

func documentImportsWithoutMoniker(s *corpusScenario, from, to string) error {
	d := s.resolverDoc(from)
	d.Imports = append(d.Imports, &domain.Import{Path: to[len("local:/"):]})
	return nil
}

// documentRedefinesEntity simulates a reindex pass that redeclares name in
// doc under a new *domain.Definition, mirroring IndexingPipeline.declare's
// forget-reset-redeclare sequence.
func documentRedefinesEntity(s *corpusScenario, path, name string) error {
	d := s.resolverDoc(path)
	s.st.Forget(name, d)
	d.ResetDeclarations()
	declareIn(d, s.st, s.ids, name)
	return nil
}

func documentImportsInOrder(s *corpusScenario, from, first, second string) error {
	d := s.resolverDoc(from)
	d.Imports = append(d.Imports,
		&domain.Import{Path: first[len("local:/"):]},
		&domain.Import{Path: second[len("local:/"):]},
	)
	return nil
}

func documentDeclaresEntity(s *corpusScenario, path, name string) error {
	declareIn(s.resolverDoc(path), s.st, s.ids, name)
	return nil
}

func documentDeclaresEntityTwice(s *corpusScenario, path, name string) error {
	d := s.resolverDoc(path)
	def1 := domain.NewDefinition(s.ids, domain.Entity, name, d)
	def1.DeclaredPath = name
	if err := d.DeclareAt(name, def1); err != nil {
		return fmt.Errorf("unexpected error on first declaration: %w", err)
	}
	def2 := domain.NewDefinition(s.ids, domain.Entity, name, d)
	def2.DeclaredPath = name
	s.lastErr = d.DeclareAt(name, def2)
	return nil
}

func resolverIndexes(s *corpusScenario) error {
	for path := range s.docs {
		if err := s.buildPriorities(path); err != nil {
			return err
		}
	}
	return nil
}

func resolvingReturnsEntityFrom(s *corpusScenario, symbol, wrtDocPath, declaringDocPath string) error {
	wrt := s.docs[wrtDocPath]
	r := services.NewResolver(s.st)
	def, doc, err := r.Resolve(services.ResolveRequest{Symbol: symbol, ExpectedType: domain.Entity, WrtDoc: wrt})
	s.lastErr = err
	if err != nil {
		return fmt.Errorf("resolving %q wrt %s: %w", symbol, wrtDocPath, err)
	}
	if doc.Path != declaringDocPath {
		return fmt.Errorf("expected declaration in %s, got %s", declaringDocPath, doc.Path)
	}
	s.lastResolved = def
	return nil
}

// resolvingReturnsNewDefinition re-resolves symbol and asserts it now
// points at a different *domain.Definition than the one stashed by a
// prior resolvingReturnsEntityFrom call, demonstrating that the resolver
// never serves a stale witness after its declaring document is reindexed.
func resolvingReturnsNewDefinition(s *corpusScenario, symbol, wrtDocPath string) error {
	wrt := s.docs[wrtDocPath]
	r := services.NewResolver(s.st)
	def, _, err := r.Resolve(services.ResolveRequest{Symbol: symbol, ExpectedType: domain.Entity, WrtDoc: wrt})
	if err != nil {
		return fmt.Errorf("resolving %q wrt %s: %w", symbol, wrtDocPath, err)
	}
	if def == s.lastResolved {
		return fmt.Errorf("expected a fresh definition for %q, got the same one resolved before the redefinition", symbol)
	}
	return nil
}

func resolvingFailsWithUnresolved(s *corpusScenario, symbol, wrtDocPath string) error {
	wrt := s.docs[wrtDocPath]
	r := services.NewResolver(s.st)
	_, _, err := r.Resolve(services.ResolveRequest{Symbol: symbol, ExpectedType: domain.Entity, WrtDoc: wrt})
	if !errors.Is(err, domain.ErrUnresolvedSymbol) {
		return fmt.Errorf("expected unresolved symbol, got %v", err)
	}
	return nil
}

func indexingFailsWithDuplicateAt(s *corpusScenario, path string) error {
	if !errors.Is(s.lastErr, domain.ErrDuplicateDeclaration) {
		return fmt.Errorf("expected ErrDuplicateDeclaration, got %v", s.lastErr)
	}
	return nil
}

func documentDeclaresEntityWithFK(s *corpusScenario, path, entity, attr, target string) error {
	d := s.wireDoc(path)
	targetDoc := "local:/" + target[:strings.IndexByte(target, '/')] + ".cdm.json"
	d.Imports = append(d.Imports, wireImport{CorpusPath: targetDoc})
	d.Definitions = append(d.Definitions, wireDefinition{
		Kind: "entity",
		Name: entity,
		HasAttributes: []wireDefinition{{
			Kind:            "entityAttribute",
			Name:            attr,
			EntityReference: "Customer",
			AppliedTraits: []wireTrait{{
				TraitReference: "is.identifiedBy",
				Arguments:      []wireArgument{{Name: "attribute", Value: target}},
			}},
		}},
	})
	return nil
}

func wireDocDeclaresEntity(s *corpusScenario, path, name string) error {
	d := s.wireDoc(path)
	d.Definitions = append(d.Definitions, wireDefinition{Kind: "entity", Name: name})
	return nil
}

func calculatesEntityGraphFor(s *corpusScenario, manifestPath string) error {
	s.buildCorpus()
	return s.corpus.CalculateEntityGraph(context.Background(), manifestPath)
}

func outgoingContainsLink(s *corpusScenario, fromEntity, toEntity, attr string) error {
	out := s.corpus.FetchOutgoingRelationships("local:/Orders.cdm.json/" + fromEntity)
	for _, rel := range out {
		if rel.ToEntity == "local:/Customer.cdm.json" && rel.ToAttribute == attr {
			return nil
		}
	}
	return fmt.Errorf("no outgoing relationship to %s on attribute %s found in %v", toEntity, attr, out)
}

func incomingContainsMirror(s *corpusScenario, toEntity string) error {
	in := s.corpus.FetchIncomingRelationships("local:/Customer.cdm.json")
	if len(in) == 0 {
		return fmt.Errorf("expected at least one incoming relationship for %s", toEntity)
	}
	return nil
}

func fetchingObject(s *corpusScenario, path string) error {
	s.buildCorpus()
	_, s.lastErr = s.corpus.FetchObject(context.Background(), path, nil, false)
	return nil
}

func fetchFailsWithPathFormatError(s *corpusScenario) error {
	if !errors.Is(s.lastErr, domain.ErrPathFormat) {
		return fmt.Errorf("expected ErrPathFormat, got %v", s.lastErr)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	s := newCorpusScenario()
	ctx.Before(func(goCtx context.Context, sc *godog.Scenario) (context.Context, error) {
		*s = *newCorpusScenario()
		return goCtx, nil
	})

	ctx.Step(`^document "([^"]*)" imports "([^"]*)" under moniker "([^"]*)"$`,
		func(a, b, c string) error { return documentImportsUnderMoniker(s, a, b, c) })
	ctx.Step(`^document "([^"]*)" imports "([^"]*)" then "([^"]*)" without monikers$`,
		func(a, b, c string) error { return documentImportsInOrder(s, a, b, c) })
	ctx.Step(`^document "([^"]*)" imports "([^"]*)" without a moniker$`,
		func(a, b string) error { return documentImportsWithoutMoniker(s, a, b) })
	ctx.Step(`^document "([^"]*)" redefines entity "([^"]*)"$`,
		func(a, b string) error { return documentRedefinesEntity(s, a, b) })
	ctx.Step(`^document "([^"]*)" declares entity "([^"]*)"$`, func(a, b string) error {
		if err := documentDeclaresEntity(s, a, b); err != nil {
			return err
		}
		return wireDocDeclaresEntity(s, a, b)
	})
	ctx.Step(`^document "([^"]*)" declares entity "([^"]*)" twice$`, func(a, b string) error { return documentDeclaresEntityTwice(s, a, b) })
	ctx.Step(`^document "([^"]*)" declares entity "([^"]*)" with an identifiedBy attribute "([^"]*)" referencing "([^"]*)"$`,
		func(a, b, c, d string) error { return documentDeclaresEntityWithFK(s, a, b, c, d) })
	ctx.Step(`^the corpus is indexed$`, func() error { return resolverIndexes(s) })
	ctx.Step(`^resolving "([^"]*)" with wrt-doc "([^"]*)" returns the entity declared in "([^"]*)"$`,
		func(a, b, c string) error { return resolvingReturnsEntityFrom(s, a, b, c) })
	ctx.Step(`^resolving "([^"]*)" with wrt-doc "([^"]*)" fails with an unresolved symbol error$`,
		func(a, b string) error { return resolvingFailsWithUnresolved(s, a, b) })
	ctx.Step(`^resolving "([^"]*)" with wrt-doc "([^"]*)" returns a new definition for "([^"]*)"$`,
		func(a, b, c string) error { return resolvingReturnsNewDefinition(s, a, b) })
	ctx.Step(`^indexing fails with a duplicate declaration error at path "([^"]*)"$`,
		func(a string) error { return indexingFailsWithDuplicateAt(s, a) })
	ctx.Step(`^the corpus calculates the entity graph for "([^"]*)"$`, func(a string) error { return calculatesEntityGraphFor(s, a) })
	ctx.Step(`^the outgoing relationships for "([^"]*)" contain a link to "([^"]*)" on attribute "([^"]*)"$`,
		func(a, b, c string) error { return outgoingContainsLink(s, a, b, c) })
	ctx.Step(`^the incoming relationships for "([^"]*)" contain the mirrored link$`, func(a string) error { return incomingContainsMirror(s, a) })
	ctx.Step(`^fetching object "([^"]*)"$`, func(a string) error { return fetchingObject(s, a) })
	ctx.Step(`^the fetch fails with a path format error$`, func() error { return fetchFailsWithPathFormatError(s) })
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"corpus.feature"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
