package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// IndexingPipelineConfig configures an IndexingPipeline.
type IndexingPipelineConfig struct {
	Library      *DocumentLibrary
	Symbols      *SymbolTable
	GraphBuilder *ImportGraphBuilder
	Resolver     *Resolver
	CacheKeys    *CacheKeyEngine
	Logger       *slog.Logger
}

// IndexingPipeline runs the eight-stage indexing pass over every dirty
// document (spec.md §4.5). Grounded on services/sync_orchestrator.go's
// "run every registered stage over the current batch" shape.
type IndexingPipeline struct {
	library      *DocumentLibrary
	symbols      *SymbolTable
	graphBuilder *ImportGraphBuilder
	resolver     *Resolver
	cacheKeys    *CacheKeyEngine
	logger       *slog.Logger

	eventCB  domain.EventCallback
	minLevel domain.Severity
}

// NewIndexingPipeline builds a pipeline from cfg.
func NewIndexingPipeline(cfg IndexingPipelineConfig) *IndexingPipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexingPipeline{
		library:      cfg.Library,
		symbols:      cfg.Symbols,
		graphBuilder: cfg.GraphBuilder,
		resolver:     cfg.Resolver,
		cacheKeys:    cfg.CacheKeys,
		logger:       logger,
		minLevel:     domain.SeverityInfo,
	}
}

// SetEventCallback installs callback, delivered only at or above minLevel
// (spec.md §6 "set-event-callback").
func (p *IndexingPipeline) SetEventCallback(callback domain.EventCallback, minLevel domain.Severity) {
	p.eventCB = callback
	p.minLevel = minLevel
}

// emit routes ev to the registered callback, first wrapping ev.Err in a
// domain.CorpusError so callers downstream of the callback can still
// errors.Is() against the sentinel taxonomy while also recovering which
// corpus path it occurred under (spec.md §7 "every error/warning is
// delivered to the event callback with severity, message, and corpus
// path context").
func (p *IndexingPipeline) emit(ev domain.Event) {
	if p.eventCB == nil || ev.Severity < p.minLevel {
		return
	}
	if ev.Err != nil {
		cerr := domain.NewCorpusError(ev.CorpusPath, ev.Err, ev.Severity, false)
		ev.Err = cerr
		ev.Message = cerr.Error()
	}
	p.eventCB(ev)
}

// Run executes stages 1-8 over every document currently marked
// needs-indexing, starting from the Start stage, stopping early (without
// finalizing) if integrity or declaration fails for any document. shallow
// downgrades reference/type errors from strict ReferenceError/
// ExpectedTypeMismatch severity to warnings (spec.md §4.5 step 4, §7).
func (p *IndexingPipeline) Run(ctx context.Context, stageThrough domain.ValidationStage, shallow bool) (domain.ValidationStage, error) {
	return p.RunFrom(ctx, domain.Start, stageThrough, shallow)
}

// RunFrom executes stages (stageFrom, stageThrough] over every document
// currently marked needs-indexing. It backs driving.Corpus's
// resolve-references-and-validate(stage, stage-through): the caller
// already drove the pipeline up to stageFrom in an earlier call (or is
// starting fresh with Start) and now wants it carried forward through one
// or more of the trait/attribute/foreign-key resolution passes described
// in spec.md §4.5 step 7, without repeating prepare/integrity/declare.
func (p *IndexingPipeline) RunFrom(ctx context.Context, stageFrom, stageThrough domain.ValidationStage, shallow bool) (domain.ValidationStage, error) {
	dirty := p.library.NotIndexedSnapshot()
	if len(dirty) == 0 {
		return domain.Finished, nil
	}

	if stageFrom <= domain.Start {
		if err := p.prepare(dirty); err != nil {
			return domain.StageError, err
		}
		if stageThrough == domain.Start {
			return domain.Start, nil
		}
	}

	if stageFrom <= domain.TraitAppliers {
		if err := p.checkIntegrity(dirty); err != nil {
			return domain.StageError, err
		}

		if err := p.declare(dirty); err != nil {
			return domain.StageError, err
		}
		if stageThrough <= domain.MinimumForResolving {
			return domain.MinimumForResolving, nil
		}
	}

	if stageFrom <= domain.MinimumForResolving {
		p.linkAll(dirty, shallow)
		p.checkParameterTypes(dirty, shallow)
		p.resolveTraitArguments(dirty, shallow)
		if stageThrough <= domain.Traits {
			return domain.Traits, nil
		}
	}

	if stageFrom <= domain.Traits {
		p.buildAttributeContexts(dirty)
		if stageThrough <= domain.Attributes {
			return domain.Attributes, nil
		}
	}

	if stageThrough < domain.EntityReferences {
		return stageThrough, nil
	}

	if stageFrom <= domain.Attributes {
		p.finalize(dirty)
	}
	return domain.Finished, nil
}

func (p *IndexingPipeline) prepare(dirty []*domain.Document) error {
	for _, doc := range dirty {
		doc.SetCurrentlyIndexing(true)
		priorities, err := p.graphBuilder.Build(doc)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", doc.Path, err)
		}
		doc.SetPriorities(priorities)
	}
	return nil
}

func (p *IndexingPipeline) checkIntegrity(dirty []*domain.Document) error {
	for _, doc := range dirty {
		for _, def := range doc.Definitions {
			invalid := false
			def.Visit(func(n *domain.Definition) bool {
				if !n.Validate() {
					invalid = true
				}
				return false
			}, nil)
			if invalid {
				return fmt.Errorf("%s: %s: %w", doc.Path, def.DeclaredName(), domain.ErrParseError)
			}
		}
	}
	return nil
}

func (p *IndexingPipeline) declare(dirty []*domain.Document) error {
	for _, doc := range dirty {
		for _, name := range doc.DeclaredPaths() {
			p.symbols.Forget(name, doc)
		}
		doc.ResetDeclarations()
		for _, def := range doc.Definitions {
			if err := p.declareRecursive(doc, def, ""); err != nil {
				return fmt.Errorf("%s: %w", doc.Path, err)
			}
		}
	}
	return nil
}

func (p *IndexingPipeline) declareRecursive(doc *domain.Document, def *domain.Definition, prefix string) error {
	declPath := def.DeclaredName()
	if prefix != "" {
		declPath = prefix + "." + def.DeclaredName()
	}
	def.DeclaredPath = declPath
	if err := doc.DeclareAt(declPath, def); err != nil {
		return err
	}
	if prefix == "" {
		p.symbols.Declare(def.DeclaredName(), doc)
		p.cacheKeys.Seed(def)
	}
	for _, attr := range def.Attributes {
		if err := p.declareRecursive(doc, attr, declPath); err != nil {
			return err
		}
	}
	for _, param := range def.Parameters {
		if err := p.declareRecursive(doc, param, declPath); err != nil {
			return err
		}
	}
	return nil
}

// linkAll resolves every reference reachable from every dirty document's
// top-level definitions (spec.md §4.5 step 4).
func (p *IndexingPipeline) linkAll(dirty []*domain.Document, shallow bool) {
	for _, doc := range dirty {
		for _, def := range doc.Definitions {
			p.linkDefinition(doc, def, shallow)
		}
	}
}

func (p *IndexingPipeline) linkDefinition(doc *domain.Document, def *domain.Definition, shallow bool) {
	if def.DataTypeRef != nil {
		p.resolveOne(def.DataTypeRef, doc, def, domain.Error, shallow)
	}
	if def.EntityReference != nil {
		p.resolveOne(def.EntityReference, doc, def, domain.Entity, shallow)
	}
	for _, tr := range def.AppliedTraits {
		p.resolveOne(&tr.Reference, doc, def, domain.Trait, shallow)
	}
	for _, attr := range def.Attributes {
		p.linkDefinition(doc, attr, shallow)
	}
	for _, param := range def.Parameters {
		p.linkDefinition(doc, param, shallow)
	}
}

func (p *IndexingPipeline) resolveOne(ref *domain.Reference, wrtDoc *domain.Document, owner *domain.Definition, expected domain.ObjectType, shallow bool) {
	if ref == nil || ref.IsExplicit() || ref.NamedReference == "" {
		return
	}
	def, resolvedDoc, err := p.resolver.Resolve(ResolveRequest{
		Symbol:       ref.NamedReference,
		ExpectedType: expected,
		WrtDoc:       wrtDoc,
		Owner:        owner,
		Retry:        true,
	})
	if err != nil {
		p.emit(domain.Event{
			Severity:   referenceSeverity(err, shallow),
			Message:    err.Error(),
			CorpusPath: wrtDoc.Path,
			Err:        err,
		})
		return
	}
	ref.Bind(def, resolvedDoc)
}

func referenceSeverity(err error, shallow bool) domain.Severity {
	if shallow {
		return domain.SeverityWarning
	}
	if errors.Is(err, domain.ErrExpectedTypeMismatch) {
		return domain.SeverityError
	}
	return domain.SeverityError
}

// checkParameterTypes implements spec.md §4.5 step 5: coerce each
// parameter's default value to a reference of its data type's kind, for
// data types that derive from one of the kinds requiring coercion.
func (p *IndexingPipeline) checkParameterTypes(dirty []*domain.Document, shallow bool) {
	for _, doc := range dirty {
		for _, def := range doc.Definitions {
			visitParameters(def, func(param *domain.Definition) {
				p.checkParameterType(doc, param, shallow)
			})
		}
	}
}

func (p *IndexingPipeline) checkParameterType(doc *domain.Document, param *domain.Definition, shallow bool) {
	if param.DataTypeRef == nil || param.DefaultValue == nil {
		return
	}
	kindDef, ok := param.DataTypeRef.FetchObjectDefinition()
	if !ok || !domain.IsParameterDataTypeKind(kindDef.ObjectType()) {
		return
	}
	if _, _, err := p.resolver.Resolve(ResolveRequest{
		Symbol:       param.DefaultValue.NamedReference,
		ExpectedType: kindDef.ObjectType(),
		WrtDoc:       doc,
		Owner:        param,
	}); err != nil {
		p.emit(domain.Event{
			Severity:   referenceSeverity(domain.ErrParameterTypeMismatch, shallow),
			Message:    fmt.Sprintf("%s: %v", param.DeclaredName(), domain.ErrParameterTypeMismatch),
			CorpusPath: doc.Path,
			Err:        domain.ErrParameterTypeMismatch,
		})
	}
}

// resolveTraitArguments implements spec.md §4.5 step 6.
func (p *IndexingPipeline) resolveTraitArguments(dirty []*domain.Document, shallow bool) {
	for _, doc := range dirty {
		for _, def := range doc.Definitions {
			visitTraitReferences(def, func(owner *domain.Definition, tr *domain.TraitReference) {
				p.resolveTraitArgumentsOf(doc, owner, tr, shallow)
			})
		}
	}
}

func (p *IndexingPipeline) resolveTraitArgumentsOf(doc *domain.Document, owner *domain.Definition, tr *domain.TraitReference, shallow bool) {
	traitDef, ok := tr.FetchObjectDefinition()
	if !ok {
		return
	}
	bound := make(map[string]bool, len(tr.Arguments))
	for _, arg := range tr.Arguments {
		bound[arg.ParameterName] = true
		for _, param := range traitDef.Parameters {
			if param.DeclaredName() != arg.ParameterName {
				continue
			}
			arg.ResolvedParameter = param
			if param.DataTypeRef != nil {
				if kindDef, ok := param.DataTypeRef.FetchObjectDefinition(); ok && domain.IsParameterDataTypeKind(kindDef.ObjectType()) && arg.Value != nil {
					p.resolveOne(arg.Value, doc, owner, kindDef.ObjectType(), shallow)
				}
			}
			break
		}
	}
	for _, param := range traitDef.Parameters {
		if param.Required && !bound[param.DeclaredName()] {
			p.emit(domain.Event{
				Severity:   referenceSeverity(domain.ErrMissingRequiredArgument, shallow),
				Message:    fmt.Sprintf("%s: missing %s: %v", tr.NamedReference, param.DeclaredName(), domain.ErrMissingRequiredArgument),
				CorpusPath: doc.Path,
				Err:        domain.ErrMissingRequiredArgument,
			})
		}
	}
	tr.ResolvedArguments = true
}

// finalize implements spec.md §4.5 step 8.
func (p *IndexingPipeline) finalize(dirty []*domain.Document) {
	for _, doc := range dirty {
		p.library.MarkAsIndexed(doc)
	}
}

func visitParameters(def *domain.Definition, fn func(*domain.Definition)) {
	if def.ObjectType() == domain.Parameter {
		fn(def)
	}
	for _, attr := range def.Attributes {
		visitParameters(attr, fn)
	}
	for _, param := range def.Parameters {
		visitParameters(param, fn)
	}
}

func visitTraitReferences(def *domain.Definition, fn func(owner *domain.Definition, tr *domain.TraitReference)) {
	for _, tr := range def.AppliedTraits {
		fn(def, tr)
	}
	for _, attr := range def.Attributes {
		visitTraitReferences(attr, fn)
	}
	for _, param := range def.Parameters {
		visitTraitReferences(param, fn)
	}
}
