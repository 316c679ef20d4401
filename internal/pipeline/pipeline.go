// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates a full extraction-to-emission run:
// document conversion, classification, control and tabular extraction,
// CIR assembly and validation, then parallel per-kind mapping behind a
// barrier, cross-referencing, and artifact emission. One artifact kind
// failing never takes down its siblings; the run result carries every
// partial outcome.
// See docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pdiddy/oscal-engine/internal/cir"
	"github.com/pdiddy/oscal-engine/internal/classify"
	"github.com/pdiddy/oscal-engine/internal/controls"
	"github.com/pdiddy/oscal-engine/internal/convert"
	"github.com/pdiddy/oscal-engine/internal/mapper"
	"github.com/pdiddy/oscal-engine/internal/report"
	"github.com/pdiddy/oscal-engine/internal/tabular"
	"github.com/pdiddy/oscal-engine/internal/xref"
	"github.com/pdiddy/oscal-engine/pkg/types"
)

// Inputs names the source artifacts for one run. Document is required;
// grids are optional per tabular kind.
type Inputs struct {
	// Document is the narrative source (.docx or .md).
	Document string

	// Grids maps tabular kinds to CSV exports.
	Grids map[types.TabularKind]string
}

// KindResult is one artifact kind's mapping outcome. Err is non-nil when
// the kind failed; Graph and Path are then empty.
type KindResult struct {
	Kind  types.ArtifactKind
	Graph *types.TargetDocumentGraph
	Diags types.Diagnostics
	Path  string
	Err   error
}

// RunResult carries everything a run produced, including partial results
// for kinds that failed.
type RunResult struct {
	CIR     *types.CIRDocument
	CIRPath string

	// Diags are the extraction and validation diagnostics, before mapping.
	Diags types.Diagnostics

	Kinds map[types.ArtifactKind]KindResult
	Links []xref.Link
}

// Failed returns the kinds that produced no artifact, in emission order.
func (r *RunResult) Failed() []types.ArtifactKind {
	var out []types.ArtifactKind
	for _, kind := range types.AllArtifactKinds {
		if res, ok := r.Kinds[kind]; ok && res.Err != nil {
			out = append(out, kind)
		}
	}
	return out
}

// Warnings counts warning diagnostics across the whole run.
func (r *RunResult) Warnings() int {
	n := r.Diags.Count(types.SeverityWarning)
	for _, res := range r.Kinds {
		n += res.Diags.Count(types.SeverityWarning)
	}
	return n
}

// Summary renders the run verdict: complete, partial, or failed per kind.
func (r *RunResult) Summary() string {
	if failed := r.Failed(); len(failed) > 0 {
		s := "failed for artifact"
		for i, kind := range failed {
			if i > 0 {
				s += ","
			}
			s += " " + string(kind)
		}
		return s
	}
	if n := r.Warnings(); n > 0 {
		return fmt.Sprintf("partial (%d warnings)", n)
	}
	return "complete"
}

// Pipeline wires the stages for one configuration. Construction fails on
// configuration errors (classification ambiguity, bad column mappings) so
// no run starts with a broken rule table.
type Pipeline struct {
	cfg        types.PipelineConfig
	converter  convert.TreeConverter
	classifier *classify.Classifier
	controls   *controls.Extractor
	tabular    map[types.TabularKind]*tabular.Extractor

	// now is the run clock, injectable for reproducible runs.
	now func() time.Time
}

// New builds a pipeline from the configuration and a document converter.
func New(cfg types.PipelineConfig, converter convert.TreeConverter) (*Pipeline, error) {
	classifier, err := classify.New(cfg.Classification)
	if err != nil {
		return nil, fmt.Errorf("classification config: %w", err)
	}

	extractors := make(map[types.TabularKind]*tabular.Extractor, len(cfg.Columns))
	for kind, mapping := range cfg.Columns {
		ex, err := tabular.New(kind, mapping)
		if err != nil {
			return nil, fmt.Errorf("column mapping for %s: %w", kind, err)
		}
		extractors[kind] = ex
	}

	return &Pipeline{
		cfg:        cfg,
		converter:  converter,
		classifier: classifier,
		controls:   controls.New(cfg.Controls),
		tabular:    extractors,
		now:        time.Now,
	}, nil
}

// Extract runs the front half of the pipeline and returns the assembled,
// validated CIR. Validation errors stop the run before mapping; warnings
// ride along in the diagnostics.
func (p *Pipeline) Extract(ctx context.Context, inputs Inputs) (*types.CIRDocument, types.Diagnostics, error) {
	var diags types.Diagnostics

	sourceType, err := convert.SourceType(inputs.Document)
	if err != nil {
		return nil, nil, err
	}
	hash, err := convert.Fingerprint(inputs.Document)
	if err != nil {
		return nil, nil, err
	}

	tree, err := p.converter.Convert(inputs.Document)
	if err != nil {
		return nil, nil, err
	}

	sections, classifyDiags := p.classifier.Classify(tree)
	diags = append(diags, classifyDiags...)

	if err := ctx.Err(); err != nil {
		return nil, diags, err
	}

	controlRecs, controlDiags := p.controls.Extract(sections)
	diags = append(diags, controlDiags...)

	tabularRecs := make(map[types.TabularKind][]types.TabularRecord)
	for _, kind := range []types.TabularKind{types.TabularPOAM, types.TabularInventory, types.TabularResponsibility} {
		path, ok := inputs.Grids[kind]
		if !ok {
			continue
		}
		ex, ok := p.tabular[kind]
		if !ok {
			return nil, diags, fmt.Errorf("no column mapping configured for %s grid %s", kind, path)
		}

		grid, err := tabular.ReadGridCSV(path)
		if err != nil {
			return nil, diags, err
		}
		records, recDiags := ex.Extract(grid)
		diags = append(diags, recDiags...)
		tabularRecs[kind] = records
	}

	meta := types.CIRMetadata{
		SourceFile:       inputs.Document,
		SourceType:       sourceType,
		ExtractionDate:   p.now().UTC(),
		SHA256:           hash,
		ConverterVersion: tree.ConverterVersion,
	}
	doc := cir.Assemble(meta, sections, controlRecs, tabularRecs)

	validateDiags := cir.NewValidator(p.cfg.References).Validate(doc)
	diags = append(diags, validateDiags...)
	if validateDiags.HasErrors() {
		return doc, diags, fmt.Errorf("CIR validation failed with %d errors",
			validateDiags.Count(types.SeverityError)+validateDiags.Count(types.SeverityFatal))
	}

	return doc, diags, nil
}

// MapAll maps every artifact kind concurrently and waits for all of them.
// The CIR is immutable at this point, so the kinds share it without
// locking. Cancellation is observed between kinds, not mid-map; an
// individual mapping is short and runs to completion.
func (p *Pipeline) MapAll(ctx context.Context, doc *types.CIRDocument) map[types.ArtifactKind]KindResult {
	results := make(map[types.ArtifactKind]KindResult, len(types.AllArtifactKinds))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, kind := range types.AllArtifactKinds {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			results[kind] = KindResult{Kind: kind, Err: err}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(kind types.ArtifactKind) {
			defer wg.Done()

			res := KindResult{Kind: kind}
			m, err := mapper.For(kind, p.cfg.Synthesis)
			if err != nil {
				res.Err = err
			} else {
				res.Graph, res.Diags, res.Err = m.Map(doc)
			}

			mu.Lock()
			results[kind] = res
			mu.Unlock()
		}(kind)
	}

	wg.Wait()
	return results
}

// Run executes the full pipeline and emits artifacts, provenance reports,
// and the provenance index under the configured output directory. Status
// lines go to w.
func (p *Pipeline) Run(ctx context.Context, inputs Inputs, w io.Writer) (*RunResult, error) {
	doc, diags, err := p.Extract(ctx, inputs)
	result := &RunResult{CIR: doc, Diags: diags, Kinds: map[types.ArtifactKind]KindResult{}}
	if err != nil {
		return result, err
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return result, fmt.Errorf("creating output directory: %w", err)
	}

	result.CIRPath = filepath.Join(p.cfg.OutputDir, "cir.yaml")
	if err := cir.Write(result.CIRPath, doc); err != nil {
		return result, err
	}
	unclassified := 0
	for i := range doc.Sections {
		if doc.Sections[i].Unclassified() {
			unclassified++
		}
	}
	fmt.Fprintf(w, "extracted %s (%d sections, %d unclassified, %d controls)\n",
		inputs.Document, len(doc.Sections), unclassified, len(doc.ControlRecords))

	result.Kinds = p.MapAll(ctx, doc)

	// Barrier passed: every kind has succeeded or failed before any
	// cross-referencing or emission starts.
	graphs := make(map[types.ArtifactKind]*types.TargetDocumentGraph)
	for kind, res := range result.Kinds {
		if res.Err == nil {
			graphs[kind] = res.Graph
		}
	}

	var linkDiags types.Diagnostics
	result.Links, linkDiags = xref.Resolve(doc, graphs)
	result.Diags = append(result.Diags, linkDiags...)

	store, err := report.NewStore(p.cfg.OutputDir)
	if err != nil {
		return result, err
	}
	defer store.Close()

	for _, kind := range types.AllArtifactKinds {
		res := result.Kinds[kind]
		if res.Err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", kind, res.Err)
			continue
		}

		path, err := p.emit(res.Graph)
		if err != nil {
			res.Err = err
			result.Kinds[kind] = res
			fmt.Fprintf(w, "failed  %s: %v\n", kind, err)
			continue
		}
		res.Path = path
		result.Kinds[kind] = res

		entries := res.Graph.Provenance()
		if err := store.Record(ctx, kind, doc.Metadata, entries, res.Diags); err != nil {
			return result, err
		}
		rep := report.ArtifactReport{
			Kind:        kind,
			SourceFile:  doc.Metadata.SourceFile,
			SourceHash:  doc.Metadata.SHA256,
			GeneratedAt: doc.Metadata.ExtractionDate,
			Entries:     entries,
			Diagnostics: res.Diags,
		}
		if kind == types.KindPOAM {
			rep.Links = result.Links
		}
		if _, err := report.WriteYAML(p.cfg.OutputDir, rep); err != nil {
			return result, err
		}

		fmt.Fprintf(w, "mapped  %s (%d leaves, %d warnings)\n",
			kind, len(entries), res.Diags.Count(types.SeverityWarning))
	}

	if err := store.RecordLinks(ctx, result.Links); err != nil {
		return result, err
	}

	fmt.Fprintf(w, "\n%s\n", result.Summary())
	return result, nil
}

// emit writes one artifact graph as deterministic JSON. Object keys
// serialize in sorted order, so identical inputs produce byte-identical
// files.
func (p *Pipeline) emit(g *types.TargetDocumentGraph) (string, error) {
	doc := map[string]any{g.Root.Key: g.Root.Plain()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling %s artifact: %w", g.Kind, err)
	}
	path := filepath.Join(p.cfg.OutputDir, string(g.Kind)+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
