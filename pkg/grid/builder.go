package grid

import (
	"context"
	"fmt"
	"sort"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
)

const (
	minProvenanceCompleteness = 0.8
	minStructuralConsistency  = 0.85
)

// BuildInput is phase 1's input: the document to ingest and the
// ingester collaborator to ingest it with.
type BuildInput struct {
	DocumentPath string
	Ingester     DocumentIngester
}

// Grid is phase 1's output: exactly one Chunk per (policy area,
// dimension) cell, keyed densely for phase 3's router.
type Grid struct {
	Chunks           []Chunk
	ByCell           map[string]Chunk
	ProvenanceScore  float64
	StructuralScore  float64
}

// Step returns the phase 1 envelope: ingest the document, then require
// exactly 60 cells with no duplicates or gaps, provenance completeness
// at or above minProvenanceCompleteness, and structural consistency at
// or above minStructuralConsistency.
func Step() contract.Step[BuildInput, Grid] {
	return contract.Step[BuildInput, Grid]{
		Index: 1,
		Name:  "grid_builder",
		ValidateIn: func(in BuildInput) []string {
			var issues []string
			if in.DocumentPath == "" {
				issues = append(issues, "document_path is required")
			}
			if in.Ingester == nil {
				issues = append(issues, "ingester is required")
			}
			return issues
		},
		Execute: func(ctx context.Context, in BuildInput) (Grid, error) {
			chunks, err := in.Ingester.Ingest(ctx, in.DocumentPath)
			if err != nil {
				return Grid{}, err
			}
			return assembleGrid(chunks)
		},
		ValidateOut: func(g Grid) []string {
			var issues []string
			if len(g.ByCell) != 60 {
				issues = append(issues, fmt.Sprintf("grid has %d cells, expected 60", len(g.ByCell)))
			}
			if g.ProvenanceScore < minProvenanceCompleteness {
				issues = append(issues, fmt.Sprintf("provenance completeness %.3f below minimum %.3f", g.ProvenanceScore, minProvenanceCompleteness))
			}
			if g.StructuralScore < minStructuralConsistency {
				issues = append(issues, fmt.Sprintf("structural consistency %.3f below minimum %.3f", g.StructuralScore, minStructuralConsistency))
			}
			return issues
		},
		Invariants: func(g Grid) []contract.Invariant[Grid] {
			return []contract.Invariant[Grid]{
				{Name: "full_coverage", Check: checkFullCoverage},
				{Name: "no_duplicate_cells", Check: checkNoDuplicates},
			}
		},
		Artifacts: func(g Grid) map[string]string {
			return map[string]string{
				"chunk_count":       fmt.Sprintf("%d", len(g.Chunks)),
				"provenance_score":  fmt.Sprintf("%.3f", g.ProvenanceScore),
				"structural_score":  fmt.Sprintf("%.3f", g.StructuralScore),
			}
		},
	}
}

// assembleGrid indexes chunks by cell, rejecting duplicates, and
// computes the provenance-completeness and structural-consistency
// scores used by ValidateOut. It never fills a gap; gaps surface as a
// short ByCell map, caught by ValidateOut's 60-cell check.
func assembleGrid(chunks []Chunk) (Grid, error) {
	byCell := make(map[string]Chunk, len(chunks))
	for _, c := range chunks {
		key := c.CellKey()
		if _, dup := byCell[key]; dup {
			return Grid{}, &pipelineerr.InvariantError{
				Phase:     1,
				Invariant: "no_duplicate_cells",
				Detail:    fmt.Sprintf("cell %s populated more than once", key),
			}
		}
		byCell[key] = c
	}

	complete := 0
	consistent := 0
	for _, c := range chunks {
		if c.Provenance.Complete() {
			complete++
		}
		if isStructurallyConsistent(c) {
			consistent++
		}
	}

	var provenanceScore, structuralScore float64
	if len(chunks) > 0 {
		provenanceScore = float64(complete) / float64(len(chunks))
		structuralScore = float64(consistent) / float64(len(chunks))
	}

	sorted := append([]Chunk(nil), chunks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CellKey() < sorted[j].CellKey() })

	return Grid{
		Chunks:          sorted,
		ByCell:          byCell,
		ProvenanceScore: provenanceScore,
		StructuralScore: structuralScore,
	}, nil
}

// isStructurallyConsistent reports whether a chunk names a valid
// policy area and dimension and carries a non-empty content hash. A
// chunk failing this still counts toward ProvenanceScore/coverage; it
// only depresses StructuralScore.
func isStructurallyConsistent(c Chunk) bool {
	if c.ContentHash == "" {
		return false
	}
	paOK, dimOK := false, false
	for _, pa := range questionnaire.CanonicalPolicyAreas {
		if pa == c.PolicyAreaID {
			paOK = true
			break
		}
	}
	for _, dim := range questionnaire.CanonicalDimensions {
		if dim == c.DimensionID {
			dimOK = true
			break
		}
	}
	return paOK && dimOK
}

func checkFullCoverage(g Grid) error {
	for _, pa := range questionnaire.CanonicalPolicyAreas {
		for _, dim := range questionnaire.CanonicalDimensions {
			if _, ok := g.ByCell[pa+":"+dim]; !ok {
				return fmt.Errorf("missing chunk for cell %s:%s", pa, dim)
			}
		}
	}
	return nil
}

func checkNoDuplicates(g Grid) error {
	seen := make(map[string]bool, len(g.Chunks))
	for _, c := range g.Chunks {
		key := c.CellKey()
		if seen[key] {
			return fmt.Errorf("duplicate chunk for cell %s", key)
		}
		seen[key] = true
	}
	return nil
}
