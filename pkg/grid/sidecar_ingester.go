package grid

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/policypipeline/pkg/identity"
)

// sidecarRegion is one entry in a document's "<document>.regions.yaml"
// companion file: the deterministic split a real PDF/text extractor
// would otherwise compute. PDF extraction itself is explicitly out of
// scope (spec.md §1); this sidecar format is the narrowest thing that
// lets phase 1 be exercised deterministically without one.
type sidecarRegion struct {
	PolicyAreaID string `yaml:"policy_area_id"`
	DimensionID  string `yaml:"dimension_id"`
	Text         string `yaml:"text"`
	Page         int    `yaml:"page"`
	Section      string `yaml:"section"`
}

type sidecarDocument struct {
	Regions []sidecarRegion `yaml:"regions"`
}

// SidecarIngester reads a "<documentPath>.regions.yaml" file describing
// the 60 (policy area, dimension) regions and turns each into a Chunk
// with a stable content digest. Ordering of the returned slice follows
// the sidecar file's own ordering — determinism comes from the sidecar
// being a fixed artifact, not from any ingestion-time sort.
type SidecarIngester struct{}

// NewSidecarIngester returns the default DocumentIngester.
func NewSidecarIngester() SidecarIngester { return SidecarIngester{} }

// Ingest loads documentPath+".regions.yaml" and converts each region to
// a tagged, content-hashed Chunk.
func (SidecarIngester) Ingest(_ context.Context, documentPath string) ([]Chunk, error) {
	if _, err := os.Stat(documentPath); err != nil {
		return nil, fmt.Errorf("source document %q unreadable: %w", documentPath, err)
	}

	sidecarPath := documentPath + ".regions.yaml"
	raw, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, fmt.Errorf("reading region sidecar %q: %w", sidecarPath, err)
	}

	var doc sidecarDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing region sidecar %q: %w", sidecarPath, err)
	}

	chunks := make([]Chunk, 0, len(doc.Regions))
	for _, r := range doc.Regions {
		if r.PolicyAreaID == "" || r.DimensionID == "" {
			return nil, fmt.Errorf("region missing policy_area_id or dimension_id: %+v", r)
		}
		chunks = append(chunks, Chunk{
			ChunkID:      r.PolicyAreaID + "-" + r.DimensionID,
			PolicyAreaID: r.PolicyAreaID,
			DimensionID:  r.DimensionID,
			Text:         r.Text,
			ContentHash:  identity.ContentDigest128([]byte(r.Text)),
			Provenance:   Provenance{Page: r.Page, Section: r.Section},
		})
	}

	return chunks, nil
}
