package ports

import (
	"context"

	"seufit/domain/core"
)

// ResultLedger persists analysis artifacts. Serialization of the payload is
// the adapter's concern; callers hand over the domain artifact as-is.
type ResultLedger interface {
	// StoreArtifact records an artifact under a run.
	StoreArtifact(ctx context.Context, runID core.RunID, artifact core.Artifact) error

	// ArtifactsByRun lists artifacts stored for a run, oldest first.
	ArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error)
}
