package jobs

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/shadowtwin"
	"github.com/ternarybob/scribe/internal/storage/localfs"
)

// Library bundles one configured library's storage provider and its artifact
// store. The backend choice is made once here; pipeline code never branches
// on backend type again.
type Library struct {
	Config    common.LibraryConfig
	RootID    string
	Provider  interfaces.StorageProvider
	Artifacts interfaces.ArtifactStore
	Adopter   *shadowtwin.Adopter
}

// BuildLibraries constructs the library registry from config. Source files
// always live on the storage provider; derived artifacts live either in the
// shadow-twin folder layout or in the document store, per library config.
func BuildLibraries(cfg *common.Config, twins interfaces.ShadowTwinStorage, logger arbor.ILogger) (map[string]*Library, error) {
	libraries := make(map[string]*Library, len(cfg.Libraries))

	for _, lc := range cfg.Libraries {
		provider, err := localfs.NewProvider(lc.Root, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open library %s: %w", lc.ID, err)
		}

		lib := &Library{
			Config:   lc,
			RootID:   localfs.RootID,
			Provider: provider,
			Adopter:  shadowtwin.NewAdopter(provider, logger),
		}

		switch lc.ArtifactBackend {
		case "document":
			lib.Artifacts = shadowtwin.NewDocStore(twins, logger)
		default:
			lib.Artifacts = shadowtwin.NewFSStore(provider, logger)
		}

		libraries[lc.ID] = lib

		logger.Info().
			Str("library_id", lc.ID).
			Str("root", lc.Root).
			Str("artifact_backend", backendName(lc.ArtifactBackend)).
			Msg("Library registered")
	}

	return libraries, nil
}

func backendName(backend string) string {
	if backend == "" {
		return "filesystem"
	}
	return backend
}
