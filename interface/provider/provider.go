package provider

import (
	"context"

	"github.com/airbusgeo/usgsxplore/interface/usgs"
)

// ImageProvider is the interface of a scene download service
type ImageProvider interface {
	// Download a scene to localDir and return the path of the downloaded
	// product. At most one file is written per successful call; a failed
	// call never leaves a partially written file under its final name.
	Download(ctx context.Context, scene usgs.SceneRecord, localDir string) (string, error)

	// Name of the provider
	Name() string
}
