package provider

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/airbusgeo/usgsxplore/interface/usgs"
)

// LocalImageProvider implements ImageProvider for a local mirror laid out by
// acquisition date: <path>/<year>/<month>/<day>/<displayId>.<ext>
type LocalImageProvider struct {
	path string
}

// Name implements ImageProvider
func (ip *LocalImageProvider) Name() string {
	return "FileSystem (" + ip.path + ")"
}

// NewLocalImageProvider creates a new ImageProvider from local storage
func NewLocalImageProvider(path string) *LocalImageProvider {
	return &LocalImageProvider{path: path}
}

// Download implements ImageProvider
func (ip *LocalImageProvider) Download(ctx context.Context, scene usgs.SceneRecord, localDir string) (string, error) {
	sceneName := scene.DisplayID
	if scene.AcquisitionDate.IsZero() {
		return "", fmt.Errorf("LocalImageProvider: no acquisition date for %s", sceneName)
	}
	folders := strings.Split(scene.AcquisitionDate.Format("2006-01-02"), "-")

	src := sceneFilePath(path.Join(ip.path, folders[0], folders[1], folders[2]), sceneName, scene.Dataset.Info().Extension)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", ErrProductNotFound{src}
		}
		return "", fmt.Errorf("LocalImageProvider: %w", err)
	}
	if err := unarchive(src, localDir); err != nil {
		return "", fmt.Errorf("LocalImageProvider.Unarchive: %w", err)
	}
	return localDir, nil
}
