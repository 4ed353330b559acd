package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/usgsxplore/interface/provider"
	"github.com/airbusgeo/usgsxplore/interface/usgs"
	"github.com/airbusgeo/usgsxplore/service"
	"github.com/airbusgeo/usgsxplore/service/log"
	"github.com/google/uuid"
)

// SceneResult is the outcome of one scene of a batch
type SceneResult struct {
	Scene     usgs.SceneRecord
	LocalFile string
	Err       error
}

// ProcessScene downloads a scene with the first successful imageProvider.
// The scene is staged in a uuid workdir and moved to localDir on success, so
// localDir never holds a partial product.
func ProcessScene(ctx context.Context, imageProviders []provider.ImageProvider, scene usgs.SceneRecord, localDir string) (string, error) {
	workdir := filepath.Join(localDir, "."+uuid.New().String())
	if err := os.MkdirAll(workdir, 0766); err != nil {
		return "", service.MakeTemporary(fmt.Errorf("make directory %s: %w", workdir, err))
	}
	defer os.RemoveAll(workdir)

	log.Logger(ctx).Sugar().Infof("downloading %s", scene.DisplayID)
	var err error
	staged := ""
	for _, imageProvider := range imageProviders {
		f, e := imageProvider.Download(ctx, scene, workdir)
		if err = service.MergeErrors(false, err, e); err == nil {
			staged = f
			break
		}
		log.Logger(ctx).Sugar().Warnf("%s: %v", imageProvider.Name(), e)
	}
	if err != nil {
		return "", fmt.Errorf("ProcessScene.ImageProviders.%w", err)
	}

	localFile := filepath.Join(localDir, scene.DisplayID)
	if staged != workdir {
		localFile = filepath.Join(localDir, filepath.Base(staged))
	}
	if err := os.Rename(staged, localFile); err != nil {
		return "", fmt.Errorf("ProcessScene.Rename: %w", err)
	}
	return localFile, nil
}

// ProcessScenes downloads the scenes one at a time and returns one result per
// scene, in order. A failed scene does not prevent the others, but an already
// downloaded one is skipped without network access.
func ProcessScenes(ctx context.Context, imageProviders []provider.ImageProvider, scenes []usgs.SceneRecord, localDir string) []SceneResult {
	results := make([]SceneResult, len(scenes))
	for i, scene := range scenes {
		if localFile, ok := alreadyDownloaded(scene, localDir); ok {
			log.Logger(ctx).Sugar().Debugf("%s already downloaded, skipping", scene.DisplayID)
			results[i] = SceneResult{Scene: scene, LocalFile: localFile}
			continue
		}
		localFile, err := ProcessScene(ctx, imageProviders, scene, localDir)
		results[i] = SceneResult{Scene: scene, LocalFile: localFile, Err: err}
		if err != nil && ctx.Err() != nil {
			// mark the remaining scenes as cancelled
			for j := i + 1; j < len(scenes); j++ {
				results[j] = SceneResult{Scene: scenes[j], Err: ctx.Err()}
			}
			break
		}
	}
	return results
}

// alreadyDownloaded reports whether localDir holds the scene, either as the
// product archive or as an extracted product directory.
func alreadyDownloaded(scene usgs.SceneRecord, localDir string) (string, bool) {
	candidates := []string{filepath.Join(localDir, scene.DisplayID)}
	if ext := scene.Dataset.Info().Extension; ext != "" {
		candidates = append(candidates, filepath.Join(localDir, scene.DisplayID+"."+ext))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
