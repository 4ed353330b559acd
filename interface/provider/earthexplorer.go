package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/airbusgeo/usgsxplore/interface/usgs"
	"github.com/airbusgeo/usgsxplore/service"
	"github.com/airbusgeo/usgsxplore/service/log"
)

const (
	// downloadAttempts is the retry budget of one scene download
	downloadAttempts = 3
	// downloadLabel tags the download-request orders on the catalog side
	downloadLabel = "usgsxplore"
)

// EarthExplorerImageProvider implements ImageProvider on top of the M2M
// download-options / download-request endpoints.
type EarthExplorerImageProvider struct {
	api *usgs.API

	// Preference is the deterministic product selection order
	Preference usgs.ProductPreference
	// Timeout is the per-attempt ceiling of a download; downloads are the
	// only long-running operation of the client
	Timeout time.Duration
	// SkipExisting returns an already downloaded scene without network access
	SkipExisting bool
	// Extract unarchives the product bundle after download
	Extract bool

	retryWait time.Duration
}

// Name implements ImageProvider
func (ip *EarthExplorerImageProvider) Name() string {
	return "EarthExplorer"
}

// NewEarthExplorerImageProvider creates a new ImageProvider from the EarthExplorer catalog
func NewEarthExplorerImageProvider(api *usgs.API, timeout time.Duration, skipExisting bool) *EarthExplorerImageProvider {
	return &EarthExplorerImageProvider{
		api:          api,
		Preference:   usgs.DefaultProductPreference,
		Timeout:      timeout,
		SkipExisting: skipExisting,
		retryWait:    time.Second,
	}
}

// Download implements ImageProvider
func (ip *EarthExplorerImageProvider) Download(ctx context.Context, scene usgs.SceneRecord, localDir string) (string, error) {
	sceneName := scene.DisplayID
	if sceneName == "" {
		sceneName = scene.EntityID
	}
	localFile := sceneFilePath(localDir, sceneName, scene.Dataset.Info().Extension)

	if ip.SkipExisting {
		if _, err := os.Stat(localFile); err == nil {
			log.Logger(ctx).Sugar().Debugf("%s already downloaded, skipping", sceneName)
			return localFile, nil
		}
	}

	options, err := ip.api.DownloadOptions(ctx, scene.Dataset, scene.EntityID)
	if err != nil {
		return "", fmt.Errorf("EarthExplorerImageProvider.%w", err)
	}
	option, ok := optionForProduct(options, scene.Dataset.Info().DataProductID)
	if !ok {
		if option, err = ip.Preference.SelectOption(options); err != nil {
			if errors.Is(err, usgs.ErrNotFound) {
				return "", ErrProductNotFound{scene.EntityID}
			}
			return "", fmt.Errorf("EarthExplorerImageProvider.%w", err)
		}
	}

	download, err := ip.api.RequestDownload(ctx, option, downloadLabel)
	if err != nil {
		return "", fmt.Errorf("EarthExplorerImageProvider.%w", err)
	}
	if scene.Dataset.Info().Extension == "" {
		// dataset not in the registry: guess the extension from the resolved url
		if ext := service.GetExt(download.URL); ext != service.NoExtension {
			localFile = sceneFilePath(localDir, sceneName, string(ext))
		}
	}

	// the resolved url is retried as a whole on temporary failures
	if err := service.Retriable(ctx, func() error {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if ip.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, ip.Timeout)
		}
		defer cancel()
		return downloadToFile(attemptCtx, download.URL, localFile, ip.Name()+":"+sceneName)
	}, ip.retryWait, downloadAttempts); err != nil {
		return "", fmt.Errorf("EarthExplorerImageProvider.%w", err)
	}

	if ip.Extract {
		defer os.Remove(localFile)
		if err := unarchive(localFile, localDir); err != nil {
			return "", fmt.Errorf("EarthExplorerImageProvider.Unarchive: %w", err)
		}
		return localDir, nil
	}
	return localFile, nil
}

// optionForProduct returns the download option of the dataset native data
// product, identified by its stable M2M product id. A registry match
// short-circuits the name-based preference order.
func optionForProduct(options []usgs.DownloadOption, productID string) (usgs.DownloadOption, bool) {
	if productID == "" {
		return usgs.DownloadOption{}, false
	}
	for _, option := range options {
		if option.Available && option.ID == productID {
			return option, true
		}
	}
	return usgs.DownloadOption{}, false
}
