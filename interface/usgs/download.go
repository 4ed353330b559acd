package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/airbusgeo/usgsxplore/common"
	"github.com/airbusgeo/usgsxplore/service"
)

// DownloadOption is one downloadable product of a scene
type DownloadOption struct {
	ID             string `json:"id"`
	EntityID       string `json:"entityId"`
	Available      bool   `json:"available"`
	ProductName    string `json:"productName"`
	ProductCode    string `json:"productCode"`
	DownloadSystem string `json:"downloadSystem"`
	FileSize       int64  `json:"filesize"`
}

// DownloadOptions lists the downloadable products of the given scenes
func (api *API) DownloadOptions(ctx context.Context, dataset common.Dataset, entityIDs ...string) ([]DownloadOption, error) {
	data, err := api.request(ctx, "download-options", map[string]interface{}{
		"datasetName": dataset.Alias(),
		"entityIds":   strings.Join(entityIDs, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("DownloadOptions.%w", err)
	}
	var options []DownloadOption
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("DownloadOptions.Unmarshal: %w", err)
	}
	return options, nil
}

// ProductPreference is the ordered list of product name prefixes used to pick
// a download option. The catalog ordering of download-options is not a
// documented contract, so the choice is made deterministic here.
type ProductPreference []string

// DefaultProductPreference prefers the full-resolution bundle over anything
// else, and browse/thumbnail products last.
var DefaultProductPreference = ProductPreference{
	"Landsat Collection 2 Level-2 Product Bundle",
	"Landsat Collection 2 Level-1 Product Bundle",
	"Product Bundle",
	"Full-Resolution Browse",
}

// rank returns the preference rank of an option, len(p) when not listed
func (p ProductPreference) rank(option DownloadOption) int {
	for i, prefix := range p {
		if strings.HasPrefix(option.ProductName, prefix) || strings.Contains(option.ProductName, prefix) {
			return i
		}
	}
	return len(p)
}

// SelectOption picks the first available option under the preference order.
// Ties keep the preference rank order, then the lexicographic product-id
// order, so the choice is deterministic given identical input.
func (p ProductPreference) SelectOption(options []DownloadOption) (DownloadOption, error) {
	available := make([]DownloadOption, 0, len(options))
	for _, option := range options {
		if option.Available {
			available = append(available, option)
		}
	}
	if len(available) == 0 {
		return DownloadOption{}, fmt.Errorf("SelectOption: %w: no available download option", ErrNotFound)
	}
	sort.SliceStable(available, func(i, j int) bool {
		ri, rj := p.rank(available[i]), p.rank(available[j])
		if ri != rj {
			return ri < rj
		}
		return available[i].ID < available[j].ID
	})
	return available[0], nil
}

// AvailableDownload is a resolved download url of a download-request call
type AvailableDownload struct {
	DownloadID int    `json:"downloadId"`
	EntityID   string `json:"entityId"`
	URL        string `json:"url"`
}

// downloadRequestResponse is the data payload of the download-request endpoint
type downloadRequestResponse struct {
	AvailableDownloads []AvailableDownload `json:"availableDownloads"`
	PreparingDownloads []AvailableDownload `json:"preparingDownloads"`
}

// RequestDownload requests the download url of the given product option
func (api *API) RequestDownload(ctx context.Context, option DownloadOption, label string) (AvailableDownload, error) {
	data, err := api.request(ctx, "download-request", map[string]interface{}{
		"downloads": []map[string]string{
			{"entityId": option.EntityID, "productId": option.ID},
		},
		"label": label,
	})
	if err != nil {
		return AvailableDownload{}, fmt.Errorf("RequestDownload.%w", err)
	}
	var resp downloadRequestResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return AvailableDownload{}, fmt.Errorf("RequestDownload.Unmarshal: %w", err)
	}
	if len(resp.AvailableDownloads) == 0 {
		if len(resp.PreparingDownloads) != 0 {
			return AvailableDownload{}, service.MakeTemporary(fmt.Errorf("RequestDownload: download of %s is being prepared", option.EntityID))
		}
		return AvailableDownload{}, fmt.Errorf("RequestDownload: %w: no download available for %s", ErrNotFound, option.EntityID)
	}
	return resp.AvailableDownloads[0], nil
}
