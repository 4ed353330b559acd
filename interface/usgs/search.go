package usgs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airbusgeo/usgsxplore/common"
	"github.com/airbusgeo/usgsxplore/service"
	"github.com/airbusgeo/usgsxplore/service/log"
)

const (
	// searchPageSize is the number of results requested per scene-search call
	searchPageSize = 100
	// searchDefaultLimit bounds a query that does not set a limit
	searchDefaultLimit = 100
)

// searchResponse is the data payload of the scene-search endpoint
type searchResponse struct {
	Results         []json.RawMessage `json:"results"`
	RecordsReturned int               `json:"recordsReturned"`
	TotalHits       int               `json:"totalHits"`
	StartingNumber  int               `json:"startingNumber"`
	NextRecord      int               `json:"nextRecord"`
}

// Search searches the scenes matching the query and normalizes them into
// SceneRecords, preserving the catalog ordering. The result is bounded by
// the query limit even if the catalog reports more pages; any page failure
// aborts the whole search (no partial result).
func (api *API) Search(ctx context.Context, query SearchQuery) ([]SceneRecord, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = searchDefaultLimit
	}

	var records []SceneRecord
	pages := service.ComputePagesToQuery(0, limit, searchPageSize)
	for _, page := range pages {
		log.Logger(ctx).Sugar().Debugf("[%s] search page %d", query.Dataset, page.Page+1)
		resp, err := api.searchPage(ctx, query, page)
		if err != nil {
			return nil, fmt.Errorf("Search.%w", err)
		}

		last := page.LastRowToSelect
		if last >= len(resp.Results) {
			last = len(resp.Results) - 1
		}
		for _, result := range resp.Results[min(page.FirstRowToSelect, len(resp.Results)) : last+1] {
			record, err := normalizeScene(query.Dataset, result)
			if err != nil {
				return nil, fmt.Errorf("Search.%w", err)
			}
			if skipRecord(query.Dataset, record) {
				continue
			}
			records = append(records, record)
			if len(records) == limit {
				return records, nil
			}
		}

		// catalog exhausted before the limit
		if resp.NextRecord == 0 || resp.NextRecord > resp.TotalHits || resp.RecordsReturned < page.Limit {
			break
		}
	}
	return records, nil
}

// searchPage fetches one scene-search page
func (api *API) searchPage(ctx context.Context, query SearchQuery, page service.PageQueryParam) (*searchResponse, error) {
	data, err := api.request(ctx, "scene-search", map[string]interface{}{
		"datasetName":    query.Dataset.Alias(),
		"sceneFilter":    query.sceneFilter(),
		"maxResults":     page.Limit,
		"startingNumber": page.Page*page.Limit + 1,
		"metadataType":   "full",
	})
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("searchPage.Unmarshal: %w", err)
	}
	return &resp, nil
}

// skipRecord filters out the scenes that the dataset serves but does not own:
// landsat_tm_c2_l2 also returns Landsat 4 TM scenes.
func skipRecord(dataset common.Dataset, record SceneRecord) bool {
	if dataset != common.LandsatTmC2L2 {
		return false
	}
	info, err := common.ParseSceneID(record.EntityID)
	if err != nil {
		return false
	}
	return info["SATELLITE"] == "4"
}

// CatalogDataset is an entry of the dataset-search endpoint
type CatalogDataset struct {
	DatasetAlias   string `json:"datasetAlias"`
	DatasetID      string `json:"datasetId"`
	CollectionName string `json:"collectionName"`
	Abstract       string `json:"abstractText"`
}

// Datasets searches the catalog datasets matching the given alias or name
func (api *API) Datasets(ctx context.Context, name string) ([]CatalogDataset, error) {
	data, err := api.request(ctx, "dataset-search", map[string]interface{}{
		"datasetName": name,
	})
	if err != nil {
		return nil, fmt.Errorf("Datasets.%w", err)
	}
	var datasets []CatalogDataset
	if err := json.Unmarshal(data, &datasets); err != nil {
		return nil, fmt.Errorf("Datasets.Unmarshal: %w", err)
	}
	return datasets, nil
}
