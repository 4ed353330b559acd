package usgs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/airbusgeo/usgsxplore/common"
)

// Metadata fetches and normalizes the full metadata of one scene
func (api *API) Metadata(ctx context.Context, dataset common.Dataset, entityID string) (SceneRecord, error) {
	data, err := api.request(ctx, "scene-metadata", map[string]interface{}{
		"datasetName":  dataset.Alias(),
		"entityId":     entityID,
		"metadataType": "full",
	})
	if err != nil {
		return SceneRecord{}, fmt.Errorf("Metadata.%w", err)
	}
	record, err := normalizeScene(dataset, data)
	if err != nil {
		return SceneRecord{}, fmt.Errorf("Metadata.%w", err)
	}
	return record, nil
}

// DisplayID returns the product/display id of a scene given its entity id
func (api *API) DisplayID(ctx context.Context, dataset common.Dataset, entityID string) (string, error) {
	record, err := api.Metadata(ctx, dataset, entityID)
	if err != nil {
		return "", fmt.Errorf("DisplayID.%w", err)
	}
	return record.DisplayID, nil
}

// EntityIDs translates display ids into entity ids. The lookup endpoint was
// removed in API v1.5: the translation goes through a temporary scene list
// (scene-list-add / scene-list-get / scene-list-remove).
func (api *API) EntityIDs(ctx context.Context, dataset common.Dataset, displayIDs ...string) ([]string, error) {
	listID := "usgsxplore-" + uuid.New().String()
	if _, err := api.request(ctx, "scene-list-add", map[string]interface{}{
		"listId":      listID,
		"datasetName": dataset.Alias(),
		"idField":     "displayId",
		"entityIds":   displayIDs,
	}); err != nil {
		return nil, fmt.Errorf("EntityIDs.%w", err)
	}
	// the temporary list is removed even if scene-list-get fails
	defer func() {
		_, _ = api.request(ctx, "scene-list-remove", map[string]interface{}{"listId": listID})
	}()

	data, err := api.request(ctx, "scene-list-get", map[string]interface{}{"listId": listID})
	if err != nil {
		return nil, fmt.Errorf("EntityIDs.%w", err)
	}
	var scenes []struct {
		EntityID string `json:"entityId"`
	}
	if err := json.Unmarshal(data, &scenes); err != nil {
		return nil, fmt.Errorf("EntityIDs.Unmarshal: %w", err)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("EntityIDs: %w: %v", ErrNotFound, displayIDs)
	}
	entityIDs := make([]string, len(scenes))
	for i, scene := range scenes {
		entityIDs[i] = scene.EntityID
	}
	return entityIDs, nil
}

// EntityID translates a single display id into an entity id
func (api *API) EntityID(ctx context.Context, dataset common.Dataset, displayID string) (string, error) {
	ids, err := api.EntityIDs(ctx, dataset, displayID)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}
