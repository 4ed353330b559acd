package usgs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"

	"github.com/airbusgeo/usgsxplore/common"
)

// CloudCoverUnknown is the cloud cover of a scene for which the catalog does
// not report a value. Never zero: a cloudless scene is not an unknown one.
const CloudCoverUnknown = -1

// SceneRecord is a scene normalized across dataset families. Raw keeps every
// catalog field (snake_case names) for forward compatibility.
type SceneRecord struct {
	EntityID        string
	DisplayID       string
	Dataset         common.Dataset
	AcquisitionDate time.Time
	CloudCover      int
	Footprint       geom.Geometry
	Bounds          geom.Geometry
	// Browse preview urls, full resolution first
	Browse []string
	Raw    map[string]interface{}
}

// sceneResult is the raw shape of one scene of a scene-search/scene-metadata response
type sceneResult struct {
	EntityID         string           `json:"entityId"`
	DisplayID        string           `json:"displayId"`
	CloudCover       interface{}      `json:"cloudCover"`
	SpatialCoverage  *geojson.Geometry `json:"spatialCoverage"`
	SpatialBounds    *geojson.Geometry `json:"spatialBounds"`
	TemporalCoverage *struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"temporalCoverage"`
	Browse []struct {
		BrowseName    string `json:"browseName"`
		BrowsePath    string `json:"browsePath"`
		ThumbnailPath string `json:"thumbnailPath"`
	} `json:"browse"`
	Metadata []struct {
		FieldName      string      `json:"fieldName"`
		DictionaryLink string      `json:"dictionaryLink"`
		Value          interface{} `json:"value"`
	} `json:"metadata"`
}

// normalizeScene absorbs the per-family shape variance of the catalog: this
// is the only place where dataset-specific field names are interpreted.
func normalizeScene(dataset common.Dataset, data json.RawMessage) (SceneRecord, error) {
	var raw sceneResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return SceneRecord{}, fmt.Errorf("normalizeScene.Unmarshal [%s]: %w", data, err)
	}

	record := SceneRecord{
		EntityID:   raw.EntityID,
		DisplayID:  raw.DisplayID,
		Dataset:    dataset,
		CloudCover: coerceCloudCover(raw.CloudCover),
		Raw:        map[string]interface{}{},
	}
	if raw.SpatialCoverage != nil {
		record.Footprint = raw.SpatialCoverage.Geometry
	}
	if raw.SpatialBounds != nil {
		record.Bounds = raw.SpatialBounds.Geometry
	}
	for _, browse := range raw.Browse {
		if browse.BrowsePath != "" {
			record.Browse = append(record.Browse, browse.BrowsePath)
		}
	}

	// Preserve every field opaquely, top-level ones under their snake_case
	// name, "metadata" entries under their snake_case field name.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return SceneRecord{}, fmt.Errorf("normalizeScene.Unmarshal: %w", err)
	}
	for key, value := range fields {
		if key == "metadata" || key == "browse" {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(value, &v); err == nil {
			record.Raw[camelToSnake(key)] = v
		}
	}
	for _, meta := range raw.Metadata {
		if strings.HasSuffix(meta.DictionaryLink, "#coordinates_degrees") {
			continue
		}
		record.Raw[metadataFieldName(dataset.Family(), meta.FieldName)] = meta.Value
	}

	date, err := acquisitionDate(dataset.Family(), record.Raw, raw)
	if err != nil {
		return SceneRecord{}, fmt.Errorf("normalizeScene[%s]: %w", raw.EntityID, err)
	}
	record.AcquisitionDate = date

	if record.CloudCover == CloudCoverUnknown {
		record.CloudCover = familyCloudCover(dataset.Family(), record.Raw)
	}

	return record, nil
}

// metadataFieldName normalizes a catalog field name per dataset family
func metadataFieldName(family common.Family, fieldName string) string {
	name := titleToSnake(fieldName)
	name = strings.ReplaceAll(name, "identifier", "id")
	if name == "date_acquired" {
		name = "acquisition_date"
	}
	// Processing-level suffixes vary across collections of a same family
	name = strings.ReplaceAll(name, "_l1", "")
	name = strings.ReplaceAll(name, "_l2", "")
	if family == common.Sentinel2 && name == "entity_id" {
		// Sentinel metadata has an "Entity ID" field that would conflict
		// with the entityId of the response
		name = "sentinel_entity_id"
	}
	return name
}

// acquisitionDate extracts the acquisition date, per family
func acquisitionDate(family common.Family, raw map[string]interface{}, scene sceneResult) (time.Time, error) {
	var candidates []string
	switch family {
	case common.Sentinel2:
		candidates = []string{"acquisition_start_date", "acquisition_date"}
	default:
		candidates = []string{"acquisition_date", "start_time"}
	}
	for _, key := range candidates {
		if v, ok := raw[key].(string); ok && v != "" {
			return parseDate(v)
		}
	}
	if scene.TemporalCoverage != nil && scene.TemporalCoverage.StartDate != "" {
		return parseDate(scene.TemporalCoverage.StartDate)
	}
	return time.Time{}, fmt.Errorf("no acquisition date in scene fields")
}

// familyCloudCover falls back on the per-family metadata cloud cover field
func familyCloudCover(family common.Family, raw map[string]interface{}) int {
	keys := []string{"scene_cloud_cover", "cloud_cover"}
	if family == common.Sentinel2 {
		keys = []string{"cloud_cover"}
	}
	for _, key := range keys {
		if cc := coerceCloudCover(raw[key]); cc != CloudCoverUnknown {
			return cc
		}
	}
	return CloudCoverUnknown
}

// coerceCloudCover coerces the heterogeneous cloud cover values of the
// catalog into an integer percentage, CloudCoverUnknown when not available
func coerceCloudCover(v interface{}) int {
	switch cc := v.(type) {
	case float64:
		return int(cc + 0.5)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(cc), 64)
		if err != nil {
			return CloudCoverUnknown
		}
		return int(f + 0.5)
	}
	return CloudCoverUnknown
}

// parseDate parses the provider date formats, including the julian
// YYYY:DDD:HH:MM:SS.ffffff format of the start/end time fields
func parseDate(s string) (time.Time, error) {
	if t, err := dateparse.ParseAny(s); err == nil {
		return t, nil
	}
	nofrag, frag, _ := strings.Cut(s, ".")
	t, err := time.Parse("2006:002:15:04:05", nofrag)
	if err != nil {
		return time.Time{}, fmt.Errorf("parseDate[%s]: %w", s, err)
	}
	if frag != "" {
		if micro, err := strconv.Atoi((frag + "000000")[:6]); err == nil {
			t = t.Add(time.Duration(micro) * time.Microsecond)
		}
	}
	return t, nil
}

// camelToSnake converts a camelCase name to snake_case
func camelToSnake(s string) string {
	var b strings.Builder
	for i, c := range s {
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(c - 'A' + 'a')
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// titleToSnake converts a title cased field name to snake_case
func titleToSnake(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(s), " ", "_"), "/", "-")
}
