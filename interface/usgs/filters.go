package usgs

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom"

	"github.com/airbusgeo/usgsxplore/common"
)

// pointRadius is the implicit half-size in degrees of the minimum bounding
// rectangle built around a point of interest.
const pointRadius = 0.1

// Coordinate is a coordinate as expected by the M2M API (EPSG:4326)
type Coordinate struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// spatialFilterMbr is the minimum-bounding-rectangle spatial filter
type spatialFilterMbr struct {
	FilterType string     `json:"filterType"`
	LowerLeft  Coordinate `json:"lowerLeft"`
	UpperRight Coordinate `json:"upperRight"`
}

func newSpatialFilterMbr(xmin, ymin, xmax, ymax float64) spatialFilterMbr {
	return spatialFilterMbr{
		FilterType: "mbr",
		LowerLeft:  Coordinate{Longitude: xmin, Latitude: ymin},
		UpperRight: Coordinate{Longitude: xmax, Latitude: ymax},
	}
}

// acquisitionFilter is the acquisition date-range filter
type acquisitionFilter struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// cloudCoverFilter filters scenes on their cloud cover percentage
type cloudCoverFilter struct {
	Min            int  `json:"min"`
	Max            int  `json:"max"`
	IncludeUnknown bool `json:"includeUnknown"`
}

// sceneFilter is the search filter of the scene-search endpoint
type sceneFilter struct {
	AcquisitionFilter *acquisitionFilter `json:"acquisitionFilter,omitempty"`
	SpatialFilter     *spatialFilterMbr  `json:"spatialFilter,omitempty"`
	CloudCoverFilter  *cloudCoverFilter  `json:"cloudCoverFilter,omitempty"`
	SeasonalFilter    []int              `json:"seasonalFilter,omitempty"`
}

// SearchQuery describes a scene search. The spatial filter is either a point
// of interest (with the implicit pointRadius) or a bounding box, never both.
type SearchQuery struct {
	Dataset common.Dataset `validate:"required"`

	// Point of interest (mutually exclusive with BBox)
	Point *geom.Point
	// Bounding box (xmin, ymin, xmax, ymax)
	BBox *geom.Extent

	StartDate time.Time
	EndDate   time.Time

	// MaxCloudCover in percent; nil to not filter on cloud cover
	MaxCloudCover *int `validate:"omitempty,min=0,max=100"`
	// Months limits the results to the given month numbers
	Months []int `validate:"omitempty,dive,min=1,max=12"`
	// Limit is the hard upper bound on returned records (default searchDefaultLimit)
	Limit int `validate:"min=0"`
}

var queryValidator = validator.New()

// Validate checks the query before any network access
func (q SearchQuery) Validate() error {
	if _, err := common.GetDataset(string(q.Dataset)); err != nil {
		return fmt.Errorf("SearchQuery: %w", err)
	}
	if q.Point != nil && q.BBox != nil {
		return fmt.Errorf("SearchQuery: point and bounding box filters are mutually exclusive")
	}
	if !q.StartDate.IsZero() && !q.EndDate.IsZero() && q.EndDate.Before(q.StartDate) {
		return fmt.Errorf("SearchQuery: end date %s before start date %s", q.EndDate.Format("2006-01-02"), q.StartDate.Format("2006-01-02"))
	}
	if err := queryValidator.Struct(q); err != nil {
		return fmt.Errorf("SearchQuery: %w", err)
	}
	return nil
}

// sceneFilter builds the provider-specific filter of the query
func (q SearchQuery) sceneFilter() *sceneFilter {
	filter := sceneFilter{SeasonalFilter: q.Months}

	switch {
	case q.Point != nil:
		mbr := newSpatialFilterMbr(q.Point.X()-pointRadius, q.Point.Y()-pointRadius, q.Point.X()+pointRadius, q.Point.Y()+pointRadius)
		filter.SpatialFilter = &mbr
	case q.BBox != nil:
		mbr := newSpatialFilterMbr(q.BBox.MinX(), q.BBox.MinY(), q.BBox.MaxX(), q.BBox.MaxY())
		filter.SpatialFilter = &mbr
	}

	if !q.StartDate.IsZero() && !q.EndDate.IsZero() {
		filter.AcquisitionFilter = &acquisitionFilter{
			Start: q.StartDate.Format("2006-01-02"),
			End:   q.EndDate.Format("2006-01-02"),
		}
	}

	if q.MaxCloudCover != nil {
		filter.CloudCoverFilter = &cloudCoverFilter{Min: 0, Max: *q.MaxCloudCover, IncludeUnknown: false}
	}

	return &filter
}
