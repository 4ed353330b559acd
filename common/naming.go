package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Scene identifiers come in two flavours:
//   - product id ("display id"), e.g. LC08_L1TP_196030_20200207_20200211_01_T1,
//     which embeds sensor/satellite/collection/level positionally,
//   - legacy entity id ("scene id"), e.g. LC81960302020038LGN00, which does not
//     self-describe dataset across the collection/level split.

var (
	landsatProductIDRe = regexp.MustCompile(`^L[A-Z]\d{2}_[A-Z0-9]{4}_\d{6}_\d{8}_\d{8}_\d{2}_[A-Z0-9]{2}$`)
	landsatSceneIDRe   = regexp.MustCompile(`^L[A-Z]\d[0-9]{3}[0-9]{3}\d{4}\d{3}[A-Z0-9]{3}\d{2}$`)
	sentinelEntityIDRe = regexp.MustCompile(`^\d{8}$`)
)

// ErrAmbiguousDataset is returned when a scene identifier does not carry
// enough information to resolve its dataset.
type ErrAmbiguousDataset struct {
	Identifier string
}

func (e ErrAmbiguousDataset) Error() string {
	return fmt.Sprintf("cannot resolve dataset from identifier %s: a dataset hint is required", e.Identifier)
}

// IsLandsatProductID returns whether the identifier is a Landsat product id
func IsLandsatProductID(id string) bool {
	return len(id) == 40 && landsatProductIDRe.MatchString(id)
}

// IsLandsatSceneID returns whether the identifier is a legacy Landsat scene id
func IsLandsatSceneID(id string) bool {
	return len(id) == 21 && landsatSceneIDRe.MatchString(id)
}

// IsSentinelDisplayID returns whether the identifier is a Sentinel-2 display id
func IsSentinelDisplayID(id string) bool {
	return len(id) == 34 && id[0] == 'L'
}

// IsSentinelEntityID returns whether the identifier is a Sentinel-2 entity id
func IsSentinelEntityID(id string) bool {
	return sentinelEntityIDRe.MatchString(id)
}

// IsDisplayID returns whether the identifier is a product/display id
func IsDisplayID(id string) bool {
	return IsLandsatProductID(id) || IsSentinelDisplayID(id)
}

// IsEntityID returns whether the identifier is a legacy entity id
func IsEntityID(id string) bool {
	return IsLandsatSceneID(id) || IsSentinelEntityID(id)
}

// ParseProductID retrieves information from a Landsat product identifier
func ParseProductID(productID string) (map[string]string, error) {
	if !IsLandsatProductID(productID) {
		return nil, fmt.Errorf("invalid Landsat product id: %s", productID)
	}
	return map[string]string{
		"PRODUCT_ID":          productID,
		"SENSOR":              productID[1:2],
		"SATELLITE":           productID[2:4],
		"PROCESSING_LEVEL":    productID[5:9],
		"WRS_PATH":            productID[10:13],
		"WRS_ROW":             productID[13:16],
		"ACQUISITION_DATE":    productID[17:25],
		"YEAR":                productID[17:21],
		"MONTH":               productID[21:23],
		"DAY":                 productID[23:25],
		"PROCESSING_DATE":     productID[26:34],
		"COLLECTION_NUMBER":   productID[35:37],
		"COLLECTION_CATEGORY": productID[38:40],
	}, nil
}

// ParseSceneID retrieves information from a legacy Landsat scene identifier
func ParseSceneID(sceneID string) (map[string]string, error) {
	if !IsLandsatSceneID(sceneID) {
		return nil, fmt.Errorf("invalid Landsat scene id: %s", sceneID)
	}
	return map[string]string{
		"SCENE_ID":        sceneID,
		"SENSOR":          sceneID[1:2],
		"SATELLITE":       sceneID[2:3],
		"WRS_PATH":        sceneID[3:6],
		"WRS_ROW":         sceneID[6:9],
		"YEAR":            sceneID[9:13],
		"JULIAN_DAY":      sceneID[13:16],
		"GROUND_STATION":  sceneID[16:19],
		"ARCHIVE_VERSION": sceneID[19:21],
	}, nil
}

// GetDateFromProductID returns the acquisition date embedded in a Landsat product id
func GetDateFromProductID(productID string) (time.Time, error) {
	info, err := ParseProductID(productID)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", info["ACQUISITION_DATE"])
}

// landsatDataset returns the dataset of a landsat satellite/collection/level triple
func landsatDataset(satellite int, collection, level string) (Dataset, error) {
	var sensor string
	switch {
	case satellite == 4 || satellite == 5:
		sensor, collection = "tm", "c2" // Collection 1 TM was decommissioned
	case satellite == 7:
		sensor = "etm"
	case (satellite == 8 || satellite == 9) && collection == "c1":
		return "", fmt.Errorf("collection 1 was decommissioned")
	case satellite == 8 || satellite == 9:
		sensor = "ot"
	default:
		return "", fmt.Errorf("unsupported Landsat satellite: %d", satellite)
	}
	alias := fmt.Sprintf("landsat_%s_%s", sensor, collection)
	if collection == "c2" {
		alias += "_" + level
	}
	return GetDataset(alias)
}

// ResolveDataset resolves the dataset of a scene identifier.
// Product ids self-describe their dataset. Legacy entity ids do not (the
// collection/level split is not encoded) and require a non-empty hint,
// otherwise ErrAmbiguousDataset is returned.
func ResolveDataset(identifier, hint string) (Dataset, error) {
	if hint != "" {
		return GetDataset(hint)
	}
	switch {
	case IsLandsatProductID(identifier):
		info, err := ParseProductID(identifier)
		if err != nil {
			return "", err
		}
		satellite, err := strconv.Atoi(info["SATELLITE"])
		if err != nil {
			return "", fmt.Errorf("ResolveDataset[%s]: %w", identifier, err)
		}
		collection := "c" + info["COLLECTION_NUMBER"][1:]
		level := strings.ToLower(info["PROCESSING_LEVEL"][:2])
		return landsatDataset(satellite, collection, level)
	case IsSentinelDisplayID(identifier), IsSentinelEntityID(identifier):
		return Sentinel2A, nil
	case IsLandsatSceneID(identifier):
		return "", ErrAmbiguousDataset{identifier}
	}
	return "", fmt.Errorf("unrecognized scene identifier: %s", identifier)
}
