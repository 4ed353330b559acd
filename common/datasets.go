package common

import (
	"fmt"
	"sort"
	"strings"
)

//go:generate go run github.com/dmarkham/enumer -json -type Family

// Family is the metadata family of a dataset. The catalog reports scene
// metadata with different field names per family; all normalization is keyed
// on this discriminator.
type Family int

const (
	UnknownFamily Family = iota
	Landsat
	Sentinel2
)

// Dataset is a catalog-known dataset alias (e.g. landsat_ot_c2_l2)
type Dataset string

// Datasets known to the catalog
const (
	LandsatTmC1    Dataset = "landsat_tm_c1"
	LandsatEtmC1   Dataset = "landsat_etm_c1"
	Landsat8C1     Dataset = "landsat_8_c1"
	LandsatTmC2L1  Dataset = "landsat_tm_c2_l1"
	LandsatTmC2L2  Dataset = "landsat_tm_c2_l2"
	LandsatEtmC2L1 Dataset = "landsat_etm_c2_l1"
	LandsatEtmC2L2 Dataset = "landsat_etm_c2_l2"
	LandsatOtC2L1  Dataset = "landsat_ot_c2_l1"
	LandsatOtC2L2  Dataset = "landsat_ot_c2_l2"
	Sentinel2A     Dataset = "sentinel_2a"
)

// DatasetInfo describes a dataset of the registry
type DatasetInfo struct {
	// DataProductID is the id of the GeoTIFF data product on EarthExplorer
	DataProductID string
	Family        Family
	// Extension of the product bundle served by the catalog
	Extension string
}

var datasets = map[Dataset]DatasetInfo{
	LandsatTmC1:    {DataProductID: "5e83d08fd9932768", Family: Landsat, Extension: "tar.gz"},
	LandsatEtmC1:   {DataProductID: "5e83a507d6aaa3db", Family: Landsat, Extension: "tar.gz"},
	Landsat8C1:     {DataProductID: "5e83d0b84df8d8c2", Family: Landsat, Extension: "tar.gz"},
	LandsatTmC2L1:  {DataProductID: "5e83d0a0f94d7d8d", Family: Landsat, Extension: "tar"},
	LandsatEtmC2L1: {DataProductID: "5e83d0d0d2aaa488", Family: Landsat, Extension: "tar"},
	LandsatOtC2L1:  {DataProductID: "5e81f14ff4f9941c", Family: Landsat, Extension: "tar"},
	LandsatTmC2L2:  {DataProductID: "5e83d11933473426", Family: Landsat, Extension: "tar"},
	LandsatEtmC2L2: {DataProductID: "5e83d12aada2e3c5", Family: Landsat, Extension: "tar"},
	LandsatOtC2L2:  {DataProductID: "5e83d14f30ea90a9", Family: Landsat, Extension: "tar"},
	Sentinel2A:     {DataProductID: "5e83a42c6eba8084", Family: Sentinel2, Extension: "zip"},
}

// GetDataset validates a user supplied dataset alias against the registry
func GetDataset(alias string) (Dataset, error) {
	d := Dataset(strings.ToLower(strings.TrimSpace(alias)))
	if _, ok := datasets[d]; !ok {
		return "", fmt.Errorf("unknown dataset: %s (available: %s)", alias, strings.Join(DatasetAliases(), ", "))
	}
	return d, nil
}

// Info returns the registry entry of the dataset
func (d Dataset) Info() DatasetInfo {
	return datasets[d]
}

// Family returns the metadata family of the dataset
func (d Dataset) Family() Family {
	return datasets[d].Family
}

// Alias returns the catalog alias of the dataset
func (d Dataset) Alias() string {
	return string(d)
}

// DatasetAliases returns the sorted aliases of the registry
func DatasetAliases() []string {
	aliases := make([]string, 0, len(datasets))
	for d := range datasets {
		aliases = append(aliases, string(d))
	}
	sort.Strings(aliases)
	return aliases
}
