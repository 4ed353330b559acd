package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom"
	"go.uber.org/zap"

	"github.com/airbusgeo/usgsxplore/common"
	"github.com/airbusgeo/usgsxplore/downloader"
	"github.com/airbusgeo/usgsxplore/interface/provider"
	"github.com/airbusgeo/usgsxplore/interface/usgs"
	"github.com/airbusgeo/usgsxplore/service"
	"github.com/airbusgeo/usgsxplore/service/log"
)

const (
	usernameEnv = "USGSXPLORE_USERNAME"
	passwordEnv = "USGSXPLORE_PASSWORD"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s <command> [flags]

commands:
  search     search the scenes of a dataset
  download   download scenes given their ids
  datasets   list the catalog datasets matching a name
  metadata   print the metadata of a scene

Credentials are read from the -username/-password flags or from the
%s and %s environment variables.
`, os.Args[0], usernameEnv, passwordEnv)
	os.Exit(2)
}

func main() {
	ctx := context.Background()
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "search":
		err = runSearch(ctx, os.Args[2:])
	case "download":
		err = runDownload(ctx, os.Args[2:])
	case "datasets":
		err = runDatasets(ctx, os.Args[2:])
	case "metadata":
		err = runMetadata(ctx, os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

// credentials declares the -username/-password flags with their env fallback
func credentials(fs *flag.FlagSet) (*string, *string) {
	username := fs.String("username", os.Getenv(usernameEnv), "EarthExplorer username ($"+usernameEnv+")")
	password := fs.String("password", os.Getenv(passwordEnv), "EarthExplorer password ($"+passwordEnv+")")
	return username, password
}

func login(ctx context.Context, username, password string) (*usgs.API, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("missing credentials (-username/-password flags or $%s/$%s)", usernameEnv, passwordEnv)
	}
	return usgs.NewAPI(ctx, username, password)
}

// parseBBox parses a "xmin,ymin,xmax,ymax" bounding box
func parseBBox(s string) (*geom.Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox: expecting xmin,ymin,xmax,ymax, got %s", s)
	}
	var coords [4]float64
	for i, part := range parts {
		var err error
		if coords[i], err = strconv.ParseFloat(strings.TrimSpace(part), 64); err != nil {
			return nil, fmt.Errorf("bbox: %w", err)
		}
	}
	return geom.NewExtent([2]float64{coords[0], coords[1]}, [2]float64{coords[2], coords[3]}), nil
}

// parseLocation parses a "longitude,latitude" point of interest
func parseLocation(s string) (*geom.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("location: expecting longitude,latitude, got %s", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	return &geom.Point{lon, lat}, nil
}

func runSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	username, password := credentials(fs)
	dataset := fs.String("dataset", "", "dataset alias ("+strings.Join(common.DatasetAliases(), ", ")+")")
	bbox := fs.String("bbox", "", "bounding box xmin,ymin,xmax,ymax")
	aoi := fs.String("aoi", "", "geojson file whose bounding extent is used as the spatial filter")
	location := fs.String("location", "", "point of interest longitude,latitude")
	start := fs.String("start", "", "start date (YYYY-MM-DD)")
	end := fs.String("end", "", "end date (YYYY-MM-DD)")
	clouds := fs.Int("clouds", -1, "maximum cloud cover in percent")
	limit := fs.Int("limit", 0, "maximum number of results")
	output := fs.String("output", "text", "output format (text, csv, json)")
	browseDir := fs.String("browse-dir", "", "also download the browse previews of the results to this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := common.GetDataset(*dataset)
	if err != nil {
		return err
	}
	query := usgs.SearchQuery{Dataset: d, Limit: *limit}
	if *bbox != "" {
		if query.BBox, err = parseBBox(*bbox); err != nil {
			return err
		}
	}
	if *aoi != "" {
		if query.BBox, err = service.ReadAOIExtent(*aoi); err != nil {
			return err
		}
	}
	if *location != "" {
		if query.Point, err = parseLocation(*location); err != nil {
			return err
		}
	}
	if *start != "" {
		if query.StartDate, err = dateparse.ParseAny(*start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}
	if *end != "" {
		if query.EndDate, err = dateparse.ParseAny(*end); err != nil {
			return fmt.Errorf("end: %w", err)
		}
	}
	if *clouds >= 0 {
		query.MaxCloudCover = clouds
	}

	api, err := login(ctx, *username, *password)
	if err != nil {
		return err
	}
	defer api.Logout(ctx)

	records, err := api.Search(ctx, query)
	if err != nil {
		return err
	}
	if *browseDir != "" {
		if err := downloadBrowses(ctx, records, *browseDir); err != nil {
			return err
		}
	}
	return renderRecords(records, *output)
}

// downloadBrowses fetches the first browse preview of each record
func downloadBrowses(ctx context.Context, records []usgs.SceneRecord, browseDir string) error {
	if err := os.MkdirAll(browseDir, 0755); err != nil {
		return err
	}
	for _, record := range records {
		if len(record.Browse) == 0 {
			continue
		}
		url := record.Browse[0]
		body, err := service.GetBodyRetry(url, 2)
		if err != nil {
			log.Logger(ctx).Sugar().Warnf("browse of %s: %v", record.DisplayID, err)
			continue
		}
		ext := "jpg"
		if e := service.GetExt(url); e != service.NoExtension {
			ext = string(e)
		}
		name := filepath.Join(browseDir, record.DisplayID+"."+ext)
		if err := os.WriteFile(name, body, 0644); err != nil {
			return err
		}
	}
	return nil
}

func renderRecords(records []usgs.SceneRecord, output string) error {
	switch output {
	case "text":
		for _, record := range records {
			clouds := "  ?"
			if record.CloudCover != usgs.CloudCoverUnknown {
				clouds = fmt.Sprintf("%3d", record.CloudCover)
			}
			fmt.Printf("%-25s %s %s%%  %s\n", record.EntityID, record.AcquisitionDate.Format("2006-01-02"), clouds, record.DisplayID)
		}
	case "csv":
		w := csv.NewWriter(os.Stdout)
		if err := w.Write([]string{"entity_id", "display_id", "acquisition_date", "cloud_cover"}); err != nil {
			return err
		}
		for _, record := range records {
			if err := w.Write([]string{
				record.EntityID,
				record.DisplayID,
				record.AcquisitionDate.Format("2006-01-02"),
				strconv.Itoa(record.CloudCover),
			}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	default:
		return fmt.Errorf("unknown output format %s (text, csv, json)", output)
	}
	return nil
}

func runDownload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	username, password := credentials(fs)
	dataset := fs.String("dataset", "", "dataset alias, required for legacy scene ids only")
	outputDir := fs.String("output-dir", ".", "directory where the products are downloaded")
	timeout := fs.Duration("timeout", 30*time.Minute, "timeout of one download attempt")
	skip := fs.Bool("skip", false, "skip the scenes already present in the output directory")
	extract := fs.Bool("extract", false, "extract the product bundles after download")
	localPath := fs.String("local-path", "", "local mirror path, tried before any remote provider (optional)")
	awsKey := fs.String("aws-access-key-id", os.Getenv("AWS_ACCESS_KEY_ID"), "AWS access key, to also use the usgs-landsat mirror (requester pays)")
	awsSecret := fs.String("aws-secret-access-key", os.Getenv("AWS_SECRET_ACCESS_KEY"), "AWS secret key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("download: no scene id given")
	}

	if *dataset != "" {
		if _, err := common.GetDataset(*dataset); err != nil {
			return err
		}
	}

	api, err := login(ctx, *username, *password)
	if err != nil {
		return err
	}
	defer api.Logout(ctx)

	var scenes []usgs.SceneRecord
	for _, identifier := range fs.Args() {
		d, err := common.ResolveDataset(identifier, *dataset)
		if err != nil {
			return err
		}
		entityID := identifier
		if common.IsDisplayID(identifier) {
			if entityID, err = api.EntityID(ctx, d, identifier); err != nil {
				return fmt.Errorf("%s: %w", identifier, err)
			}
		}
		record, err := api.Metadata(ctx, d, entityID)
		if err != nil {
			return fmt.Errorf("%s: %w", identifier, err)
		}
		scenes = append(scenes, record)
	}

	imageProviders := []provider.ImageProvider{}
	if *localPath != "" {
		imageProviders = append(imageProviders, provider.NewLocalImageProvider(*localPath))
	}
	if *awsKey != "" {
		imageProviders = append(imageProviders, provider.NewLandsatAwsImageProvider(*awsKey, *awsSecret))
	}
	ee := provider.NewEarthExplorerImageProvider(api, *timeout, *skip)
	ee.Extract = *extract
	imageProviders = append(imageProviders, ee)

	failed := 0
	for _, result := range downloader.ProcessScenes(ctx, imageProviders, scenes, *outputDir) {
		if result.Err != nil {
			failed++
			log.Logger(ctx).Error(result.Scene.DisplayID, zap.Error(result.Err))
			continue
		}
		fmt.Println(result.LocalFile)
	}
	if failed != 0 {
		return fmt.Errorf("download: %d/%d scenes failed", failed, len(scenes))
	}
	return nil
}

func runDatasets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("datasets", flag.ExitOnError)
	username, password := credentials(fs)
	name := fs.String("name", "", "dataset alias or collection name to search for")
	if err := fs.Parse(args); err != nil {
		return err
	}

	api, err := login(ctx, *username, *password)
	if err != nil {
		return err
	}
	defer api.Logout(ctx)

	datasets, err := api.Datasets(ctx, *name)
	if err != nil {
		return err
	}
	for _, dataset := range datasets {
		fmt.Printf("%-30s %s\n", dataset.DatasetAlias, dataset.CollectionName)
	}
	return nil
}

func runMetadata(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("metadata", flag.ExitOnError)
	username, password := credentials(fs)
	dataset := fs.String("dataset", "", "dataset alias, required for legacy scene ids only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("metadata: expecting one scene id")
	}
	identifier := fs.Arg(0)

	if *dataset != "" {
		if _, err := common.GetDataset(*dataset); err != nil {
			return err
		}
	}
	d, err := common.ResolveDataset(identifier, *dataset)
	if err != nil {
		return err
	}

	api, err := login(ctx, *username, *password)
	if err != nil {
		return err
	}
	defer api.Logout(ctx)

	entityID := identifier
	if common.IsDisplayID(identifier) {
		if entityID, err = api.EntityID(ctx, d, identifier); err != nil {
			return err
		}
	}
	record, err := api.Metadata(ctx, d, entityID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record.Raw)
}
