package provider

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/airbusgeo/usgsxplore/common"
	"github.com/airbusgeo/usgsxplore/interface/usgs"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	landsatAwsBucket = "usgs-landsat"
	// collection02/{level}/standard/{sensor}/{year}/{path}/{row}/{productId}/
	landsatAwsPrefixTemplate = "collection02/%s/standard/%s/%s/%s/%s/%s/"
	landsatAwsRegion         = "us-west-2"
)

// LandsatAwsImageProvider implements ImageProvider for the usgs-landsat
// requester-pays mirror. Only Collection 2 products are hosted there.
type LandsatAwsImageProvider struct {
	accessKeyId     string
	secretAccessKey string
}

// Name implements ImageProvider
func (ip *LandsatAwsImageProvider) Name() string {
	return "LandsatAws"
}

// NewLandsatAwsImageProvider creates a new ImageProvider from the usgs-landsat bucket
func NewLandsatAwsImageProvider(accessKeyId, secretAccessKey string) *LandsatAwsImageProvider {
	return &LandsatAwsImageProvider{accessKeyId, secretAccessKey}
}

// landsatAwsSensorDir maps the product sensor/satellite to the bucket layout
func landsatAwsSensorDir(info map[string]string) (string, error) {
	switch info["SENSOR"] {
	case "C", "O":
		return "oli-tirs", nil
	case "E":
		return "etm", nil
	case "M":
		return "mss", nil
	case "T":
		if info["SATELLITE"] == "08" || info["SATELLITE"] == "09" {
			return "oli-tirs", nil
		}
		return "tm", nil
	}
	return "", fmt.Errorf("landsatAwsSensorDir: unknown sensor %s", info["SENSOR"])
}

// Download implements ImageProvider
func (ip *LandsatAwsImageProvider) Download(ctx context.Context, scene usgs.SceneRecord, localDir string) (string, error) {
	sceneName := scene.DisplayID
	if !common.IsLandsatProductID(sceneName) {
		return "", ErrProductNotFound{sceneName}
	}

	info, err := common.ParseProductID(sceneName)
	if err != nil {
		return "", fmt.Errorf("LandsatAwsImageProvider.%w", err)
	}
	if info["COLLECTION_NUMBER"] != "02" {
		return "", ErrProductNotFound{sceneName}
	}

	levelDir := "level-1"
	if strings.HasPrefix(info["PROCESSING_LEVEL"], "L2") {
		levelDir = "level-2"
	}
	sensorDir, err := landsatAwsSensorDir(info)
	if err != nil {
		return "", fmt.Errorf("LandsatAwsImageProvider.%w", err)
	}

	landsatAwsPrefix := fmt.Sprintf(landsatAwsPrefixTemplate, levelDir, sensorDir,
		info["YEAR"], info["WRS_PATH"], info["WRS_ROW"], sceneName)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ip.accessKeyId, ip.secretAccessKey, "")),
		config.WithRegion(landsatAwsRegion),
	)
	if err != nil {
		return "", fmt.Errorf("LandsatAwsImageProvider config.LoadDefaultConfig: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = 10 * 1024 * 1024 // 10MB per part
	})

	paginator := s3.NewListObjectsV2Paginator(client,
		&s3.ListObjectsV2Input{
			Bucket:       aws.String(landsatAwsBucket),
			Prefix:       aws.String(landsatAwsPrefix),
			RequestPayer: "requester",
		},
		func(o *s3.ListObjectsV2PaginatorOptions) {
			o.Limit = 200 // much more than the typical number of files in a Landsat product
		},
	)

	productDir := path.Join(localDir, sceneName)
	if err := os.MkdirAll(productDir, 0755); err != nil {
		return "", fmt.Errorf("LandsatAwsImageProvider os.MkdirAll: %w", err)
	}

	found := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("LandsatAwsImageProvider paginator.NextPage: %w", err)
		}

		for _, object := range page.Contents {
			found = true
			objectKey := aws.ToString(object.Key)
			objectFileName := objectKey[strings.LastIndex(objectKey, "/")+1:]
			localFilePath := path.Join(productDir, objectFileName)

			if err := downloadSingleObjectToFile(downloader, ctx, landsatAwsBucket, objectKey, localFilePath); err != nil {
				return "", fmt.Errorf("LandsatAwsImageProvider.%w", err)
			}
		}
	}
	if !found {
		return "", ErrProductNotFound{sceneName}
	}

	return productDir, nil
}

func downloadSingleObjectToFile(downloader *manager.Downloader, ctx context.Context, bucketName string, objectKey string, localPath string) error {
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("downloadSingleObjectToFile: failed to create file %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket:       aws.String(bucketName),
		Key:          aws.String(objectKey),
		RequestPayer: "requester",
	})
	if err != nil {
		return fmt.Errorf("downloadSingleObjectToFile: failed to download object %s:%s: %w",
			bucketName, objectKey, err)
	}

	return nil
}
