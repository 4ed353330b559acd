package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/airbusgeo/usgsxplore/common"
	"github.com/airbusgeo/usgsxplore/interface/usgs"
)

// fakeCatalog serves the minimal M2M endpoints of a download flow plus the
// product file itself, failing the first fileFailures file requests.
type fakeCatalog struct {
	srv          *httptest.Server
	fileFailures int
	truncate     int
	fileRequests int
	requests     int

	options          []map[string]interface{}
	requestedProduct string
}

func (c *fakeCatalog) handle(w http.ResponseWriter, r *http.Request) {
	c.requests++
	respond := func(data interface{}) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data, "errorCode": nil, "errorMessage": nil})
	}
	switch strings.TrimPrefix(r.URL.Path, "/") {
	case "login":
		respond("token-1")
	case "download-options":
		options := c.options
		if options == nil {
			options = []map[string]interface{}{
				{"id": "p1", "entityId": "LT51960301995178MPS00", "available": true, "productName": "Landsat Collection 2 Level-1 Product Bundle"},
				{"id": "p2", "entityId": "LT51960301995178MPS00", "available": true, "productName": "Full-Resolution Browse (Natural Color) GeoTIFF"},
			}
		}
		respond(options)
	case "download-request":
		var params struct {
			Downloads []struct {
				ProductID string `json:"productId"`
			} `json:"downloads"`
		}
		_ = json.NewDecoder(r.Body).Decode(&params)
		if len(params.Downloads) > 0 {
			c.requestedProduct = params.Downloads[0].ProductID
		}
		respond(map[string]interface{}{
			"availableDownloads": []map[string]interface{}{
				{"downloadId": 1, "entityId": "LT51960301995178MPS00", "url": c.srv.URL + "/file/LT05_L1TP_196030_19950627_20200907_02_T1.tar"},
			},
		})
	case "file/LT05_L1TP_196030_19950627_20200907_02_T1.tar":
		c.fileRequests++
		if c.fileRequests <= c.fileFailures {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if c.fileRequests <= c.fileFailures+c.truncate {
			w.Header().Set("Content-Length", "1000")
			fmt.Fprint(w, "partial")
			return
		}
		fmt.Fprint(w, "product bytes")
	default:
		http.NotFound(w, r)
	}
}

func newFakeCatalog(fileFailures int) *fakeCatalog {
	c := &fakeCatalog{fileFailures: fileFailures}
	c.srv = httptest.NewServer(http.HandlerFunc(c.handle))
	return c
}

func testScene() usgs.SceneRecord {
	return usgs.SceneRecord{
		EntityID:  "LT51960301995178MPS00",
		DisplayID: "LT05_L1TP_196030_19950627_20200907_02_T1",
		Dataset:   common.LandsatTmC2L1,
	}
}

func TestEarthExplorerDownload(t *testing.T) {
	catalog := newFakeCatalog(2)
	defer catalog.srv.Close()

	api, err := usgs.NewCustomAPI(context.Background(), catalog.srv.URL, "user", "pass")
	if err != nil {
		t.Fatal(err)
	}
	ip := NewEarthExplorerImageProvider(api, time.Minute, false)
	ip.retryWait = time.Millisecond

	localDir := t.TempDir()
	localFile, err := ip.Download(context.Background(), testScene(), localDir)
	if err != nil {
		t.Fatal(err)
	}

	// two failures then success: exactly three attempts
	if catalog.fileRequests != 3 {
		t.Errorf("expecting 3 download attempts, got %d", catalog.fileRequests)
	}
	if expected := filepath.Join(localDir, "LT05_L1TP_196030_19950627_20200907_02_T1.tar"); localFile != expected {
		t.Errorf("expecting %s, got %s", expected, localFile)
	}
	if data, err := os.ReadFile(localFile); err != nil || string(data) != "product bytes" {
		t.Errorf("unexpected downloaded content %q (%v)", data, err)
	}
	if _, err := os.Stat(localFile + ".download"); err == nil {
		t.Error("temporary file must not be left behind")
	}
}

func TestEarthExplorerRetriesTruncatedDownload(t *testing.T) {
	catalog := newFakeCatalog(0)
	defer catalog.srv.Close()
	catalog.truncate = 2

	api, err := usgs.NewCustomAPI(context.Background(), catalog.srv.URL, "user", "pass")
	if err != nil {
		t.Fatal(err)
	}
	ip := NewEarthExplorerImageProvider(api, time.Minute, false)
	ip.retryWait = time.Millisecond

	localDir := t.TempDir()
	localFile, err := ip.Download(context.Background(), testScene(), localDir)
	if err != nil {
		t.Fatal(err)
	}
	if catalog.fileRequests != 3 {
		t.Errorf("expecting 3 download attempts, got %d", catalog.fileRequests)
	}
	if data, err := os.ReadFile(localFile); err != nil || string(data) != "product bytes" {
		t.Errorf("unexpected downloaded content %q (%v)", data, err)
	}
}

func TestEarthExplorerPrefersNativeProduct(t *testing.T) {
	catalog := newFakeCatalog(0)
	defer catalog.srv.Close()
	catalog.options = []map[string]interface{}{
		{"id": "p1", "entityId": "LT51960301995178MPS00", "available": true, "productName": "Landsat Collection 2 Level-1 Product Bundle"},
		{"id": "5e83d0a0f94d7d8d", "entityId": "LT51960301995178MPS00", "available": true, "productName": "Landsat 4-5 TM C2 L1 Product Bundle"},
	}

	api, err := usgs.NewCustomAPI(context.Background(), catalog.srv.URL, "user", "pass")
	if err != nil {
		t.Fatal(err)
	}
	ip := NewEarthExplorerImageProvider(api, time.Minute, false)
	ip.retryWait = time.Millisecond

	if _, err := ip.Download(context.Background(), testScene(), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if catalog.requestedProduct != "5e83d0a0f94d7d8d" {
		t.Errorf("expecting the registry product to be requested, got %q", catalog.requestedProduct)
	}
}

func TestEarthExplorerRetryBudgetExhausted(t *testing.T) {
	catalog := newFakeCatalog(3)
	defer catalog.srv.Close()

	api, err := usgs.NewCustomAPI(context.Background(), catalog.srv.URL, "user", "pass")
	if err != nil {
		t.Fatal(err)
	}
	ip := NewEarthExplorerImageProvider(api, time.Minute, false)
	ip.retryWait = time.Millisecond

	localDir := t.TempDir()
	if _, err := ip.Download(context.Background(), testScene(), localDir); err == nil {
		t.Fatal("expecting an error after the retry budget")
	}
	if catalog.fileRequests != 3 {
		t.Errorf("expecting 3 download attempts, got %d", catalog.fileRequests)
	}
	checkNoLeftover(t, filepath.Join(localDir, "LT05_L1TP_196030_19950627_20200907_02_T1.tar"))
}

func TestEarthExplorerSkipExisting(t *testing.T) {
	catalog := newFakeCatalog(0)
	defer catalog.srv.Close()

	api, err := usgs.NewCustomAPI(context.Background(), catalog.srv.URL, "user", "pass")
	if err != nil {
		t.Fatal(err)
	}
	requestsAfterLogin := catalog.requests

	localDir := t.TempDir()
	localFile := filepath.Join(localDir, "LT05_L1TP_196030_19950627_20200907_02_T1.tar")
	if err := os.WriteFile(localFile, []byte("already here"), 0644); err != nil {
		t.Fatal(err)
	}

	ip := NewEarthExplorerImageProvider(api, time.Minute, true)
	got, err := ip.Download(context.Background(), testScene(), localDir)
	if err != nil {
		t.Fatal(err)
	}
	if got != localFile {
		t.Errorf("expecting %s, got %s", localFile, got)
	}
	if catalog.requests != requestsAfterLogin {
		t.Error("an already downloaded scene must not trigger any request")
	}
	if data, _ := os.ReadFile(localFile); string(data) != "already here" {
		t.Error("the existing file must not be overwritten")
	}
}
