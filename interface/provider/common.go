package provider

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cavaliercoder/grab"
	"github.com/mholt/archiver"

	"github.com/airbusgeo/usgsxplore/service"
	"github.com/airbusgeo/usgsxplore/service/log"
)

const maxRedirects = 10

// ErrProductNotFound is an error returned when a product is not found or available
type ErrProductNotFound struct {
	Product string
}

func (e ErrProductNotFound) Error() string {
	return fmt.Sprintf("Product not found or unavailable: %s", e.Product)
}

// ErrTooManyRedirects is returned when the download url redirects more than maxRedirects times
type ErrTooManyRedirects struct {
	URL string
}

func (e ErrTooManyRedirects) Error() string {
	return fmt.Sprintf("stopped after %d redirects: %s", maxRedirects, e.URL)
}

// ErrIncomplete is returned when the size written differs from the announced content length
type ErrIncomplete struct {
	File     string
	Written  int64
	Expected int64
}

func (e ErrIncomplete) Error() string {
	return fmt.Sprintf("incomplete download of %s: %d bytes written, %d expected", e.File, e.Written, e.Expected)
}

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}

func displayProgress(ctx context.Context, prefix string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", prefix, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				progress += progressPeriod
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}

// downloadToFile streams url to localFile, writing to a temporary
// "<localFile>.download" first and renaming on completion so that a failure
// never leaves a partial file under the final name. The redirect chain is
// capped at maxRedirects and the written size is checked against the
// announced content length.
func downloadToFile(ctx context.Context, url, localFile, displayPrefix string) error {
	tmpFile := localFile + ".download"
	req, err := grab.NewRequest(tmpFile, url)
	if err != nil {
		return fmt.Errorf("downloadToFile.NewRequest: %w", err)
	}
	req = req.WithContext(ctx)

	client := grab.NewClient()
	client.HTTPClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return ErrTooManyRedirects{URL: url}
		}
		return nil
	}
	resp := client.Do(req)

	displayProgress(ctx, displayPrefix, resp, 0.05)

	if err := resp.Err(); err != nil {
		os.Remove(tmpFile)
		// a 200 response cut short of its announced content length is a
		// truncated transfer, not a server refusal
		if resp.HTTPResponse != nil && resp.HTTPResponse.StatusCode == 200 && resp.Size > 0 && resp.BytesComplete() != resp.Size {
			return service.MakeTemporary(ErrIncomplete{File: localFile, Written: resp.BytesComplete(), Expected: resp.Size})
		}
		err = fmt.Errorf("downloadToFile[%s]: %w", req.URL(), err)
		if resp.HTTPResponse == nil {
			return service.MakeTemporary(err)
		}
		switch resp.HTTPResponse.StatusCode {
		case 408, 429, 500, 501, 502, 503, 504:
			return service.MakeTemporary(err)
		default:
			return err
		}
	}

	if resp.Size > 0 && resp.BytesComplete() != resp.Size {
		os.Remove(tmpFile)
		return service.MakeTemporary(ErrIncomplete{File: localFile, Written: resp.BytesComplete(), Expected: resp.Size})
	}

	if err := os.Rename(tmpFile, localFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("downloadToFile.Rename: %w", err)
	}
	return nil
}

// unarchive extracts the product bundle next to it. All errors are temporary.
func unarchive(localArchive, localDir string) error {
	tmpdir, err := os.MkdirTemp(localDir, filepath.Base(localArchive))
	if err != nil {
		return service.MakeTemporary(err)
	}
	defer os.RemoveAll(tmpdir)
	if err := archiver.Unarchive(localArchive, tmpdir); err != nil {
		return service.MakeTemporary(err)
	}
	files, err := os.ReadDir(tmpdir)
	if err != nil {
		return service.MakeTemporary(err)
	}
	if len(files) == 0 {
		return service.MakeTemporary(fmt.Errorf("empty archive"))
	}
	for _, f := range files {
		os.Rename(filepath.Join(tmpdir, f.Name()), filepath.Join(localDir, f.Name()))
	}
	return nil
}

// sceneFilePath returns the path of the scene, given the directory, the scene id and the extension
func sceneFilePath(dir, sceneID string, ext string) string {
	if ext == "" {
		return path.Join(dir, sceneID)
	}
	return path.Join(dir, sceneID+"."+ext)
}
