package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"path"
	"strings"
	"time"
)

// Extension of a downloaded product
type Extension string

// Extensions served by the catalogs
const (
	NoExtension  Extension = ""
	ExtensionTar Extension = "tar"
	ExtensionZIP Extension = "zip"
	ExtensionJP2 Extension = "jp2"
)

// GetExt guesses the extension from the last segment of an url or a filename
func GetExt(url string) Extension {
	if u, err := neturl.Parse(url); err == nil {
		url = u.Path
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(url), ".")) {
	case "tar":
		return ExtensionTar
	case "zip":
		return ExtensionZIP
	case "jp2":
		return ExtensionJP2
	}
	return NoExtension
}

// GetBodyRetry: simple GET with N retries in case of temporary errors
func GetBodyRetry(url string, nbRetries int) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	return GetBodyRetryReq(req, nbRetries)
}

// GetBodyRetryReq: simple GET with N retries in case of temporary errors
func GetBodyRetryReq(req *http.Request, nbRetries int) ([]byte, error) {
	var e *neturl.Error
	var body []byte
	var err error
	var resp *http.Response

	client := &http.Client{}
	for i := 0; i < nbRetries+1; i++ {
		time.Sleep(((1 << i) - 1) * time.Second) // Exponential backoff, starting at 0
		resp, err = client.Do(req)
		if err != nil {
			if !errors.As(err, &e) || !e.Temporary() {
				return nil, err
			}
			continue
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			body, _ = io.ReadAll(resp.Body)
			err = fmt.Errorf("%s: %v", resp.Status, body)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, err
			}
			continue
		}
		if body, err = io.ReadAll(resp.Body); err == nil {
			return body, nil
		}
	}
	return nil, err
}
