package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

func HTTPPostWithAuth(ctx context.Context, url string, body io.Reader, authName, authPswd, authToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPPost: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	return doWithAuth(req, authName, authPswd, authToken)
}

func doWithAuth(req *http.Request, authName, authPswd, authToken string) (*http.Response, error) {
	if authName != "" {
		req.SetBasicAuth(authName, authPswd)
	}
	if authToken != "" {
		req.Header.Set("X-Auth-Token", authToken)
	}
	client := http.Client{}
	return client.Do(req)
}

// PageQueryParam describes one catalog page to fetch and the rows to keep from it
type PageQueryParam struct {
	Limit            int
	Page             int
	FirstRowToSelect int
	LastRowToSelect  int
}

// ComputePagesToQuery maps a client page/limit onto the catalog pagination
// (the catalog serves fixed-size pages of catalogLimit rows).
// Pages and rows are indexed from 0.
func ComputePagesToQuery(clientPage, clientLimit, catalogLimit int) []PageQueryParam {
	if clientLimit <= 0 || catalogLimit <= 0 {
		return nil
	}
	firstRow := clientPage * clientLimit
	lastRow := firstRow + clientLimit - 1

	var params []PageQueryParam
	for page := firstRow / catalogLimit; page <= lastRow/catalogLimit; page++ {
		param := PageQueryParam{Limit: catalogLimit, Page: page, FirstRowToSelect: 0, LastRowToSelect: catalogLimit - 1}
		if page == firstRow/catalogLimit {
			param.FirstRowToSelect = firstRow - page*catalogLimit
		}
		if page == lastRow/catalogLimit {
			param.LastRowToSelect = lastRow - page*catalogLimit
		}
		params = append(params, param)
	}
	return params
}
