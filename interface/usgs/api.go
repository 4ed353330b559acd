// Package usgs implements a client for the USGS M2M JSON API
// (https://m2m.cr.usgs.gov/api/docs/json/): authentication, scene search,
// scene metadata and download-url resolution.
package usgs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/airbusgeo/usgsxplore/service"
	"github.com/airbusgeo/usgsxplore/service/log"
)

// APIURL is the stable M2M endpoint
const APIURL = "https://m2m.cr.usgs.gov/api/api/json/stable/"

// rateLimitWait is the pause before the single retry of a rate-limited request
var rateLimitWait = 3 * time.Second

// API is a client of the USGS M2M API. It holds a single session: the
// authentication token is only mutated by Login, Logout and the one-shot
// re-authentication of request(). It is not safe for concurrent use.
type API struct {
	URL string

	// credentials are kept to transparently re-authenticate an expired session
	username string
	password string

	token    string
	loggedIn bool
}

// NewAPI creates a client and logs in against the M2M login endpoint
func NewAPI(ctx context.Context, username, password string) (*API, error) {
	return NewCustomAPI(ctx, APIURL, username, password)
}

// NewCustomAPI creates a client against a non-standard endpoint (a mirror, a
// proxy or a test server)
func NewCustomAPI(ctx context.Context, url, username, password string) (*API, error) {
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	api := &API{
		URL:      url,
		username: username,
		password: password,
	}
	if err := api.Login(ctx); err != nil {
		return nil, fmt.Errorf("NewAPI.%w", err)
	}
	return api, nil
}

// Login submits the credentials and stores the session token
func (api *API) Login(ctx context.Context) error {
	data, err := api.do(ctx, "login", map[string]string{
		"username": api.username,
		"password": api.password,
	})
	if err != nil {
		return fmt.Errorf("Login.%w", err)
	}
	var token string
	if err := json.Unmarshal(data, &token); err != nil || token == "" {
		return fmt.Errorf("Login: no token in response [%s]", data)
	}
	api.token = token
	api.loggedIn = true
	return nil
}

// Logout invalidates the session. The server-side call is best-effort: the
// local session is ended even if the endpoint cannot be reached.
func (api *API) Logout(ctx context.Context) error {
	_, err := api.do(ctx, "logout", nil)
	api.token = ""
	api.loggedIn = false
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("logout: %v (session ended locally)", err)
	}
	return nil
}

// LoggedIn returns whether the client holds a live session token
func (api *API) LoggedIn() bool {
	return api.loggedIn
}

// request performs an authenticated M2M request with the session lifecycle
// handling: a rate-limited call is retried once after a pause, an
// invalid-session error triggers exactly one re-login before the retry.
func (api *API) request(ctx context.Context, endpoint string, params interface{}) (json.RawMessage, error) {
	data, err := api.do(ctx, endpoint, params)

	if errors.Is(err, ErrRateLimited) {
		log.Logger(ctx).Sugar().Debugf("%s: rate limited, retrying in %s", endpoint, rateLimitWait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rateLimitWait):
		}
		data, err = api.do(ctx, endpoint, params)
	}

	if errors.Is(err, ErrInvalidSession) && api.loggedIn {
		log.Logger(ctx).Sugar().Debugf("%s: session expired, re-authenticating", endpoint)
		api.loggedIn = false
		if lerr := api.Login(ctx); lerr != nil {
			return nil, fmt.Errorf("request[%s]: %w", endpoint, service.MergeErrors(true, ErrSessionExpired, lerr))
		}
		data, err = api.do(ctx, endpoint, params)
	}

	if err != nil {
		return nil, fmt.Errorf("request[%s]: %w", endpoint, err)
	}
	return data, nil
}

// do posts one JSON envelope and parses the response envelope into either the
// data payload or an APIError. Transport failures are temporary, protocol
// failures are not.
func (api *API) do(ctx context.Context, endpoint string, params interface{}) (json.RawMessage, error) {
	var body io.Reader
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("do.Marshal: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	resp, err := service.HTTPPostWithAuth(ctx, api.URL+strings.TrimPrefix(endpoint, "/"), body, "", "", api.token)
	if err != nil {
		return nil, service.MakeTemporary(fmt.Errorf("do.Post: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, service.MakeTemporary(fmt.Errorf("do.ReadAll: %w", err))
	}

	envelope := struct {
		Data         json.RawMessage `json:"data"`
		ErrorCode    string          `json:"errorCode"`
		ErrorMessage string          `json:"errorMessage"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("do: %s [%s]", resp.Status, raw)
		}
		return nil, fmt.Errorf("do.Unmarshal [%s]: %w", raw, err)
	}
	if envelope.ErrorCode != "" {
		return nil, APIError{Code: envelope.ErrorCode, Message: envelope.ErrorMessage}
	}
	// a non-200 body without an errorCode did not come from the catalog
	if resp.StatusCode != 200 {
		err := fmt.Errorf("do: %s [%s]", resp.Status, raw)
		switch resp.StatusCode {
		case 408, 429, 500, 502, 503, 504:
			return nil, service.MakeTemporary(err)
		}
		return nil, err
	}
	return envelope.Data, nil
}
