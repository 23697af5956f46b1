package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// getJSON performs a GET against ep and decodes the response into v.
func (api *API) getJSON(ctx context.Context, ep *url.URL, v interface{}) error {
	body, err := api.request(ctx, ep)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("confluence: couldn't parse json response: %w", err)
	}

	return nil
}

// request performs a GET, retrying transient failures according to RetryDelays.  Auth and other
// remote errors come back as *AuthError and *RemoteError.
func (api *API) request(ctx context.Context, u *url.URL) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := api.attempt(ctx, u)
		if err == nil {
			return body, nil
		}

		if !isTransient(ctx, err) {
			return nil, err
		}
		if attempt >= len(api.RetryDelays) {
			return nil, fmt.Errorf("confluence: giving up after %d attempts: %w", attempt+1, err)
		}

		delay := api.RetryDelays[attempt]
		api.logger().Warn("transient failure, retrying",
			"path", u.Path,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("confluence: abandoned retry: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// attempt implements the basic Request function: a single try, bounded by RequestTimeout.
func (api *API) attempt(ctx context.Context, u *url.URL) ([]byte, error) {
	if api.limiter != nil {
		if err := api.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("confluence: rate limiter: %w", err)
		}
	}

	if api.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, api.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't instantiate http request: %w", err)
	}

	req.Header.Add("Accept", "application/json, */*")

	// if user & token are not set, do not add authorization header
	if api.username != "" && api.token != "" {
		req.SetBasicAuth(api.username, api.token)
	} else if api.token != "" {
		req.Header.Set("Authorization", "Bearer "+api.token)
	}

	client := api.Client
	if client == nil {
		client = http.DefaultClient
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't perform http request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't read http response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return body, nil
	}

	return nil, errorFromResponse(response.StatusCode, response.Status, body)
}

func (api *API) logger() *slog.Logger {
	if api.Logger == nil {
		return slog.Default()
	}
	return api.Logger
}
