package metadata

import (
	"context"
	"io"
	"net/http"
)

const userAgent = "OpenShelf/1.0 (https://github.com/openshelf/openshelf)"

// doGet performs one GET request and drains the body. The status code is
// returned alongside so callers can decide whether a non-2xx response is
// "no data" or a failure.
func doGet(ctx context.Context, client *http.Client, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
