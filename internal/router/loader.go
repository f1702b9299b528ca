package router

import (
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

//go:embed fragments/*.tmpl
var bundled embed.FS

// Loader returns the markup fragment of a view.
type Loader interface {
	Load(ctx context.Context, view View) (string, error)
}

// BundledLoader serves the fragments compiled into the binary.
type BundledLoader struct{}

func (BundledLoader) Load(ctx context.Context, view View) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := bundled.ReadFile("fragments/" + string(view) + ".tmpl")
	if err != nil {
		return "", fmt.Errorf("error loading view %s: %w", view, err)
	}
	return string(data), nil
}

// HTTPLoader fetches <BaseURL>/<view>.tmpl, so fragments can be edited
// without rebuilding.
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPLoader(baseURL string, timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (l *HTTPLoader) Load(ctx context.Context, view View) (string, error) {
	url := l.BaseURL + "/" + string(view) + ".tmpl"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading view %s: %w", view, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error loading view %s: HTTP %d", view, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error loading view %s: %w", view, err)
	}
	return string(body), nil
}
