package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	oEmbedTimeout      = 10 * time.Second
	oEmbedMaxRedirects = 3
	oEmbedMaxBody      = 256 << 10
	oEmbedUserAgent    = "cantio/1.0 (+oembed)"
)

// ErrTooManyRedirects is returned when an oEmbed endpoint keeps redirecting.
var ErrTooManyRedirects = errors.New("too many redirects")

// StatusError is a non-200 answer from an oEmbed endpoint. 401 and 404 usually mean the
// media is private or gone.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("oEmbed endpoint %s returned status %d", e.Endpoint, e.StatusCode)
}

// oEmbedResponse holds the fields both providers publish.
type oEmbedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

type oEmbedEndpoint struct {
	client  *http.Client
	baseURL string
}

func newOEmbedEndpoint(baseURL string) *oEmbedEndpoint {
	return &oEmbedEndpoint{
		client: &http.Client{
			Timeout: oEmbedTimeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= oEmbedMaxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		baseURL: baseURL,
	}
}

// lookup asks the endpoint about targetURL.
func (e *oEmbedEndpoint) lookup(ctx context.Context, targetURL string) (*oEmbedResponse, error) {
	query := url.Values{}
	query.Set("url", targetURL)
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", oEmbedUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Endpoint: e.baseURL, StatusCode: resp.StatusCode}
	}

	var out oEmbedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, oEmbedMaxBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode oEmbed response: %w", err)
	}
	out.Title = strings.TrimSpace(out.Title)
	out.AuthorName = strings.TrimSpace(out.AuthorName)

	if out.Title == "" {
		return nil, errors.New("oEmbed response has no title")
	}
	return &out, nil
}
