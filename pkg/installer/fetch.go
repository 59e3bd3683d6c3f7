package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// ArtifactFetcher downloads a release artifact and returns its raw bytes as a
// stream. Failures must propagate as distinguishable errors, never be
// swallowed.
type ArtifactFetcher interface {
	// Fetch returns the body of the artifact at the given URL.
	// NOTE: The caller must close the returned io.ReadCloser!
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher fetches artifacts over HTTP and implements ArtifactFetcher.
type HTTPFetcher struct{ client *http.Client }

func NewHTTPFetcher() *HTTPFetcher { return &HTTPFetcher{client: http.DefaultClient} }

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating a new request: %w", err)
	}

	resp, err := f.client.Do(r)
	if err != nil {
		return nil, fmt.Errorf("error performing the request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		//nolint:errcheck
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		zerolog.Ctx(ctx).
			Error().
			Str("url", url).
			Int("status_code", resp.StatusCode).
			Msg(ErrUnexpectedHTTPStatusCode.Error())

		return nil, fmt.Errorf("%w: %d for %q", ErrUnexpectedHTTPStatusCode, resp.StatusCode, url)
	}

	return resp.Body, nil
}
