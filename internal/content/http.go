package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shadow/pkg/platform/circuit"
	"shadow/pkg/platform/sentinel"
)

// MaxObjectBytes caps both uploads and gateway reads.
const MaxObjectBytes = 10 << 20

// breakerThreshold consecutive outages open a backend's breaker.
const breakerThreshold = 5

// newBreaker trips on outages only; a gateway 404 is an answer.
func newBreaker(name string) *circuit.Breaker {
	return circuit.New(name,
		circuit.WithFailureThreshold(breakerThreshold),
		circuit.WithTrip(func(err error) bool { return errors.Is(err, sentinel.ErrUnavailable) }),
	)
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", sentinel.ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("%w: gateway status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read gateway body: %v", sentinel.ErrUnavailable, err)
	}
	if len(data) > MaxObjectBytes {
		return nil, fmt.Errorf("gateway object exceeds %d bytes", MaxObjectBytes)
	}
	return data, nil
}

func withSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
