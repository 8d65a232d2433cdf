package content

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/circuit"
)

// Bundlr posts uploads to a Bundlr node, which settles them on Arweave, and
// reads them back through an Arweave gateway.
type Bundlr struct {
	nodeURL string
	gateway string
	http    *http.Client
	breaker *circuit.Breaker
}

func NewBundlr(nodeURL, gateway string, client *http.Client) *Bundlr {
	return &Bundlr{
		nodeURL: strings.TrimRight(nodeURL, "/"),
		gateway: withSlash(gateway),
		http:    client,
		breaker: newBreaker("bundlr"),
	}
}

type bundlrResponse struct {
	ID string `json:"id"`
}

// Put uploads data and returns the Arweave transaction id.
func (b *Bundlr) Put(ctx context.Context, data []byte, name string) (string, error) {
	if b.nodeURL == "" {
		return "", dErrors.New(dErrors.CodeUnavailable, "arweave uploads are not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.nodeURL+"/tx", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build bundlr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-File-Name", name)

	var out bundlrResponse
	err = b.breaker.Do(ctx, func() error { return doJSON(b.http, req, &out) })
	if err != nil {
		return "", fmt.Errorf("bundlr upload: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("bundlr upload: empty id in response")
	}
	return out.ID, nil
}

func (b *Bundlr) Get(ctx context.Context, tx string) ([]byte, error) {
	var data []byte
	err := b.breaker.Do(ctx, func() (err error) {
		data, err = fetch(ctx, b.http, b.gateway+tx)
		return err
	})
	return data, err
}
