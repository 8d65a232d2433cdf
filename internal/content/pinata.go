package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/circuit"
)

// Pinata pins uploads through the Pinata API and reads them back through an
// IPFS gateway. Repeated outages open a breaker shared by both directions.
type Pinata struct {
	apiURL  string
	jwt     string
	gateway string
	http    *http.Client
	breaker *circuit.Breaker
}

func NewPinata(apiURL, jwt, gateway string, client *http.Client) *Pinata {
	return &Pinata{
		apiURL:  strings.TrimRight(apiURL, "/"),
		jwt:     jwt,
		gateway: withSlash(gateway),
		http:    client,
		breaker: newBreaker("pinata"),
	}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// Put pins data and returns its CID.
func (p *Pinata) Put(ctx context.Context, data []byte, name string) (string, error) {
	if p.jwt == "" {
		return "", dErrors.New(dErrors.CodeUnavailable, "ipfs uploads are not configured")
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("build pinata form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build pinata form: %w", err)
	}
	meta, _ := json.Marshal(map[string]string{"name": name})
	if err := form.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", fmt.Errorf("build pinata form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build pinata form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", fmt.Errorf("build pinata request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	var out pinResponse
	err = p.breaker.Do(ctx, func() error { return doJSON(p.http, req, &out) })
	if err != nil {
		return "", fmt.Errorf("pinata upload: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pinata upload: empty hash in response")
	}
	return out.IpfsHash, nil
}

func (p *Pinata) Get(ctx context.Context, cid string) ([]byte, error) {
	var data []byte
	err := p.breaker.Do(ctx, func() (err error) {
		data, err = fetch(ctx, p.http, p.gateway+cid)
		return err
	})
	return data, err
}
