// Package content stores and retrieves site and profile payloads on the
// supported content backends. A stored payload is addressed by a Ref such as
// ipfs://<cid>, arweave://<tx> or s3://<blake2b hex>.
package content

import (
	"encoding/hex"
	"strings"

	"shadow/internal/validate"
	dErrors "shadow/pkg/domain-errors"
)

type Scheme string

const (
	SchemeIPFS    Scheme = "ipfs"
	SchemeArweave Scheme = "arweave"
	SchemeS3      Scheme = "s3"
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(s)) {
	case SchemeIPFS:
		return SchemeIPFS, nil
	case SchemeArweave:
		return SchemeArweave, nil
	case SchemeS3:
		return SchemeS3, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown storage backend "+s)
}

type Ref struct {
	Scheme Scheme
	ID     string
}

func (r Ref) String() string {
	return string(r.Scheme) + "://" + r.ID
}

// ParseRef reads a storage reference. A bare identifier is taken as an IPFS CID.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	scheme, id, found := strings.Cut(raw, "://")
	if !found {
		scheme, id = string(SchemeIPFS), raw
	}
	s, err := ParseScheme(scheme)
	if err != nil {
		return Ref{}, err
	}

	switch s {
	case SchemeIPFS:
		err = validate.IPFSCID(id)
	case SchemeArweave:
		err = validate.ArweaveTx(id)
	case SchemeS3:
		err = validateObjectKey(id)
	}
	if err != nil {
		return Ref{}, err
	}
	return Ref{Scheme: s, ID: id}, nil
}

func validateObjectKey(key string) error {
	if b, err := hex.DecodeString(key); err != nil || len(b) != keyBytes {
		return dErrors.New(dErrors.CodeValidation, "invalid s3 object key")
	}
	return nil
}
