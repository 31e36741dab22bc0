package entrakit

import (
	"crypto/x509"
	"fmt"
)

// joinKeyLength bounds the customKeyIdentifier bytes the directory accepts.
const joinKeyLength = 32

// ComputeJoinKey derives the identifier that links every raw credential
// record belonging to one logical certificate: the UTF-8 bytes of the
// certificate thumbprint, truncated to 32 bytes. Every call site that adds,
// removes, or inventories credentials must derive the key through this
// function — a divergent derivation breaks record deduplication silently.
func ComputeJoinKey(cert *x509.Certificate) ([]byte, error) {
	if cert == nil || len(cert.Raw) == 0 {
		return nil, fmt.Errorf("%w: cannot compute join key without certificate bytes", ErrParse)
	}
	return JoinKeyFromThumbprint(CertFingerprintSHA1(cert))
}

// JoinKeyFromThumbprint derives the join key from an already-known thumbprint
// string, e.g. the directory's preferred-signer pointer. A certificate that
// cannot produce a thumbprint cannot be tracked.
func JoinKeyFromThumbprint(thumbprint string) ([]byte, error) {
	if thumbprint == "" {
		return nil, fmt.Errorf("%w: empty thumbprint", ErrParse)
	}
	key := []byte(thumbprint)
	if len(key) > joinKeyLength {
		key = key[:joinKeyLength]
	}
	return key, nil
}
