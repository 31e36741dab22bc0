package entrakit

import (
	"crypto/x509"
	"errors"

	"github.com/breml/rootcerts/embedded"
)

// MozillaRootPool returns a certificate pool populated with the embedded
// Mozilla CA bundle, so chain checks work identically on hosts without a
// usable system trust store.
func MozillaRootPool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(embedded.MozillaCACertificatesPEM())) {
		return nil, errors.New("parsing embedded Mozilla root certificates")
	}
	return pool, nil
}

// VerifyChainTrust reports whether the certificate chains to a root in the
// given pool. Intermediates may be nil. Expired certificates fail closed.
func VerifyChainTrust(cert *x509.Certificate, roots, intermediates *x509.CertPool) bool {
	if cert == nil || roots == nil {
		return false
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
	}
	_, err := cert.Verify(opts)
	return err == nil
}
