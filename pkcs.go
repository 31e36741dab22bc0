package entrakit

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// validatePKCS12KeyType checks that the private key is a supported type for PKCS#12 encoding.
func validatePKCS12KeyType(privateKey crypto.PrivateKey) error {
	switch privateKey.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
		return nil
	default:
		return fmt.Errorf("unsupported private key type %T", privateKey)
	}
}

// EncodePKCS12 creates a PKCS#12/PFX bundle from a private key, leaf cert,
// CA chain, and password. Sign-usage credential records store their key
// material in this form. Returns the DER-encoded PKCS#12 data.
func EncodePKCS12(privateKey crypto.PrivateKey, leaf *x509.Certificate, caCerts []*x509.Certificate, password string) ([]byte, error) {
	if err := validatePKCS12KeyType(privateKey); err != nil {
		return nil, err
	}
	if leaf == nil {
		return nil, fmt.Errorf("leaf certificate cannot be nil")
	}
	return gopkcs12.Modern.Encode(privateKey, leaf, caCerts, password)
}

// DecodePKCS12 decodes a PKCS#12/PFX bundle and returns the private key, leaf
// certificate, and CA certificates.
func DecodePKCS12(pfxData []byte, password string) (crypto.PrivateKey, *x509.Certificate, []*x509.Certificate, error) {
	privateKey, leaf, caCerts, err := gopkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: decoding PKCS#12: %v", ErrParse, err)
	}
	return privateKey, leaf, caCerts, nil
}

// DecodePKCS7 decodes a DER-encoded PKCS#7 bundle and returns the certificates
// it contains. Returns an error if decoding fails or the bundle contains no
// certificates.
func DecodePKCS7(derData []byte) ([]*x509.Certificate, error) {
	p7, err := pkcs7.Parse(derData)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing PKCS#7: %v", ErrParse, err)
	}
	if len(p7.Certificates) == 0 {
		return nil, fmt.Errorf("%w: PKCS#7 bundle contains no certificates", ErrParse)
	}
	return p7.Certificates, nil
}
