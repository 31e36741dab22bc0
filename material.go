package entrakit

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"
)

// Certificate is the canonical in-memory form of caller-supplied certificate
// material: the leaf certificate, the private key when the source carried
// one, and any accompanying chain certificates.
type Certificate struct {
	Leaf       *x509.Certificate
	PrivateKey crypto.PrivateKey
	CAs        []*x509.Certificate
}

// Thumbprint returns the directory-format thumbprint of the leaf certificate
// (uppercase hex SHA-1 of the DER bytes).
func (c *Certificate) Thumbprint() string {
	return CertFingerprintSHA1(c.Leaf)
}

// HasPrivateKey reports whether the parsed material carried a private key.
func (c *Certificate) HasPrivateKey() bool {
	return c.PrivateKey != nil
}

// decodeBlob converts a caller-supplied blob into raw bytes. Base64 is tried
// first (whitespace stripped); anything that doesn't decode is treated as
// literal text, typically a PEM bundle.
func decodeBlob(blob string) []byte {
	compact := strings.Join(strings.Fields(blob), "")
	if data, err := base64.StdEncoding.DecodeString(compact); err == nil {
		return data
	}
	return []byte(blob)
}

// ParseCertificateWithKey parses caller-supplied certificate material that
// must include a private key. The blob is tried as base64 PKCS#12 first,
// then as a PEM bundle containing exactly two blocks (one certificate, one
// private key, decrypted with password when encrypted), then as a JKS
// keystore. Anything else fails with ErrParse.
func ParseCertificateWithKey(blob, password string) (*Certificate, error) {
	data := decodeBlob(blob)

	if !IsPEM(data) {
		if key, leaf, cas, err := DecodePKCS12(data, password); err == nil {
			return &Certificate{Leaf: leaf, PrivateKey: key, CAs: cas}, nil
		}
		if IsJKS(data) {
			return certificateFromJKS(data, password)
		}
		return nil, fmt.Errorf("%w: data is not PKCS#12, JKS, or PEM", ErrParse)
	}

	return parsePEMPair(data, password)
}

// ParseCertificatePublicOnly parses a bare certificate export with no private
// key: base64 DER, PEM, PKCS#7, or a keyless PKCS#12 export protected by an
// empty password. Any private key found in the material is discarded.
func ParseCertificatePublicOnly(blob string) (*Certificate, error) {
	data := decodeBlob(blob)

	if certs, err := ParseCertificatesAny(data); err == nil {
		return &Certificate{Leaf: certs[0], CAs: certs[1:]}, nil
	}
	if _, leaf, cas, err := DecodePKCS12(data, ""); err == nil {
		return &Certificate{Leaf: leaf, CAs: cas}, nil
	}
	return nil, fmt.Errorf("%w: data is not a DER, PEM, PKCS#7, or PKCS#12 certificate export", ErrParse)
}

// parsePEMPair reconstructs a certificate+key object from a PEM bundle that
// holds exactly two blocks: one CERTIFICATE and one private-key variant.
// Zero, one, or three-plus blocks is a hard failure — a bundle that doesn't
// pair one certificate with one key is ambiguous and must be rejected rather
// than guessed at.
func parsePEMPair(data []byte, password string) (*Certificate, error) {
	var blocks []*pem.Block
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		blocks = append(blocks, block)
	}
	if len(blocks) != 2 {
		return nil, fmt.Errorf("%w: expected exactly 2 PEM blocks (certificate and private key), found %d", ErrParse, len(blocks))
	}

	var certBlock, keyBlock *pem.Block
	for _, block := range blocks {
		switch {
		case block.Type == "CERTIFICATE":
			certBlock = block
		case strings.Contains(block.Type, "PRIVATE KEY"):
			keyBlock = block
		}
	}
	if certBlock == nil || keyBlock == nil {
		return nil, fmt.Errorf("%w: PEM bundle must contain one certificate and one private key", ErrParse)
	}

	leaf, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing certificate: %v", ErrParse, err)
	}

	key, err := ParsePrivateKeyPEM(pem.EncodeToMemory(keyBlock), password)
	if err != nil {
		return nil, err
	}

	match, err := KeyMatchesCert(key, leaf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if !match {
		return nil, fmt.Errorf("%w: private key does not match certificate", ErrParse)
	}

	return &Certificate{Leaf: leaf, PrivateKey: key}, nil
}

// ParsePrivateKeyPEM parses a PEM-encoded private key (PKCS#1, PKCS#8, EC,
// or OpenSSH), decrypting with password when the block indicates encryption.
// Encrypted PKCS#8 is handled via RFC 5958/8018; legacy RFC 1423 blocks are
// decrypted with the deprecated stdlib support since they still appear in
// exported material.
func ParsePrivateKeyPEM(pemData []byte, password string) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found in private key data", ErrParse)
	}

	if block.Type == "OPENSSH PRIVATE KEY" {
		key, err := ssh.ParseRawPrivateKey(pemData)
		if err != nil && password != "" {
			key, err = ssh.ParseRawPrivateKeyWithPassphrase(pemData, []byte(password))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parsing OpenSSH private key: %v", ErrParse, err)
		}
		return normalizeKey(key), nil
	}

	if block.Type == "ENCRYPTED PRIVATE KEY" {
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("%w: decrypting PKCS#8 private key: %v", ErrParse, err)
		}
		return key, nil
	}

	der := block.Bytes
	//nolint:staticcheck // legacy RFC 1423 encrypted PEM still appears in the wild
	if x509.IsEncryptedPEMBlock(block) {
		//nolint:staticcheck
		decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("%w: decrypting private key: %v", ErrParse, err)
		}
		der = decrypted
	}

	key, err := parsePrivateKeyDER(block.Type, der)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// parsePrivateKeyDER parses DER key bytes according to the PEM block type,
// falling back through the other parsers for mislabeled blocks (e.g. PKCS#1
// keys labeled "PRIVATE KEY" by pkcs12.ToPEM-style tools).
func parsePrivateKeyDER(blockType string, der []byte) (crypto.PrivateKey, error) {
	switch blockType {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing PKCS#1 private key: %v", ErrParse, err)
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing EC private key: %v", ErrParse, err)
		}
		return key, nil
	default:
		if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
			return key, nil
		}
		if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
			return key, nil
		}
		if key, err := x509.ParseECPrivateKey(der); err == nil {
			return key, nil
		}
		return nil, fmt.Errorf("%w: parsing %s block with any known key format", ErrParse, blockType)
	}
}

// certificateFromJKS extracts a certificate+key pair from a Java keystore
// blob. The first private key entry is paired with the certificate whose
// public key it matches; remaining certificates become the chain.
func certificateFromJKS(data []byte, password string) (*Certificate, error) {
	certs, keys, err := DecodeJKS(data, password)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: JKS contains no private key entries", ErrParse)
	}

	key := keys[0]
	result := &Certificate{PrivateKey: key}
	for _, cert := range certs {
		if result.Leaf == nil {
			if match, err := KeyMatchesCert(key, cert); err == nil && match {
				result.Leaf = cert
				continue
			}
		}
		result.CAs = append(result.CAs, cert)
	}
	if result.Leaf == nil {
		return nil, fmt.Errorf("%w: JKS private key has no matching certificate", ErrParse)
	}
	return result, nil
}
