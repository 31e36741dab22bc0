package directory

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sensiblebit/entrakit"
	"github.com/sensiblebit/entrakit/internal/graph"
)

// testCert creates a self-signed certificate with its key.
func testCert(t *testing.T, cn string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	return cert, key
}

// derBlob encodes a certificate the way public material arrives: base64 DER.
func derBlob(cert *x509.Certificate) string {
	return base64.StdEncoding.EncodeToString(cert.Raw)
}

// p12Blob encodes a certificate and key as base64 PKCS#12.
func p12Blob(t *testing.T, cert *x509.Certificate, key *ecdsa.PrivateKey, password string) string {
	t.Helper()
	pfx, err := entrakit.EncodePKCS12(key, cert, nil, password)
	if err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(pfx)
}

// joinKey derives the record join key for a certificate.
func joinKey(t *testing.T, cert *x509.Certificate) []byte {
	t.Helper()
	jk, err := entrakit.ComputeJoinKey(cert)
	if err != nil {
		t.Fatal(err)
	}
	return jk
}

// verifyRecord builds a Verify-usage key credential as the engine writes it.
func verifyRecord(t *testing.T, alias string, cert *x509.Certificate) graph.KeyCredential {
	t.Helper()
	notBefore, notAfter := cert.NotBefore, cert.NotAfter
	return graph.KeyCredential{
		CustomKeyIdentifier: joinKey(t, cert),
		DisplayName:         alias,
		Type:                graph.KeyTypeAsymmetricX509Cert,
		Usage:               graph.KeyUsageVerify,
		KeyID:               uuid.NewString(),
		Key:                 cert.Raw,
		StartDateTime:       &notBefore,
		EndDateTime:         &notAfter,
	}
}

// signRecord builds a Sign-usage key credential holding a PKCS#12 blob.
func signRecord(t *testing.T, alias string, cert *x509.Certificate, key *ecdsa.PrivateKey, password, keyID string) graph.KeyCredential {
	t.Helper()
	pfx, err := entrakit.EncodePKCS12(key, cert, nil, password)
	if err != nil {
		t.Fatal(err)
	}
	notBefore, notAfter := cert.NotBefore, cert.NotAfter
	return graph.KeyCredential{
		CustomKeyIdentifier: joinKey(t, cert),
		DisplayName:         alias,
		Type:                graph.KeyTypeX509CertAndPassword,
		Usage:               graph.KeyUsageSign,
		KeyID:               keyID,
		Key:                 pfx,
		StartDateTime:       &notBefore,
		EndDateTime:         &notAfter,
	}
}

// passwordRecord builds the password credential paired with a Sign record.
func passwordRecord(t *testing.T, cert *x509.Certificate, keyID, secret string) graph.PasswordCredential {
	t.Helper()
	notBefore, notAfter := cert.NotBefore, cert.NotAfter
	return graph.PasswordCredential{
		CustomKeyIdentifier: joinKey(t, cert),
		KeyID:               keyID,
		SecretText:          secret,
		StartDateTime:       &notBefore,
		EndDateTime:         &notAfter,
	}
}

// seedObject seeds a store with a credential-bearing object.
func seedObject(store *graph.MemStore, kind graph.ObjectKind, objectID, appID string, keys []graph.KeyCredential, passwords []graph.PasswordCredential, preferred string) {
	store.Seed(kind, &graph.Object{
		ID:                         objectID,
		AppID:                      appID,
		KeyCredentials:             keys,
		PasswordCredentials:        passwords,
		PreferredSigningThumbprint: preferred,
	})
}

// seedTriple seeds a service principal with the full three-record shape of
// one signing certificate and returns the shared sign key ID.
func seedTriple(t *testing.T, store *graph.MemStore, objectID, appID, alias string, cert *x509.Certificate, key *ecdsa.PrivateKey, password string) string {
	t.Helper()
	signKeyID := uuid.NewString()
	obj := store.Object(objectID, graph.KindServicePrincipal)
	var keys []graph.KeyCredential
	var passwords []graph.PasswordCredential
	preferred := ""
	if obj != nil {
		keys, passwords, preferred = obj.KeyCredentials, obj.PasswordCredentials, obj.PreferredSigningThumbprint
	}
	keys = append(keys,
		verifyRecord(t, alias, cert),
		signRecord(t, alias, cert, key, password, signKeyID))
	passwords = append(passwords, passwordRecord(t, cert, signKeyID, password))
	seedObject(store, graph.KindServicePrincipal, objectID, appID, keys, passwords, preferred)
	return signKeyID
}
