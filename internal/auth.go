package internal

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/sensiblebit/entrakit"
	"github.com/sensiblebit/entrakit/internal/graph"
)

// NewCredential builds a token credential for the profile's home tenant.
func NewCredential(p *Profile) (azcore.TokenCredential, error) {
	return NewCredentialForTenant(p, p.TenantID)
}

// NewCredentialForTenant builds a token credential authenticating the
// profile's client against an arbitrary tenant. Multi-tenant discovery
// acquires one credential per tenant this way, since tokens are tenant
// scoped. All tenants are additionally allowed so the same registration can
// be used wherever it has been consented.
func NewCredentialForTenant(p *Profile, tenantID string) (azcore.TokenCredential, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cloudCfg := graph.CloudConfiguration(p.Cloud).Cloud

	if p.ClientSecret != "" {
		opts := &azidentity.ClientSecretCredentialOptions{
			AdditionallyAllowedTenants: []string{"*"},
		}
		opts.Cloud = cloudCfg
		cred, err := azidentity.NewClientSecretCredential(tenantID, p.ClientID, p.ClientSecret, opts)
		if err != nil {
			return nil, fmt.Errorf("building client secret credential for tenant %s: %w", tenantID, err)
		}
		return cred, nil
	}

	data, err := os.ReadFile(p.ClientCertificate)
	if err != nil {
		return nil, fmt.Errorf("reading client certificate %s: %w", p.ClientCertificate, err)
	}
	cert, err := entrakit.ParseCertificateWithKey(string(data), p.ClientCertificatePassword)
	if err != nil {
		return nil, fmt.Errorf("parsing client certificate %s: %w", p.ClientCertificate, err)
	}

	opts := &azidentity.ClientCertificateCredentialOptions{
		AdditionallyAllowedTenants: []string{"*"},
		SendCertificateChain:       true,
	}
	opts.Cloud = cloudCfg
	certs := append([]*x509.Certificate{cert.Leaf}, cert.CAs...)
	cred, err := azidentity.NewClientCertificateCredential(tenantID, p.ClientID, certs, cert.PrivateKey, opts)
	if err != nil {
		return nil, fmt.Errorf("building client certificate credential for tenant %s: %w", tenantID, err)
	}
	return cred, nil
}
