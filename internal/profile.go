package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile holds the connection settings for one tenant: which directory to
// talk to and how to authenticate against it. Exactly one of ClientSecret or
// ClientCertificate must be set.
type Profile struct {
	TenantID     string `yaml:"tenantId"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret,omitempty"`

	// ClientCertificate is a path to certificate material with a private key
	// (PEM pair or PKCS#12); ClientCertificatePassword decrypts it when set.
	ClientCertificate         string `yaml:"clientCertificate,omitempty"`
	ClientCertificatePassword string `yaml:"clientCertificatePassword,omitempty"`

	// Cloud selects the sovereign cloud environment: "public" (default),
	// "china", or "government".
	Cloud string `yaml:"cloud,omitempty"`
}

// LoadProfile reads a YAML profile from the given path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks that the profile names a tenant, a client, and exactly one
// authentication method.
func (p *Profile) Validate() error {
	if p.TenantID == "" {
		return fmt.Errorf("profile is missing tenantId")
	}
	if p.ClientID == "" {
		return fmt.Errorf("profile is missing clientId")
	}
	switch {
	case p.ClientSecret == "" && p.ClientCertificate == "":
		return fmt.Errorf("profile needs a clientSecret or a clientCertificate")
	case p.ClientSecret != "" && p.ClientCertificate != "":
		return fmt.Errorf("profile sets both clientSecret and clientCertificate, pick one")
	}
	return nil
}
