package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/entrakit"
	"github.com/sensiblebit/entrakit/internal"
	"github.com/sensiblebit/entrakit/internal/directory"
	"github.com/sensiblebit/entrakit/internal/graph"
)

var (
	logLevel           string
	profilePath        string
	tenantID           string
	clientID           string
	clientSecret       string
	clientCert         string
	clientCertPassword string
	cloudName          string
)

var rootCmd = &cobra.Command{
	Use:   "entrakit",
	Short: "Certificate credential management for Entra ID applications",
	Long:  "Manage certificates on Entra ID application and service principal objects: add, replace, and remove credentials, inventory what is present, and discover credential-bearing objects across tenants.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetupLogger(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "P", "", "Path to a YAML connection profile")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "Tenant ID (overrides profile)")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "Client ID of the service account registration (overrides profile)")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", "", "Client secret (overrides profile)")
	rootCmd.PersistentFlags().StringVar(&clientCert, "client-cert", "", "Path to a client certificate with private key (overrides profile)")
	rootCmd.PersistentFlags().StringVar(&clientCertPassword, "client-cert-password", "", "Password for the client certificate")
	rootCmd.PersistentFlags().StringVar(&cloudName, "cloud", "", "Cloud environment: public, china, government")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(existsCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(discoverCmd)
}

// loadProfile merges the YAML profile (when given) with flag overrides.
func loadProfile() (*internal.Profile, error) {
	p := &internal.Profile{}
	if profilePath != "" {
		loaded, err := internal.LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if tenantID != "" {
		p.TenantID = tenantID
	}
	if clientID != "" {
		p.ClientID = clientID
	}
	if clientSecret != "" {
		p.ClientSecret = clientSecret
	}
	if clientCert != "" {
		p.ClientCertificate = clientCert
	}
	if clientCertPassword != "" {
		p.ClientCertificatePassword = clientCertPassword
	}
	if cloudName != "" {
		p.Cloud = cloudName
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseKind maps the --kind flag to an object kind.
func parseKind(name string) (graph.ObjectKind, error) {
	switch name {
	case "app", "application":
		return graph.KindApplication, nil
	case "sp", "service-principal", "servicePrincipal":
		return graph.KindServicePrincipal, nil
	default:
		return "", fmt.Errorf("unknown object kind %q (want app or sp)", name)
	}
}

// buildEngine wires a reconciliation engine to the profile's tenant.
func buildEngine(p *internal.Profile, opts *directory.Options) (*directory.Client, error) {
	cred, err := internal.NewCredential(p)
	if err != nil {
		return nil, err
	}
	store, err := graph.NewClient(cred, &graph.Options{Cloud: p.Cloud})
	if err != nil {
		return nil, err
	}
	return directory.NewClient(store, opts), nil
}

// blobFromFile loads certificate material for transport: PEM passes through
// as text, anything binary (PKCS#12, DER, JKS) is base64 encoded.
func blobFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading certificate file %s: %w", path, err)
	}
	if entrakit.IsPEM(data) {
		return string(data), nil
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
