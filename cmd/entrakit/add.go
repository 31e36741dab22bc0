package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/entrakit/internal/graph"
)

var (
	addKind     string
	addPassword string
)

var addCmd = &cobra.Command{
	Use:   "add <app-id> <alias> <certificate-file>",
	Short: "Add a certificate credential to an object",
	Long:  "Add a certificate to an application or service principal. Applications take public material only; service principals require a private key (PKCS#12, PEM pair, or JKS) and the new certificate becomes the preferred token signer.",
	Args:  cobra.ExactArgs(3),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addKind, "kind", "k", "app", "Target object kind: app or sp")
	addCmd.Flags().StringVar(&addPassword, "password", "", "Password protecting the certificate's private key (sp only)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	appID, alias, certFile := args[0], args[1], args[2]

	kind, err := parseKind(addKind)
	if err != nil {
		return err
	}
	p, err := loadProfile()
	if err != nil {
		return err
	}
	engine, err := buildEngine(p, nil)
	if err != nil {
		return err
	}
	blob, err := blobFromFile(certFile)
	if err != nil {
		return err
	}

	if kind == graph.KindServicePrincipal {
		err = engine.AddServicePrincipalCertificate(cmd.Context(), appID, alias, blob, addPassword)
	} else {
		err = engine.AddApplicationCertificate(cmd.Context(), appID, alias, blob)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Added %q to %s %s\n", alias, kind, appID)
	return nil
}
