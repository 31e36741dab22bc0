package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/entrakit/internal/directory"
)

var (
	replaceKind     string
	replacePassword string
)

var replaceCmd = &cobra.Command{
	Use:   "replace <app-id> <alias> <certificate-file>",
	Short: "Replace the certificate behind an alias",
	Long:  "Swap an alias's certificate for new material. The new certificate is validated before anything is removed; on service principals the preferred signer follows the new certificate.",
	Args:  cobra.ExactArgs(3),
	RunE:  runReplace,
}

func init() {
	replaceCmd.Flags().StringVarP(&replaceKind, "kind", "k", "app", "Target object kind: app or sp")
	replaceCmd.Flags().StringVar(&replacePassword, "password", "", "Password protecting the certificate's private key (sp only)")
}

func runReplace(cmd *cobra.Command, args []string) error {
	appID, alias, certFile := args[0], args[1], args[2]

	kind, err := parseKind(replaceKind)
	if err != nil {
		return err
	}
	p, err := loadProfile()
	if err != nil {
		return err
	}
	engine, err := buildEngine(p, &directory.Options{})
	if err != nil {
		return err
	}
	blob, err := blobFromFile(certFile)
	if err != nil {
		return err
	}

	if err := engine.ReplaceCertificate(cmd.Context(), appID, kind, alias, blob, replacePassword); err != nil {
		return err
	}

	fmt.Printf("Replaced %q on %s %s\n", alias, kind, appID)
	return nil
}
