package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/entrakit/internal/directory"
)

var (
	removeKind            string
	removeReplacement     string
	removeAllowSignerLoss bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <app-id> <alias>",
	Short: "Remove a certificate credential from an object",
	Long:  "Remove every credential record carrying the alias. If the removal would orphan the service principal's preferred signing certificate, a replacement thumbprint must be supplied (or be recoverable from the surviving records) unless --allow-signer-removal is set.",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemove,
}

func init() {
	removeCmd.Flags().StringVarP(&removeKind, "kind", "k", "app", "Target object kind: app or sp")
	removeCmd.Flags().StringVar(&removeReplacement, "replacement-thumbprint", "", "Thumbprint to promote as preferred signer if the removed certificate held that role")
	removeCmd.Flags().BoolVar(&removeAllowSignerLoss, "allow-signer-removal", false, "Permit removing the last signing certificate by clearing the preferred signer")
}

func runRemove(cmd *cobra.Command, args []string) error {
	appID, alias := args[0], args[1]

	kind, err := parseKind(removeKind)
	if err != nil {
		return err
	}
	p, err := loadProfile()
	if err != nil {
		return err
	}
	engine, err := buildEngine(p, &directory.Options{AllowSignerRemoval: removeAllowSignerLoss})
	if err != nil {
		return err
	}

	if err := engine.RemoveCertificate(cmd.Context(), appID, kind, alias, removeReplacement); err != nil {
		return err
	}

	fmt.Printf("Removed %q from %s %s\n", alias, kind, appID)
	return nil
}
