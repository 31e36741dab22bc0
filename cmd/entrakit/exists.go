package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var existsKind string

var existsCmd = &cobra.Command{
	Use:   "exists <app-id> <alias>",
	Short: "Check whether an alias is present on an object",
	Args:  cobra.ExactArgs(2),
	RunE:  runExists,
}

func init() {
	existsCmd.Flags().StringVarP(&existsKind, "kind", "k", "app", "Target object kind: app or sp")
}

func runExists(cmd *cobra.Command, args []string) error {
	appID, alias := args[0], args[1]

	kind, err := parseKind(existsKind)
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

	found, err := engine.CertificateExists(cmd.Context(), appID, kind, alias)
	if err != nil {
		return err
	}

	fmt.Println(found)
	return nil
}
