package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/entrakit"
	"github.com/sensiblebit/entrakit/internal"
	"github.com/sensiblebit/entrakit/internal/directory"
)

var (
	inventoryKind   string
	inventoryJSON   bool
	inventoryVerify bool
	inventoryDB     string
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory <app-id>",
	Short: "List the certificates on an object",
	Long:  "Fold the object's raw credential records into logical certificates. Records that cannot be decoded are reported as warnings without failing the run.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInventory,
}

func init() {
	inventoryCmd.Flags().StringVarP(&inventoryKind, "kind", "k", "app", "Target object kind: app or sp")
	inventoryCmd.Flags().BoolVar(&inventoryJSON, "json", false, "Emit JSON instead of a table")
	inventoryCmd.Flags().BoolVar(&inventoryVerify, "verify", false, "Check each certificate against the embedded Mozilla root bundle")
	inventoryCmd.Flags().StringVarP(&inventoryDB, "db", "d", "", "Record the inventory in a SQLite snapshot at this path")
}

type inventoryRow struct {
	Alias         string    `json:"alias"`
	Thumbprint    string    `json:"thumbprint"`
	HasPrivateKey bool      `json:"hasPrivateKey"`
	NotBefore     time.Time `json:"notBefore"`
	NotAfter      time.Time `json:"notAfter"`
	Trusted       *bool     `json:"trusted,omitempty"`
}

func runInventory(cmd *cobra.Command, args []string) error {
	appID := args[0]

	kind, err := parseKind(inventoryKind)
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

	items, warnings, err := engine.GetInventory(cmd.Context(), appID, kind)
	if err != nil {
		return err
	}

	rows := make([]inventoryRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, inventoryRow{
			Alias:         item.Alias,
			Thumbprint:    item.Thumbprint,
			HasPrivateKey: item.HasPrivateKey,
			NotBefore:     item.NotBefore,
			NotAfter:      item.NotAfter,
		})
	}

	if inventoryVerify {
		roots, err := entrakit.MozillaRootPool()
		if err != nil {
			return err
		}
		for i, item := range items {
			trusted := entrakit.VerifyChainTrust(item.Certificate, roots, nil)
			rows[i].Trusted = &trusted
		}
	}

	if inventoryDB != "" {
		if err := saveInventorySnapshot(p.TenantID, appID, kind.String(), items); err != nil {
			return err
		}
	}

	if inventoryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	for _, row := range rows {
		key := "public"
		if row.HasPrivateKey {
			key = "private"
		}
		line := fmt.Sprintf("%-30s %s %s %s..%s", row.Alias, row.Thumbprint, key,
			row.NotBefore.Format("2006-01-02"), row.NotAfter.Format("2006-01-02"))
		if row.Trusted != nil {
			if *row.Trusted {
				line += " trusted"
			} else {
				line += " untrusted"
			}
		}
		fmt.Println(line)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return nil
}

// saveInventorySnapshot records the run in the snapshot database, merging
// with any snapshot already at the path.
func saveInventorySnapshot(tenantID, appID, kind string, items []directory.InventoryItem) error {
	db, err := internal.NewDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := os.Stat(inventoryDB); err == nil {
		if err := db.LoadFromDisk(inventoryDB); err != nil {
			return err
		}
		if err := os.Remove(inventoryDB); err != nil {
			return fmt.Errorf("replacing snapshot %s: %w", inventoryDB, err)
		}
	}

	now := time.Now().UTC()
	for _, item := range items {
		rec := internal.InventoryItemRecord{
			TenantID:      tenantID,
			AppID:         appID,
			ObjectKind:    kind,
			Alias:         item.Alias,
			Thumbprint:    item.Thumbprint,
			HasPrivateKey: item.HasPrivateKey,
			NotBefore:     item.NotBefore,
			NotAfter:      item.NotAfter,
			PEM:           entrakit.CertToPEM(item.Certificate),
			CapturedAt:    now,
		}
		if err := db.InsertInventoryItem(rec); err != nil {
			return err
		}
	}
	return db.SaveToDisk(inventoryDB)
}
