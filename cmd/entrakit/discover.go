package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/entrakit/internal"
	"github.com/sensiblebit/entrakit/internal/directory"
	"github.com/sensiblebit/entrakit/internal/graph"
)

var (
	discoverKind    string
	discoverTenants string
	discoverDB      string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Enumerate credential-bearing objects across tenants",
	Long:  "List every application or service principal visible to the service account, one tenantId:appId per line. --tenants takes a comma-separated tenant list; blank entries and \"*\" mean the profile's home tenant.",
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverKind, "kind", "k", "app", "Object kind to enumerate: app or sp")
	discoverCmd.Flags().StringVarP(&discoverTenants, "tenants", "t", "", "Comma-separated tenant IDs to scan (default: profile tenant)")
	discoverCmd.Flags().StringVarP(&discoverDB, "db", "d", "", "Record results in a SQLite snapshot at this path")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(discoverKind)
	if err != nil {
		return err
	}
	p, err := loadProfile()
	if err != nil {
		return err
	}

	scanner := &directory.Scanner{
		DefaultTenant: p.TenantID,
		Kind:          kind,
		Factory: func(tenantID string) (graph.Store, error) {
			cred, err := internal.NewCredentialForTenant(p, tenantID)
			if err != nil {
				return nil, err
			}
			return graph.NewClient(cred, &graph.Options{Cloud: p.Cloud})
		},
	}

	results, warnings, err := scanner.Discover(cmd.Context(), discoverTenants)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Println(r.String())
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	if discoverDB != "" {
		return saveDiscoverySnapshot(kind.String(), results)
	}
	return nil
}

// saveDiscoverySnapshot records the scan in the snapshot database, merging
// with any snapshot already at the path.
func saveDiscoverySnapshot(kind string, results []directory.Discovered) error {
	db, err := internal.NewDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := os.Stat(discoverDB); err == nil {
		if err := db.LoadFromDisk(discoverDB); err != nil {
			return err
		}
		if err := os.Remove(discoverDB); err != nil {
			return fmt.Errorf("replacing snapshot %s: %w", discoverDB, err)
		}
	}

	now := time.Now().UTC()
	for _, r := range results {
		rec := internal.DiscoveredObjectRecord{
			TenantID:     r.TenantID,
			AppID:        r.AppID,
			ObjectID:     r.ObjectID,
			DisplayName:  r.DisplayName,
			ObjectKind:   kind,
			DiscoveredAt: now,
		}
		if err := db.InsertDiscoveredObject(rec); err != nil {
			return err
		}
	}
	return db.SaveToDisk(discoverDB)
}
