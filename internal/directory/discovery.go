package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sensiblebit/entrakit/internal/graph"
)

// StoreFactory builds a store bound to one tenant. Directory credentials are
// tenant-scoped, so discovery across tenants needs a fresh store per tenant
// rather than one shared client.
type StoreFactory func(tenantID string) (graph.Store, error)

// Scanner enumerates credential-bearing objects across one or more tenants.
type Scanner struct {
	Factory       StoreFactory
	DefaultTenant string
	Kind          graph.ObjectKind
}

// Discovered is one object found by a scan.
type Discovered struct {
	TenantID    string
	ObjectID    string
	AppID       string
	DisplayName string
}

// String renders the discovery identifier consumed by downstream tooling.
func (d Discovered) String() string {
	return d.TenantID + ":" + d.AppID
}

// Discover enumerates the objects of the scanner's kind in every tenant
// named by the comma-separated list. An empty list, an empty element, or "*"
// selects the scanner's default tenant. Per-tenant failures degrade to
// warnings so one bad tenant cannot sink the whole scan.
func (s *Scanner) Discover(ctx context.Context, tenants string) ([]Discovered, []string, error) {
	if s.Factory == nil {
		return nil, nil, fmt.Errorf("discovery scanner has no store factory")
	}

	var results []Discovered
	var warnings []string
	for _, tenantID := range s.tenantList(tenants) {
		store, err := s.Factory(tenantID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("tenant %s: building client: %v", tenantID, err))
			continue
		}

		refs, err := store.ListObjects(ctx, s.Kind)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("tenant %s: listing %ss: %v", tenantID, s.Kind, err))
			continue
		}

		slog.Debug("discovered objects", "tenantId", tenantID, "kind", s.Kind, "count", len(refs))
		for _, ref := range refs {
			if ref.AppID == "" {
				warnings = append(warnings, fmt.Sprintf("tenant %s: %s %s has no appId, skipping", tenantID, s.Kind, ref.ID))
				continue
			}
			results = append(results, Discovered{
				TenantID:    tenantID,
				ObjectID:    ref.ID,
				AppID:       ref.AppID,
				DisplayName: ref.DisplayName,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].String() < results[j].String() })
	return results, warnings, nil
}

// tenantList expands the caller's comma-separated tenant string into concrete
// tenant IDs, substituting the default tenant for blanks and wildcards and
// dropping duplicates.
func (s *Scanner) tenantList(tenants string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(tenants, ",") {
		t = strings.TrimSpace(t)
		if t == "" || t == "*" {
			t = s.DefaultTenant
		}
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 && s.DefaultTenant != "" {
		out = append(out, s.DefaultTenant)
	}
	return out
}
