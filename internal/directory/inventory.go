package directory

import (
	"context"
	"crypto/x509"
	"fmt"
	"log/slog"
	"time"

	"github.com/sensiblebit/entrakit"
	"github.com/sensiblebit/entrakit/internal/graph"
)

// InventoryItem is one logical certificate recovered from an object's key
// credential collection.
type InventoryItem struct {
	Alias         string
	Thumbprint    string
	HasPrivateKey bool
	NotBefore     time.Time
	NotAfter      time.Time
	Certificate   *x509.Certificate
}

// GetInventory reads the object's current credential collection and folds it
// into logical certificates. Undecodable records that have no decodable
// sibling are reported as warnings, not errors: a single junk record must
// not hide the rest of the inventory.
func (c *Client) GetInventory(ctx context.Context, appID string, kind graph.ObjectKind) ([]InventoryItem, []string, error) {
	obj, err := c.fetchObject(ctx, appID, kind)
	if err != nil {
		return nil, nil, err
	}
	items, warnings := BuildInventory(obj.KeyCredentials)
	for _, w := range warnings {
		slog.Warn("inventory record skipped", "appId", appID, "kind", kind, "reason", w)
	}
	return items, warnings, nil
}

// BuildInventory folds raw key credential records into logical certificates.
//
// Records sharing a join key (CustomKeyIdentifier, falling back to KeyID for
// records written without one) describe one certificate; the first record
// that decodes wins and later siblings never overwrite it. A record that
// fails to decode leaves a pending warning that a decodable sibling clears.
// Sign usage anywhere in a group marks the certificate as private-key
// bearing, since Sign records carry PKCS#12 blobs this reader cannot open.
func BuildInventory(records []graph.KeyCredential) ([]InventoryItem, []string) {
	var items []InventoryItem
	index := make(map[string]int)      // join key -> items index
	pending := make(map[string]string) // join key -> unresolved decode failure
	var pendingOrder []string
	signUsage := make(map[string]bool)

	for _, rec := range records {
		jk := string(rec.CustomKeyIdentifier)
		if jk == "" {
			jk = rec.KeyID
		}
		if rec.Usage == graph.KeyUsageSign {
			signUsage[jk] = true
		}
		if _, ok := index[jk]; ok {
			continue
		}

		cert, err := recordCertificate(rec)
		if err != nil {
			if _, dup := pending[jk]; !dup {
				pending[jk] = fmt.Sprintf("credential %q (keyId %s): %v", rec.DisplayName, rec.KeyID, err)
				pendingOrder = append(pendingOrder, jk)
			}
			continue
		}

		delete(pending, jk)
		index[jk] = len(items)
		items = append(items, InventoryItem{
			Alias:       rec.DisplayName,
			Thumbprint:  entrakit.CertFingerprintSHA1(cert),
			NotBefore:   cert.NotBefore,
			NotAfter:    cert.NotAfter,
			Certificate: cert,
		})
	}

	for jk := range signUsage {
		if i, ok := index[jk]; ok {
			items[i].HasPrivateKey = true
		}
	}

	var warnings []string
	for _, jk := range pendingOrder {
		if w, ok := pending[jk]; ok {
			warnings = append(warnings, w)
		}
	}
	return items, warnings
}

// recordCertificate decodes the certificate carried by a key credential
// record. Verify records hold public DER; older tooling wrote PEM or PKCS#7.
// Sign records hold password-protected PKCS#12 and always fail here.
func recordCertificate(rec graph.KeyCredential) (*x509.Certificate, error) {
	if len(rec.Key) == 0 {
		return nil, fmt.Errorf("%w: record has no key bytes", entrakit.ErrParse)
	}
	certs, err := entrakit.ParseCertificatesAny(rec.Key)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}
