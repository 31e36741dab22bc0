package directory

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sensiblebit/entrakit"
	"github.com/sensiblebit/entrakit/internal/graph"
)

func TestGetInventoryFoldsRecordGroups(t *testing.T) {
	t.Parallel()
	store := graph.NewMemStore()
	seedObject(store, graph.KindServicePrincipal, "obj-sp", "app-1", nil, nil, "")
	certA, keyA := testCert(t, "signing.example.com")
	certB, _ := testCert(t, "publiconly.example.com")
	seedTriple(t, store, "obj-sp", "app-1", "signing", certA, keyA, "pw")

	obj := store.Object("obj-sp", graph.KindServicePrincipal)
	keys := append(obj.KeyCredentials, verifyRecord(t, "public-only", certB))
	seedObject(store, graph.KindServicePrincipal, "obj-sp", "app-1", keys, obj.PasswordCredentials, "")

	engine := NewClient(store, nil)
	items, warnings, err := engine.GetInventory(context.Background(), "app-1", graph.KindServicePrincipal)
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	// The Sign record's PKCS#12 blob is undecodable without its password, but
	// its Verify sibling covers the group: no warning may surface.
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	if items[0].Alias != "signing" || !items[0].HasPrivateKey {
		t.Errorf("signing item wrong: %+v", items[0])
	}
	if items[0].Thumbprint != entrakit.CertFingerprintSHA1(certA) {
		t.Errorf("signing thumbprint = %s", items[0].Thumbprint)
	}
	if items[1].Alias != "public-only" || items[1].HasPrivateKey {
		t.Errorf("public-only item wrong: %+v", items[1])
	}
}

func TestBuildInventoryFirstRecordWins(t *testing.T) {
	t.Parallel()
	cert, _ := testCert(t, "dup.example.com")
	first := verifyRecord(t, "first", cert)
	second := verifyRecord(t, "second", cert)

	items, warnings := BuildInventory([]graph.KeyCredential{first, second})
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Alias != "first" {
		t.Errorf("alias = %q, want the first record's", items[0].Alias)
	}
}

func TestBuildInventoryLonelyUndecodableRecordWarns(t *testing.T) {
	t.Parallel()
	cert, _ := testCert(t, "good.example.com")
	junk := graph.KeyCredential{
		CustomKeyIdentifier: []byte("unrelated-join-key"),
		DisplayName:         "junk",
		Usage:               graph.KeyUsageVerify,
		KeyID:               uuid.NewString(),
		Key:                 []byte{0xde, 0xad, 0xbe, 0xef},
	}

	items, warnings := BuildInventory([]graph.KeyCredential{junk, verifyRecord(t, "good", cert)})
	if len(items) != 1 || items[0].Alias != "good" {
		t.Fatalf("items = %+v, want only the decodable record", items)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "junk") {
		t.Errorf("warnings = %v, want one naming the junk record", warnings)
	}
}

// A decodable sibling arriving after the failure must clear the pending
// warning for its group.
func TestBuildInventorySiblingSuccessClearsWarning(t *testing.T) {
	t.Parallel()
	cert, _ := testCert(t, "late.example.com")
	good := verifyRecord(t, "late", cert)
	broken := graph.KeyCredential{
		CustomKeyIdentifier: good.CustomKeyIdentifier,
		DisplayName:         "late",
		Usage:               graph.KeyUsageSign,
		KeyID:               uuid.NewString(),
		Key:                 []byte("opaque pkcs12 bytes"),
	}

	items, warnings := BuildInventory([]graph.KeyCredential{broken, good})
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none after sibling decode", warnings)
	}
	if len(items) != 1 || !items[0].HasPrivateKey {
		t.Fatalf("items = %+v, want one private-key item", items)
	}
}

// Records written without a customKeyIdentifier fall back to their keyId as
// the group key so unrelated records cannot collapse into one item.
func TestBuildInventoryKeyIDFallback(t *testing.T) {
	t.Parallel()
	certA, _ := testCert(t, "a.example.com")
	certB, _ := testCert(t, "b.example.com")
	recA := verifyRecord(t, "a", certA)
	recA.CustomKeyIdentifier = nil
	recB := verifyRecord(t, "b", certB)
	recB.CustomKeyIdentifier = nil

	items, _ := BuildInventory([]graph.KeyCredential{recA, recB})
	if len(items) != 2 {
		t.Errorf("got %d items, want 2 distinct ones", len(items))
	}
}

func TestBuildInventoryEmpty(t *testing.T) {
	t.Parallel()
	items, warnings := BuildInventory(nil)
	if len(items) != 0 || len(warnings) != 0 {
		t.Errorf("empty collection produced items=%v warnings=%v", items, warnings)
	}
}
