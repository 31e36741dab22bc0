// Package graph models the Microsoft Graph directory objects that carry
// certificate credentials (applications and service principals) and defines
// the Store interface the reconciliation engine operates against. The real
// implementation talks to the Graph REST API; MemStore backs tests.
package graph

import (
	"context"
	"errors"
	"time"
)

// ObjectKind selects which directory object type an operation targets. An
// application and its service principal are separate objects bound by one
// application (client) ID.
type ObjectKind string

const (
	KindApplication      ObjectKind = "application"
	KindServicePrincipal ObjectKind = "servicePrincipal"
)

// collection returns the Graph collection path for the kind.
func (k ObjectKind) collection() string {
	if k == KindServicePrincipal {
		return "servicePrincipals"
	}
	return "applications"
}

// String implements fmt.Stringer.
func (k ObjectKind) String() string { return string(k) }

// Key credential type and usage values as the directory stores them.
const (
	KeyTypeAsymmetricX509Cert  = "AsymmetricX509Cert"
	KeyTypeX509CertAndPassword = "X509CertAndPassword"

	KeyUsageVerify = "Verify"
	KeyUsageSign   = "Sign"
)

// ErrNotFound marks a directory object that could not be resolved in the
// tenant.
var ErrNotFound = errors.New("directory object not found")

// KeyCredential is a raw key credential record on a directory object.
// CustomKeyIdentifier carries the join key linking sibling records of one
// logical certificate; KeyID is the per-record secondary join key pairing a
// Sign record with its password credential.
type KeyCredential struct {
	CustomKeyIdentifier []byte     `json:"customKeyIdentifier,omitempty"`
	DisplayName         string     `json:"displayName,omitempty"`
	Type                string     `json:"type,omitempty"`
	Usage               string     `json:"usage,omitempty"`
	KeyID               string     `json:"keyId,omitempty"`
	Key                 []byte     `json:"key,omitempty"`
	StartDateTime       *time.Time `json:"startDateTime,omitempty"`
	EndDateTime         *time.Time `json:"endDateTime,omitempty"`
}

// PasswordCredential is a raw password credential record. For certificate
// credentials it holds the PKCS#12 passphrase of the paired Sign record,
// joined by KeyID and CustomKeyIdentifier.
type PasswordCredential struct {
	CustomKeyIdentifier []byte     `json:"customKeyIdentifier,omitempty"`
	DisplayName         string     `json:"displayName,omitempty"`
	KeyID               string     `json:"keyId,omitempty"`
	SecretText          string     `json:"secretText,omitempty"`
	StartDateTime       *time.Time `json:"startDateTime,omitempty"`
	EndDateTime         *time.Time `json:"endDateTime,omitempty"`
}

// Object is the credential-bearing view of an application or service
// principal. Only the fields the engine reads and writes are modeled; the
// store must never echo unrelated fields back on a write.
type Object struct {
	ID                  string               `json:"id"`
	AppID               string               `json:"appId"`
	KeyCredentials      []KeyCredential      `json:"keyCredentials"`
	PasswordCredentials []PasswordCredential `json:"passwordCredentials"`

	// PreferredSigningThumbprint is only populated for service principals.
	PreferredSigningThumbprint string `json:"preferredTokenSigningKeyThumbprint,omitempty"`
}

// ObjectRef is the projection returned by object enumeration.
type ObjectRef struct {
	ID          string `json:"id"`
	AppID       string `json:"appId"`
	DisplayName string `json:"displayName"`
}

// Store is the directory object store the engine reconciles against.
// Credential writes are whole-collection replacements: callers must supply
// the complete desired collections, never a delta.
type Store interface {
	// FindObjectID resolves an application (client) ID to the directory's
	// internal object ID. Returns ErrNotFound when no object matches.
	FindObjectID(ctx context.Context, appID string, kind ObjectKind) (string, error)

	// GetObject fetches the credential-bearing fields of an object.
	GetObject(ctx context.Context, objectID string, kind ObjectKind) (*Object, error)

	// PatchCredentials replaces the object's credential collections. A nil
	// passwords slice leaves the password collection untouched (applications
	// carry client secrets there that the engine must not disturb).
	PatchCredentials(ctx context.Context, objectID string, kind ObjectKind, keys []KeyCredential, passwords []PasswordCredential) error

	// PatchPreferredSigner sets the preferred token-signing thumbprint.
	// Only valid for service principals.
	PatchPreferredSigner(ctx context.Context, objectID string, thumbprint string) error

	// ListObjects enumerates all objects of the kind in the store's tenant,
	// paging internally, projecting only id, appId, and displayName.
	ListObjects(ctx context.Context, kind ObjectKind) ([]ObjectRef, error)
}
