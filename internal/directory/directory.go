// Package directory implements the credential reconciliation engine: it maps
// logical certificates (alias + thumbprint) onto the raw key/password
// credential collections of Entra ID applications and service principals,
// and keeps the preferred token-signing pointer consistent across writes.
package directory

import (
	"errors"

	"github.com/sensiblebit/entrakit/internal/graph"
)

// ErrDanglingSigner is returned when a removal would leave the service
// principal's preferred-signer pointer referencing a certificate with no
// remaining Sign-usage record and no replacement is available.
var ErrDanglingSigner = errors.New("removal would leave the preferred signing certificate dangling")

// Options configures engine policy.
type Options struct {
	// AllowSignerRemoval permits removing the last signing certificate by
	// clearing the preferred-signer pointer instead of failing the removal.
	// Default is to fail: a tenant left without a token signer is harder to
	// recover than a refused job.
	AllowSignerRemoval bool
}

// Client is the reconciliation engine. It holds no credential state across
// calls — every operation re-fetches the object's collections so a stale
// snapshot can never corrupt a join. Only resolved object IDs are cached,
// since they are immutable for the object's lifetime.
type Client struct {
	store              graph.Store
	allowSignerRemoval bool

	objectIDs map[objectIDKey]string
}

type objectIDKey struct {
	appID string
	kind  graph.ObjectKind
}

// NewClient builds an engine over the given store.
func NewClient(store graph.Store, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	return &Client{
		store:              store,
		allowSignerRemoval: opts.AllowSignerRemoval,
		objectIDs:          make(map[objectIDKey]string),
	}
}
