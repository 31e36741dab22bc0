package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sensiblebit/entrakit/internal/graph"
)

// resolveObjectID maps an application (client) ID to the store's internal
// object ID, caching the result for the client's lifetime.
func (c *Client) resolveObjectID(ctx context.Context, appID string, kind graph.ObjectKind) (string, error) {
	key := objectIDKey{appID: appID, kind: kind}
	if id, ok := c.objectIDs[key]; ok {
		slog.Debug("object id cache hit", "appId", appID, "kind", kind, "objectId", id)
		return id, nil
	}

	id, err := c.store.FindObjectID(ctx, appID, kind)
	if err != nil {
		return "", fmt.Errorf("resolving %s for appId %q: %w", kind, appID, err)
	}
	c.objectIDs[key] = id
	return id, nil
}

// fetchObject resolves and fetches the current credential state of the
// target object. Every public operation goes through here so no call ever
// operates on a cached collection.
func (c *Client) fetchObject(ctx context.Context, appID string, kind graph.ObjectKind) (*graph.Object, error) {
	id, err := c.resolveObjectID(ctx, appID, kind)
	if err != nil {
		return nil, err
	}
	obj, err := c.store.GetObject(ctx, id, kind)
	if err != nil {
		return nil, fmt.Errorf("fetching %s for appId %q: %w", kind, appID, err)
	}
	return obj, nil
}

// deepCopyKeys clones a key credential collection, byte slices included.
// Writes are assembled from copies so a failed PATCH can never leave a
// mutated view of previously fetched state behind.
func deepCopyKeys(keys []graph.KeyCredential) []graph.KeyCredential {
	out := make([]graph.KeyCredential, 0, len(keys))
	for _, k := range keys {
		cp := k
		cp.CustomKeyIdentifier = append([]byte(nil), k.CustomKeyIdentifier...)
		cp.Key = append([]byte(nil), k.Key...)
		out = append(out, cp)
	}
	return out
}

// deepCopyPasswords clones a password credential collection.
func deepCopyPasswords(passwords []graph.PasswordCredential) []graph.PasswordCredential {
	out := make([]graph.PasswordCredential, 0, len(passwords))
	for _, p := range passwords {
		cp := p
		cp.CustomKeyIdentifier = append([]byte(nil), p.CustomKeyIdentifier...)
		out = append(out, cp)
	}
	return out
}
