package directory

import (
	"context"
	"crypto/x509"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sensiblebit/entrakit"
	"github.com/sensiblebit/entrakit/internal/graph"
)

// AddApplicationCertificate appends a Verify key credential for the given
// certificate to the application's collection. Duplicate aliases are not
// rejected — the directory permits duplicate display names; callers wanting
// uniqueness check CertificateExists first.
func (c *Client) AddApplicationCertificate(ctx context.Context, appID, alias, certBlob string) error {
	cert, err := entrakit.ParseCertificatePublicOnly(certBlob)
	if err != nil {
		return fmt.Errorf("adding certificate %q to application %q: %w", alias, appID, err)
	}
	joinKey, err := entrakit.ComputeJoinKey(cert.Leaf)
	if err != nil {
		return fmt.Errorf("adding certificate %q to application %q: %w", alias, appID, err)
	}

	obj, err := c.fetchObject(ctx, appID, graph.KindApplication)
	if err != nil {
		return err
	}

	keys := deepCopyKeys(obj.KeyCredentials)
	keys = append(keys, verifyCredential(alias, joinKey, cert.Leaf))

	slog.Debug("adding application certificate",
		"alias", alias, "appId", appID, "thumbprint", cert.Thumbprint())

	// Password credentials on applications hold client secrets; a nil slice
	// keeps that collection out of the PATCH entirely.
	if err := c.store.PatchCredentials(ctx, obj.ID, graph.KindApplication, keys, nil); err != nil {
		return fmt.Errorf("adding certificate %q to application %q: %w", alias, appID, err)
	}
	return nil
}

// AddServicePrincipalCertificate appends the three records representing one
// signing certificate: a Verify key credential (public DER), a Sign key
// credential (PKCS#12 blob, shared key ID), and a password credential
// carrying the PKCS#12 passphrase under the same shared key ID. A second
// PATCH then promotes the certificate to preferred token signer.
//
// The two PATCHes are not atomic. If the second fails the certificate is
// present but not preferred; the error reports that state rather than
// attempting a rollback the store cannot guarantee.
func (c *Client) AddServicePrincipalCertificate(ctx context.Context, appID, alias, certBlob, password string) error {
	cert, err := entrakit.ParseCertificateWithKey(certBlob, password)
	if err != nil {
		return fmt.Errorf("adding certificate %q to service principal %q: %w", alias, appID, err)
	}
	joinKey, err := entrakit.ComputeJoinKey(cert.Leaf)
	if err != nil {
		return fmt.Errorf("adding certificate %q to service principal %q: %w", alias, appID, err)
	}

	pfx, err := entrakit.EncodePKCS12(cert.PrivateKey, cert.Leaf, cert.CAs, password)
	if err != nil {
		return fmt.Errorf("adding certificate %q to service principal %q: encoding PKCS#12: %w", alias, appID, err)
	}

	obj, err := c.fetchObject(ctx, appID, graph.KindServicePrincipal)
	if err != nil {
		return err
	}

	// One key ID shared by the Sign and password records pairs them; the
	// Verify record gets its own.
	signKeyID := uuid.NewString()
	notBefore, notAfter := cert.Leaf.NotBefore, cert.Leaf.NotAfter

	keys := deepCopyKeys(obj.KeyCredentials)
	keys = append(keys,
		verifyCredential(alias, joinKey, cert.Leaf),
		graph.KeyCredential{
			CustomKeyIdentifier: joinKey,
			DisplayName:         alias,
			Type:                graph.KeyTypeX509CertAndPassword,
			Usage:               graph.KeyUsageSign,
			KeyID:               signKeyID,
			Key:                 pfx,
			StartDateTime:       &notBefore,
			EndDateTime:         &notAfter,
		})

	passwords := deepCopyPasswords(obj.PasswordCredentials)
	passwords = append(passwords, graph.PasswordCredential{
		CustomKeyIdentifier: joinKey,
		KeyID:               signKeyID,
		SecretText:          password,
		StartDateTime:       &notBefore,
		EndDateTime:         &notAfter,
	})

	slog.Debug("adding service principal certificate",
		"alias", alias, "appId", appID, "thumbprint", cert.Thumbprint())

	if err := c.store.PatchCredentials(ctx, obj.ID, graph.KindServicePrincipal, keys, passwords); err != nil {
		return fmt.Errorf("adding certificate %q to service principal %q: %w", alias, appID, err)
	}

	if err := c.store.PatchPreferredSigner(ctx, obj.ID, cert.Thumbprint()); err != nil {
		return fmt.Errorf("certificate %q added to service principal %q but not set as preferred signer: %w", alias, appID, err)
	}
	return nil
}

// RemoveCertificate drops every key credential whose display name matches
// alias, plus the password credentials joined to the dropped records. When
// the removal would orphan the service principal's preferred-signer pointer,
// a replacement thumbprint is written first: the explicit one when supplied,
// otherwise the first surviving Sign-usage certificate. With neither
// available the operation fails with ErrDanglingSigner unless the engine was
// built with AllowSignerRemoval.
//
// Removing an alias with no matching records is a no-op; unrelated records
// are never altered.
func (c *Client) RemoveCertificate(ctx context.Context, appID string, kind graph.ObjectKind, alias, replacementThumbprint string) error {
	obj, err := c.fetchObject(ctx, appID, kind)
	if err != nil {
		return err
	}

	var keep, dropped []graph.KeyCredential
	for _, k := range deepCopyKeys(obj.KeyCredentials) {
		if k.DisplayName == alias {
			dropped = append(dropped, k)
			continue
		}
		keep = append(keep, k)
	}
	if len(dropped) == 0 {
		slog.Debug("no credentials match alias, nothing to remove", "alias", alias, "appId", appID, "kind", kind)
		return nil
	}

	droppedJoinKeys := make(map[string]bool, len(dropped))
	droppedKeyIDs := make(map[string]bool, len(dropped))
	for _, k := range dropped {
		slog.Debug("removing key credential", "alias", k.DisplayName, "keyId", k.KeyID, "usage", k.Usage)
		if len(k.CustomKeyIdentifier) > 0 {
			droppedJoinKeys[string(k.CustomKeyIdentifier)] = true
		}
		droppedKeyIDs[k.KeyID] = true
	}

	var passwords []graph.PasswordCredential
	if kind == graph.KindServicePrincipal {
		passwords = []graph.PasswordCredential{}
		for _, p := range deepCopyPasswords(obj.PasswordCredentials) {
			if droppedKeyIDs[p.KeyID] || (len(p.CustomKeyIdentifier) > 0 && droppedJoinKeys[string(p.CustomKeyIdentifier)]) {
				slog.Debug("removing password credential", "keyId", p.KeyID)
				continue
			}
			passwords = append(passwords, p)
		}

		if err := c.maintainPreferredSigner(ctx, obj, droppedJoinKeys, keep, replacementThumbprint, alias); err != nil {
			return err
		}
	}

	if err := c.store.PatchCredentials(ctx, obj.ID, kind, keep, passwords); err != nil {
		return fmt.Errorf("removing certificate %q from %s %q: %w", alias, kind, appID, err)
	}
	return nil
}

// maintainPreferredSigner rewrites the preferred-signer pointer before the
// trimmed collections are written, so the pointer never dangles on this
// engine's own writes.
func (c *Client) maintainPreferredSigner(ctx context.Context, obj *graph.Object, droppedJoinKeys map[string]bool, keep []graph.KeyCredential, replacementThumbprint, alias string) error {
	preferred := obj.PreferredSigningThumbprint
	if preferred == "" {
		return nil
	}
	preferredJoin, err := entrakit.JoinKeyFromThumbprint(preferred)
	if err != nil || !droppedJoinKeys[string(preferredJoin)] {
		return nil
	}

	next := replacementThumbprint
	if next == "" {
		next = firstSignerThumbprint(keep)
	}
	if next == "" {
		if !c.allowSignerRemoval {
			return fmt.Errorf("removing certificate %q from service principal %q: %w", alias, obj.AppID, ErrDanglingSigner)
		}
		slog.Warn("clearing preferred signing thumbprint, no signing certificates remain", "appId", obj.AppID)
	}

	if err := c.store.PatchPreferredSigner(ctx, obj.ID, next); err != nil {
		return fmt.Errorf("updating preferred signer on service principal %q: %w", obj.AppID, err)
	}
	return nil
}

// firstSignerThumbprint returns the thumbprint of the first Sign-usage
// record in the collection, recovering the certificate from its Verify
// sibling (same join key) or, failing that, from the record's own bytes.
// Empty when no surviving record can serve as signer.
func firstSignerThumbprint(keep []graph.KeyCredential) string {
	for _, k := range keep {
		if k.Usage != graph.KeyUsageSign {
			continue
		}
		for _, sibling := range keep {
			if sibling.Usage != graph.KeyUsageVerify || string(sibling.CustomKeyIdentifier) != string(k.CustomKeyIdentifier) {
				continue
			}
			if cert, err := recordCertificate(sibling); err == nil {
				return entrakit.CertFingerprintSHA1(cert)
			}
		}
		if cert, err := recordCertificate(k); err == nil {
			return entrakit.CertFingerprintSHA1(cert)
		}
	}
	return ""
}

// ReplaceCertificate swaps the certificate behind an alias: the new material
// is parsed and validated first, the old records are removed (handing the
// new thumbprint to the removal as the replacement signer so the pointer
// stays live through the swap), then the new certificate is added. The alias
// briefly has no certificate between the two writes; the caller already
// expects Replace to be non-atomic against the remote store.
func (c *Client) ReplaceCertificate(ctx context.Context, appID string, kind graph.ObjectKind, alias, certBlob, password string) error {
	switch kind {
	case graph.KindServicePrincipal:
		cert, err := entrakit.ParseCertificateWithKey(certBlob, password)
		if err != nil {
			return fmt.Errorf("replacing certificate %q on %s %q: %w", alias, kind, appID, err)
		}
		if err := c.RemoveCertificate(ctx, appID, kind, alias, cert.Thumbprint()); err != nil {
			return err
		}
		return c.AddServicePrincipalCertificate(ctx, appID, alias, certBlob, password)
	default:
		if _, err := entrakit.ParseCertificatePublicOnly(certBlob); err != nil {
			return fmt.Errorf("replacing certificate %q on %s %q: %w", alias, kind, appID, err)
		}
		if err := c.RemoveCertificate(ctx, appID, kind, alias, ""); err != nil {
			return err
		}
		return c.AddApplicationCertificate(ctx, appID, alias, certBlob)
	}
}

// CertificateExists reports whether any key credential on the object carries
// the alias as its display name. No side effects.
func (c *Client) CertificateExists(ctx context.Context, appID string, kind graph.ObjectKind, alias string) (bool, error) {
	obj, err := c.fetchObject(ctx, appID, kind)
	if err != nil {
		return false, err
	}
	for _, k := range obj.KeyCredentials {
		if k.DisplayName == alias {
			return true, nil
		}
	}
	return false, nil
}

// verifyCredential builds the Verify-usage record for a certificate: public
// DER bytes, a fresh key ID, and the certificate's validity window.
func verifyCredential(alias string, joinKey []byte, leaf *x509.Certificate) graph.KeyCredential {
	notBefore, notAfter := leaf.NotBefore, leaf.NotAfter
	return graph.KeyCredential{
		CustomKeyIdentifier: joinKey,
		DisplayName:         alias,
		Type:                graph.KeyTypeAsymmetricX509Cert,
		Usage:               graph.KeyUsageVerify,
		KeyID:               uuid.NewString(),
		Key:                 leaf.Raw,
		StartDateTime:       &notBefore,
		EndDateTime:         &notAfter,
	}
}
