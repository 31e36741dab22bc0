package graph

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store implementation. It mirrors the directory's
// whole-collection PATCH semantics (writes replace, never merge) so engine
// behavior exercised against it matches the real store. Used by tests and as
// a stand-in store for offline experimentation.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]*Object // kind + "/" + objectID

	// Error injection hooks. When non-nil, the corresponding operation
	// fails with the given error.
	FindErr  error
	GetErr   error
	PatchErr error
	ListErr  error
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]*Object)}
}

func memKey(objectID string, kind ObjectKind) string {
	return string(kind) + "/" + objectID
}

// Seed inserts or replaces an object. The store keeps its own copy.
func (s *MemStore) Seed(kind ObjectKind, obj *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *obj
	cp.KeyCredentials = copyKeys(obj.KeyCredentials)
	cp.PasswordCredentials = copyPasswords(obj.PasswordCredentials)
	s.objects[memKey(obj.ID, kind)] = &cp
}

// Object returns a snapshot of a seeded object, or nil.
func (s *MemStore) Object(objectID string, kind ObjectKind) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[memKey(objectID, kind)]
	if !ok {
		return nil
	}
	cp := *obj
	cp.KeyCredentials = copyKeys(obj.KeyCredentials)
	cp.PasswordCredentials = copyPasswords(obj.PasswordCredentials)
	return &cp
}

// FindObjectID implements Store.
func (s *MemStore) FindObjectID(_ context.Context, appID string, kind ObjectKind) (string, error) {
	if s.FindErr != nil {
		return "", s.FindErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, obj := range s.objects {
		if obj.AppID == appID && key == memKey(obj.ID, kind) {
			return obj.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s with appId %q", ErrNotFound, kind, appID)
}

// GetObject implements Store.
func (s *MemStore) GetObject(_ context.Context, objectID string, kind ObjectKind) (*Object, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	obj := s.Object(objectID, kind)
	if obj == nil {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, objectID)
	}
	return obj, nil
}

// PatchCredentials implements Store with replace semantics. A nil passwords
// slice leaves the stored password collection untouched.
func (s *MemStore) PatchCredentials(_ context.Context, objectID string, kind ObjectKind, keys []KeyCredential, passwords []PasswordCredential) error {
	if s.PatchErr != nil {
		return s.PatchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[memKey(objectID, kind)]
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, objectID)
	}
	obj.KeyCredentials = copyKeys(keys)
	if passwords != nil {
		obj.PasswordCredentials = copyPasswords(passwords)
	}
	return nil
}

// PatchPreferredSigner implements Store.
func (s *MemStore) PatchPreferredSigner(_ context.Context, objectID string, thumbprint string) error {
	if s.PatchErr != nil {
		return s.PatchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[memKey(objectID, KindServicePrincipal)]
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, KindServicePrincipal, objectID)
	}
	obj.PreferredSigningThumbprint = thumbprint
	return nil
}

// ListObjects implements Store.
func (s *MemStore) ListObjects(_ context.Context, kind ObjectKind) ([]ObjectRef, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var refs []ObjectRef
	for key, obj := range s.objects {
		if key != memKey(obj.ID, kind) {
			continue
		}
		refs = append(refs, ObjectRef{ID: obj.ID, AppID: obj.AppID})
	}
	return refs, nil
}

func copyKeys(keys []KeyCredential) []KeyCredential {
	out := make([]KeyCredential, len(keys))
	for i, k := range keys {
		out[i] = k
		out[i].CustomKeyIdentifier = append([]byte(nil), k.CustomKeyIdentifier...)
		out[i].Key = append([]byte(nil), k.Key...)
	}
	return out
}

func copyPasswords(passwords []PasswordCredential) []PasswordCredential {
	out := make([]PasswordCredential, len(passwords))
	for i, p := range passwords {
		out[i] = p
		out[i].CustomKeyIdentifier = append([]byte(nil), p.CustomKeyIdentifier...)
	}
	return out
}
