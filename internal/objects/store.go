package objects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/cryptox"
	"github.com/privault/privault/internal/kvstore"
	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/vault"
)

// Store adds, lists, views and deletes encrypted objects. Every payload touch
// requires a live session; a locked vault fails with common.ErrVaultLocked.
type Store struct {
	store    kvstore.Store
	sessions vault.SessionProvider
	logger   logging.Logger

	// now is a test seam.
	now func() time.Time

	mu sync.Mutex
}

// NewStore wires the object store to the vault's persistence and session.
func NewStore(store kvstore.Store, sessions vault.SessionProvider, logger logging.Logger) *Store {
	return &Store{
		store:    store,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Add encrypts and stores a new object. Images additionally get a thumbnail,
// derived from the plaintext before encryption and encrypted independently. A
// payload that claims image/* but does not decode is stored without one.
func (s *Store) Add(ctx context.Context, name, mimeType string, data []byte) (*EncryptedObject, error) {
	secret, err := s.sessionKey()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(secret)

	obj := &EncryptedObject{
		Id:           uuid.NewString(),
		FileName:     name,
		MimeType:     mimeType,
		MimeCategory: Categorize(mimeType),
		SizeBytes:    int64(len(data)),
		AddedAt:      s.now(),
	}

	var thumb []byte
	if obj.MimeCategory == CategoryPhotos {
		thumb, err = makeThumbnail(data)
		if err != nil {
			s.logger.Warn(ctx, "thumbnail skipped", "id", obj.Id, "error", err)
			thumb = nil
		}
	}

	blob, err := cryptox.Encrypt(data, secret)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, kvstore.FileBlobPrefix+obj.Id, blob); err != nil {
		return nil, fmt.Errorf("failed to store object payload: %w", err)
	}

	if thumb != nil {
		tblob, err := cryptox.Encrypt(thumb, secret)
		if err != nil {
			s.discardBlobs(ctx, obj.Id)
			return nil, err
		}
		if err := s.store.Set(ctx, kvstore.FileThumbPrefix+obj.Id, tblob); err != nil {
			s.discardBlobs(ctx, obj.Id)
			return nil, fmt.Errorf("failed to store thumbnail: %w", err)
		}
		obj.HasThumbnail = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objs, err := s.loadIndex(ctx)
	if err != nil {
		s.discardBlobs(ctx, obj.Id)
		return nil, err
	}
	objs = append(objs, obj)
	if err := s.saveIndex(ctx, objs); err != nil {
		s.discardBlobs(ctx, obj.Id)
		return nil, err
	}

	s.logger.Info(ctx, "object stored", "id", obj.Id, "category", obj.MimeCategory, "size", obj.SizeBytes)
	return obj, nil
}

// View decrypts and returns the object payload. The returned bytes are
// transient; nothing decrypted is cached.
func (s *Store) View(ctx context.Context, id string) ([]byte, error) {
	return s.open(ctx, kvstore.FileBlobPrefix+id)
}

// ViewThumbnail decrypts and returns the object's thumbnail, or
// common.ErrorNotFound when it has none.
func (s *Store) ViewThumbnail(ctx context.Context, id string) ([]byte, error) {
	return s.open(ctx, kvstore.FileThumbPrefix+id)
}

func (s *Store) open(ctx context.Context, key string) ([]byte, error) {
	secret, err := s.sessionKey()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(secret)

	blob, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return cryptox.Decrypt(blob, secret)
}

// Get returns the metadata record for one object.
func (s *Store) Get(ctx context.Context, id string) (*EncryptedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objs, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range objs {
		if o.Id == id {
			return o, nil
		}
	}
	return nil, common.ErrorNotFound
}

// List returns metadata for all objects, or those in one category. No
// decryption happens here.
func (s *Store) List(ctx context.Context, category Category) ([]*EncryptedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objs, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return objs, nil
	}

	filtered := make([]*EncryptedObject, 0, len(objs))
	for _, o := range objs {
		if o.MimeCategory == category {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

// Delete removes the object, its payload and its thumbnail. Objects are
// immutable, so replacing content is Delete followed by Add.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objs, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}

	found := false
	kept := objs[:0]
	for _, o := range objs {
		if o.Id == id {
			found = true
			continue
		}
		kept = append(kept, o)
	}
	if !found {
		return common.ErrorNotFound
	}

	if err := s.saveIndex(ctx, kept); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, kvstore.FileBlobPrefix+id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, kvstore.FileThumbPrefix+id); err != nil {
		return err
	}

	s.logger.Info(ctx, "object deleted", "id", id)
	return nil
}

// discardBlobs removes blobs written before a failed Add, so no encrypted
// payload ever stays behind without an index entry.
func (s *Store) discardBlobs(ctx context.Context, id string) {
	for _, key := range []string{kvstore.FileBlobPrefix + id, kvstore.FileThumbPrefix + id} {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "failed to discard partial object blob", "key", key, "error", err)
		}
	}
}

func (s *Store) sessionKey() ([]byte, error) {
	session, err := s.sessions.Session()
	if err != nil {
		return nil, err
	}
	return session.Key()
}

// loadIndex and saveIndex expect s.mu to be held.

func (s *Store) loadIndex(ctx context.Context) ([]*EncryptedObject, error) {
	raw, err := s.store.Get(ctx, kvstore.KeyFiles)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var objs []*EncryptedObject
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, fmt.Errorf("failed to decode object index: %w", err)
	}
	return objs, nil
}

func (s *Store) saveIndex(ctx context.Context, objs []*EncryptedObject) error {
	raw, err := json.Marshal(objs)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, kvstore.KeyFiles, raw)
}
