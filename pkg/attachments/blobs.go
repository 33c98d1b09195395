package attachments

import (
	"sync"

	"github.com/google/uuid"

	"github.com/go-go-golems/chatfront/pkg/api"
)

// BlobStore holds file bytes behind process-local blob: locators so a
// preview can be shown before the upload is confirmed.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string]File
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: map[string]File{}}
}

// Register stores f and returns its locator.
func (b *BlobStore) Register(f File) string {
	url := api.BlobScheme + uuid.NewString()
	b.mu.Lock()
	b.blobs[url] = f
	b.mu.Unlock()
	return url
}

func (b *BlobStore) Resolve(url string) (File, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.blobs[url]
	return f, ok
}

// Release drops a locator. Releasing an unknown locator is a no-op.
func (b *BlobStore) Release(url string) {
	b.mu.Lock()
	delete(b.blobs, url)
	b.mu.Unlock()
}

// ReleaseAll drops every locator and returns how many were live.
func (b *BlobStore) ReleaseAll() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.blobs)
	b.blobs = map[string]File{}
	return n
}

func (b *BlobStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}
