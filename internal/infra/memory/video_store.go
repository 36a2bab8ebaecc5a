package memory

import (
	"context"
	"io"
	"sync"
)

// VideoStore keeps uploaded videos in memory. It reports progress the
// same way the blob-backed store does so upload flows test identically.
type VideoStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

func NewVideoStore() *VideoStore {
	return &VideoStore{
		BaseURL: "mem://videos",
		objects: make(map[string][]byte),
	}
}

func (v *VideoStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string, progress func(percent int)) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		if progress != nil {
			progress(0)
		}
		return "", err
	}

	v.mu.Lock()
	v.objects[key] = data
	v.mu.Unlock()

	if progress != nil {
		progress(100)
	}
	return v.BaseURL + "/" + key, nil
}

// Object returns the stored bytes for a key, for assertions in tests.
func (v *VideoStore) Object(key string) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	data, ok := v.objects[key]
	return data, ok
}

// Len reports how many objects have been stored.
func (v *VideoStore) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.objects)
}
