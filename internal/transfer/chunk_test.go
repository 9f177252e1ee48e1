package transfer

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory ObjectStore for tests.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// failures maps object name -> remaining upload failures.
	failures map[string]int
	uploads  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  make(map[string][]byte),
		failures: make(map[string]int),
	}
}

func (s *fakeStore) Upload(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[path] > 0 {
		s.failures[path]--
		return fmt.Errorf("simulated upload failure for %s", path)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[path] = cp
	s.uploads = append(s.uploads, path)
	return nil
}

func (s *fakeStore) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("no such object %s", path)
	}
	return data, nil
}

func (s *fakeStore) List(_ context.Context, dir string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var names []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *fakeStore) Remove(_ context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		delete(s.objects, p)
	}
	return nil
}

func writeTestFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "upload.geojson")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fastManager(store ObjectStore, chunkSize int64) *ChunkManager {
	m := NewChunkManager(store)
	m.ChunkSize = chunkSize
	m.InterChunkDelay = 0
	m.RetryDelay = time.Millisecond
	return m
}

func TestTransferSplitsIntoChunks(t *testing.T) {
	store := newFakeStore()
	m := fastManager(store, 1024)

	local := writeTestFile(t, 2500) // 3 chunks: 1024 + 1024 + 452
	if err := m.Transfer(context.Background(), local, "staging/upload.geojson"); err != nil {
		t.Fatal(err)
	}

	if len(store.objects) != 3 {
		t.Fatalf("stored %d chunks, want 3", len(store.objects))
	}
	if _, ok := store.objects["staging/upload.geojson.part0002"]; !ok {
		t.Error("last chunk missing")
	}
	if n := len(store.objects["staging/upload.geojson.part0002"]); n != 452 {
		t.Errorf("last chunk size = %d, want 452", n)
	}
}

func TestTransferResumesSkippingExistingChunks(t *testing.T) {
	store := newFakeStore()
	m := fastManager(store, 1024)

	local := writeTestFile(t, 5*1024) // 5 chunks
	data, _ := os.ReadFile(local)

	// Chunks 0-3 already staged from an interrupted run.
	for i := 0; i < 4; i++ {
		store.objects[chunkName("staging/big.geojson", i)] = data[i*1024 : (i+1)*1024]
	}

	if err := m.Transfer(context.Background(), local, "staging/big.geojson"); err != nil {
		t.Fatal(err)
	}

	if len(store.uploads) != 1 || store.uploads[0] != "staging/big.geojson.part0004" {
		t.Errorf("uploads = %v, want only chunk 4", store.uploads)
	}
}

func TestTransferAlreadyComplete(t *testing.T) {
	store := newFakeStore()
	m := fastManager(store, 1024)

	local := writeTestFile(t, 10*1024) // 10 chunks
	for i := 0; i < 9; i++ {           // 90% present
		store.objects[chunkName("staging/done.geojson", i)] = []byte{0}
	}

	if err := m.Transfer(context.Background(), local, "staging/done.geojson"); err != nil {
		t.Fatal(err)
	}
	if len(store.uploads) != 0 {
		t.Errorf("already-complete transfer uploaded %v", store.uploads)
	}
}

func TestTransferRetriesThenSucceeds(t *testing.T) {
	store := newFakeStore()
	m := fastManager(store, 1024)
	m.MaxRetries = 3

	local := writeTestFile(t, 1024)
	store.failures["staging/flaky.geojson.part0000"] = 2 // fails twice, then works

	if err := m.Transfer(context.Background(), local, "staging/flaky.geojson"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.objects["staging/flaky.geojson.part0000"]; !ok {
		t.Error("chunk not stored after retries")
	}
}

func TestTransferExhaustedRetriesNamesChunk(t *testing.T) {
	store := newFakeStore()
	m := fastManager(store, 1024)
	m.MaxRetries = 2

	local := writeTestFile(t, 3*1024)
	store.failures["staging/dead.geojson.part0001"] = 10

	err := m.Transfer(context.Background(), local, "staging/dead.geojson")
	if err == nil {
		t.Fatal("exhausted retries should fail the transfer")
	}
	if !strings.Contains(err.Error(), "chunk 1 of 3") {
		t.Errorf("error should name the chunk and total: %v", err)
	}
}

func TestAssembleRoundTrip(t *testing.T) {
	store := newFakeStore()
	m := fastManager(store, 1024)

	local := writeTestFile(t, 2500)
	want, _ := os.ReadFile(local)

	if err := m.Transfer(context.Background(), local, "staging/rt.geojson"); err != nil {
		t.Fatal(err)
	}

	got, err := m.Assemble(context.Background(), "staging/rt.geojson")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("assembled %d bytes, want %d, content mismatch", len(got), len(want))
	}
}
