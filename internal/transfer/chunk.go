package transfer

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"time"
)

// DefaultChunkSize keeps individual uploads small enough to retry
// cheaply over flaky links.
const DefaultChunkSize int64 = 20 * 1024 * 1024 // 20 MiB

// resumeThreshold: when at least this share of expected chunks already
// exists at the destination, the transfer is treated as complete.
const resumeThreshold = 0.9

// ChunkManager stages large files into object storage chunk by chunk.
type ChunkManager struct {
	store ObjectStore
	// ChunkSize in bytes; zero uses the default.
	ChunkSize int64
	// MaxRetries per chunk before the whole transfer fails.
	MaxRetries int
	// RetryDelay is the first backoff step; it doubles per attempt.
	RetryDelay time.Duration
	// InterChunkDelay is the pause after each successful upload, so a
	// big file does not hammer the destination.
	InterChunkDelay time.Duration
}

// NewChunkManager creates a manager with the default tuning.
func NewChunkManager(store ObjectStore) *ChunkManager {
	return &ChunkManager{
		store:           store,
		ChunkSize:       DefaultChunkSize,
		MaxRetries:      3,
		RetryDelay:      time.Second,
		InterChunkDelay: 200 * time.Millisecond,
	}
}

// chunkName derives the object name for one chunk index.
func chunkName(destPath string, index int) string {
	return fmt.Sprintf("%s.part%04d", destPath, index)
}

// Transfer uploads localPath to destPath in fixed-size chunks. Chunks
// already present at the destination are skipped, so an interrupted
// transfer resumes where it stopped; when nearly all chunks exist the
// transfer returns immediately as already complete.
func (m *ChunkManager) Transfer(ctx context.Context, localPath, destPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	chunkSize := m.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	total := int((info.Size() + chunkSize - 1) / chunkSize)
	if total == 0 {
		total = 1 // empty file still produces one (empty) chunk
	}

	existing, err := m.existingChunks(ctx, destPath, total)
	if err != nil {
		return err
	}
	if len(existing) > 0 && float64(len(existing)) >= resumeThreshold*float64(total) {
		log.Printf("Transfer: %s: %d/%d chunks already present, treating as complete",
			destPath, len(existing), total)
		return nil
	}

	buf := make([]byte, chunkSize)
	for index := 0; index < total; index++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return fmt.Errorf("read chunk %d: %w", index, err)
		}

		if existing[index] {
			continue
		}

		if err := m.uploadChunk(ctx, chunkName(destPath, index), buf[:n]); err != nil {
			return fmt.Errorf("chunk %d of %d: %w", index, total, err)
		}

		if m.InterChunkDelay > 0 && index < total-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.InterChunkDelay):
			}
		}
	}

	return nil
}

// existingChunks lists the destination directory and reports which
// expected chunk indexes are already uploaded.
func (m *ChunkManager) existingChunks(ctx context.Context, destPath string, total int) (map[int]bool, error) {
	names, err := m.store.List(ctx, path.Dir(destPath))
	if err != nil {
		return nil, fmt.Errorf("list destination %s: %w", path.Dir(destPath), err)
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	existing := make(map[int]bool)
	for index := 0; index < total; index++ {
		if present[chunkName(destPath, index)] {
			existing[index] = true
		}
	}
	return existing, nil
}

// uploadChunk retries with exponential backoff (1s, 2s, 4s) before
// giving up.
func (m *ChunkManager) uploadChunk(ctx context.Context, name string, data []byte) error {
	retries := m.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	delay := m.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	var err error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			log.Printf("Transfer: retrying %s (attempt %d) after %s", name, attempt+1, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err = m.store.Upload(ctx, name, data); err == nil {
			return nil
		}
	}
	return fmt.Errorf("upload failed after %d attempts: %w", retries, err)
}

// Assemble downloads all chunks of destPath and concatenates them, used
// by the background job that feeds staged uploads into ingestion.
func (m *ChunkManager) Assemble(ctx context.Context, destPath string) ([]byte, error) {
	names, err := m.store.List(ctx, path.Dir(destPath))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path.Dir(destPath), err)
	}

	var out []byte
	for index := 0; ; index++ {
		name := chunkName(destPath, index)
		found := false
		for _, n := range names {
			if n == name {
				found = true
				break
			}
		}
		if !found {
			if index == 0 {
				return nil, fmt.Errorf("no chunks found for %s", destPath)
			}
			break
		}

		data, err := m.store.Download(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("assemble chunk %d: %w", index, err)
		}
		out = append(out, data...)
	}
	return out, nil
}
