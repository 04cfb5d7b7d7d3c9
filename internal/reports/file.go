package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soltixdb/brutlag/internal/compression"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/utils"
)

// FileStore writes one JSON document per report under a directory,
// compressed with the configured algorithm. Reports written with a different
// algorithm stay readable.
type FileStore struct {
	dir        string
	compressor compression.Compressor
	logger     *logging.Logger
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, compressor compression.Compressor, logger *logging.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	if compressor == nil {
		compressor = &compression.NoneCompressor{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileStore{dir: dir, compressor: compressor, logger: logger}, nil
}

func (s *FileStore) path(id string, algo compression.Algorithm) string {
	return filepath.Join(s.dir, id+utils.ReportFileExt+algo.Extension())
}

// Save writes r atomically through a temporary file
func (s *FileStore) Save(ctx context.Context, r *Report) error {
	if err := ValidateID(r.ID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	payload, err := s.compressor.Compress(data)
	if err != nil {
		return err
	}

	target := s.path(r.ID, s.compressor.Algorithm())
	tmp, err := os.CreateTemp(s.dir, r.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}

	s.logger.Debug("Report saved", "id", r.ID, "path", target,
		"bytes", len(payload), "raw_bytes", len(data), "compression", s.compressor.Algorithm().String())
	return nil
}

// Get reads a report by ID
func (s *FileStore) Get(ctx context.Context, id string) (*Report, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	for _, algo := range s.lookupOrder() {
		payload, err := os.ReadFile(s.path(id, algo))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read report: %w", err)
		}
		return s.decode(payload, algo)
	}
	return nil, ErrNotFound
}

// List reads every report in the directory and returns their summaries
func (s *FileStore) List(ctx context.Context, limit int) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	seen := make(map[string]bool)
	summaries := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, ok := reportID(e.Name())
		if e.IsDir() || !ok || seen[id] {
			continue
		}
		seen[id] = true

		r, err := s.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Skipping unreadable report", "file", e.Name(), "error", err)
			continue
		}
		summaries = append(summaries, r.Summary)
	}

	sortSummaries(summaries)
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}

// lookupOrder tries the configured algorithm first
func (s *FileStore) lookupOrder() []compression.Algorithm {
	order := []compression.Algorithm{s.compressor.Algorithm()}
	for _, a := range []compression.Algorithm{compression.None, compression.Snappy, compression.LZ4, compression.Zstd} {
		if a != order[0] {
			order = append(order, a)
		}
	}
	return order
}

func (s *FileStore) decode(payload []byte, algo compression.Algorithm) (*Report, error) {
	c := s.compressor
	if algo != c.Algorithm() {
		var err error
		if c, err = compression.GetCompressor(algo); err != nil {
			return nil, err
		}
	}
	data, err := c.Decompress(payload)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// reportID extracts the ID from "<id>.json[.ext]"
func reportID(name string) (string, bool) {
	i := strings.Index(name, utils.ReportFileExt)
	if i <= 0 {
		return "", false
	}
	id := name[:i]
	rest := name[i+len(utils.ReportFileExt):]
	switch rest {
	case "", ".sz", ".lz4", ".zst":
	default:
		return "", false
	}
	return id, ValidateID(id) == nil
}
