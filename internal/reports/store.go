package reports

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/soltixdb/brutlag/internal/compression"
	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/utils"
)

// Open creates the Store selected by cfg.Backend
func Open(cfg config.ReportsConfig, logger *logging.Logger) (Store, error) {
	compressor, err := compression.ForName(cfg.Compression)
	if err != nil {
		return nil, err
	}

	switch utils.ReportBackend(cfg.Backend) {
	case utils.ReportBackendMemory:
		return NewMemoryStore(), nil
	case "", utils.ReportBackendFile:
		return NewFileStore(cfg.DataDir, compressor, logger)
	case utils.ReportBackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create reports directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, utils.ReportsDBFile), compressor, logger)
	default:
		return nil, fmt.Errorf("unsupported reports backend: %s", cfg.Backend)
	}
}
