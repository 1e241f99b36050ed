package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest names for a run directory.
const (
	ManifestJSON = "_manifest.json"
	ManifestYAML = "_manifest.yaml"
)

// Manifest describes the files written for one run.
type Manifest struct {
	RunID     string              `json:"run_id" yaml:"run_id"`
	Files     map[string]FileInfo `json:"files" yaml:"files"`
	CreatedAt time.Time           `json:"created_at" yaml:"created_at"`
}

// FileInfo describes a single exported file.
type FileInfo struct {
	Table    string `json:"table" yaml:"table"`
	Format   string `json:"format" yaml:"format"`
	Key      string `json:"key" yaml:"key"`
	Checksum string `json:"checksum" yaml:"checksum"` // sha256, hex
	RowCount int64  `json:"row_count" yaml:"row_count"`
	ByteSize int64  `json:"byte_size" yaml:"byte_size"`
}

func newFileInfo(table, format, key string, rows int, data []byte) FileInfo {
	sum := sha256.Sum256(data)
	return FileInfo{
		Table:    table,
		Format:   format,
		Key:      key,
		Checksum: hex.EncodeToString(sum[:]),
		RowCount: int64(rows),
		ByteSize: int64(len(data)),
	}
}

func (m *Manifest) encodeJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	return data, eris.Wrap(err, "export: marshal manifest json")
}

func (m *Manifest) encodeYAML() ([]byte, error) {
	data, err := yaml.Marshal(m)
	return data, eris.Wrap(err, "export: marshal manifest yaml")
}
