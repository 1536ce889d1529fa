package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/personetl/internal/core"
)

// WriteDocuments serializes docs as an indented JSON array at path.
// The file is written to a temp sibling and renamed into place, so a
// failed write never leaves a truncated artifact. An empty batch is "[]".
func WriteDocuments(path string, docs []core.PersonDocument) error {
	if docs == nil {
		docs = []core.PersonDocument{}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create output: %v", core.ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode output: %v", core.ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync output: %v", core.ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close output: %v", core.ErrWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: move output into place: %v", core.ErrWrite, err)
	}
	return nil
}

// ReadDocuments loads a documents artifact.
// Accepts a JSON array or a single JSON object.
func ReadDocuments(path string) ([]core.PersonDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRead, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", core.ErrRead, path)
	}

	switch data[0] {
	case '[':
		var docs []core.PersonDocument
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", core.ErrRead, path, err)
		}
		return docs, nil
	case '{':
		var doc core.PersonDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", core.ErrRead, path, err)
		}
		return []core.PersonDocument{doc}, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a JSON array or object", core.ErrRead, path)
	}
}
