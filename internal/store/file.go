package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/kinship/internal/models"
)

// treeFileExts are tried in order when resolving a tree id to a file.
var treeFileExts = []string{".yaml", ".yml", ".json"}

// FileStore reads family trees from <dir>/<treeID>.yaml (or .yml, .json).
//
// Files use the YAML field names of models.TreeData; JSON files are read as
// YAML and use the same names.
type FileStore struct {
	dir string
	log *logrus.Logger
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string, log *logrus.Logger) *FileStore {
	return &FileStore{dir: dir, log: log}
}

// LoadTree reads and decodes the file for treeID.
func (s *FileStore) LoadTree(ctx context.Context, treeID string) (*models.TreeData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if treeID == "" || treeID != filepath.Base(treeID) || strings.HasPrefix(treeID, ".") {
		return nil, fmt.Errorf("invalid tree ID %q", treeID)
	}

	for _, ext := range treeFileExts {
		path := filepath.Join(s.dir, treeID+ext)

		data, err := ReadTreeFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, err
		}

		if data.TreeID == "" {
			data.TreeID = treeID
		}

		s.log.WithFields(logrus.Fields{
			"tree_id":       treeID,
			"path":          path,
			"persons":       len(data.Persons),
			"relationships": len(data.Relationships),
		}).Debug("store.load_tree")

		return data, nil
	}

	return nil, fmt.Errorf("%w: %s in %s", models.ErrTreeNotFound, treeID, s.dir)
}

// ReadTreeFile decodes one tree file. A missing file reports fs.ErrNotExist.
func ReadTreeFile(path string) (*models.TreeData, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator.
	if err != nil {
		return nil, fmt.Errorf("reading tree file: %w", err)
	}

	data, err := DecodeTree(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return data, nil
}

// TreeIDFromPath returns the tree id a FileStore would serve path under.
func TreeIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DecodeTree decodes a YAML (or JSON) tree document. Unknown fields are errors.
func DecodeTree(r io.Reader) (*models.TreeData, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var data models.TreeData
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty tree document")
		}

		return nil, fmt.Errorf("decoding tree: %w", err)
	}

	return &data, nil
}
