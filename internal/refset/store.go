package refset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFound is returned when a reference file does not exist.
	ErrNotFound = errors.New("reference file not found")
	// ErrMissingKey is returned when a file lacks the expected top-level key.
	ErrMissingKey = errors.New("key not found")
)

// Fixed top-level keys of the two reference files.
const (
	ClassificationsKey = "classifications"
	ImagesKey          = "images"
)

// Store locates the classifications and images files of a reference set.
// The format of each file follows its extension: .yml/.yaml for YAML,
// anything else for XML.
type Store struct {
	ClassificationsPath string
	ImagesPath          string
}

// Save writes both files, creating parent directories as needed.
func (st Store) Save(s *Set) error {
	labels := labelMatrix(s.labels)
	images := Matrix{Rows: s.Len(), Cols: s.FeatureLen(), Type: TypeFloat32, Data: s.data}
	if s.Len() == 0 {
		images.Cols = 0
		images.Data = []float64{}
	}

	if err := writeMatrix(st.ClassificationsPath, ClassificationsKey, labels); err != nil {
		return fmt.Errorf("unable to write training classifications file: %w", err)
	}
	if err := writeMatrix(st.ImagesPath, ImagesKey, images); err != nil {
		return fmt.Errorf("unable to write training images file: %w", err)
	}
	return nil
}

// Load reads both files. width and height give the glyph size the features
// were produced with; the images matrix must have width*height columns.
func (st Store) Load(width, height int) (*Set, error) {
	lm, err := readMatrix(st.ClassificationsPath, ClassificationsKey)
	if err != nil {
		return nil, fmt.Errorf("unable to open training classifications file: %w", err)
	}
	labels, err := labelsFrom(lm)
	if err != nil {
		return nil, err
	}

	im, err := readMatrix(st.ImagesPath, ImagesKey)
	if err != nil {
		return nil, fmt.Errorf("unable to open training images file: %w", err)
	}

	var features *mat.Dense
	if im.Rows > 0 {
		features = mat.NewDense(im.Rows, im.Cols, im.Data)
	}
	return FromMatrices(labels, features, width, height)
}

// Exists reports whether both files are present.
func (st Store) Exists() bool {
	for _, p := range []string{st.ClassificationsPath, st.ImagesPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

func writeMatrix(path, key string, m Matrix) error {
	if path == "" {
		return fmt.Errorf("no file path set")
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = encodeYAML(key, m)
	} else {
		data, err = encodeXML(key, m)
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readMatrix(path, key string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Matrix{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Matrix{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if isYAML(path) {
		return decodeYAML(data, key)
	}
	return decodeXML(data, key)
}
