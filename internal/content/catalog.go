package content

import (
	"bytes"
	_ "embed"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the built-in content shipped with the service.
type Catalog struct {
	Quizzes []domain.QuizDefinition   `yaml:"quizzes"`
	Puzzles []domain.PuzzleDefinition `yaml:"puzzles"`
}

// DefaultCatalog returns the embedded sample catalog.
func DefaultCatalog() (*Catalog, error) {
	return DecodeCatalog(bytes.NewReader(defaultCatalog))
}

// LoadCatalog reads a catalog file. An empty path loads the embedded catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return DecodeCatalog(f)
}

// DecodeCatalog decodes and validates a YAML catalog. Unknown fields are rejected.
func DecodeCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	ids := make(map[string]struct{})
	unique := func(id string) error {
		if id == "" {
			return errors.InvalidContent("id is required")
		}
		if _, ok := ids[id]; ok {
			return errors.InvalidContent("duplicate id %s", id)
		}
		ids[id] = struct{}{}
		return nil
	}

	for i := range c.Quizzes {
		q := &c.Quizzes[i]
		if err := unique(q.ID); err != nil {
			return nil, fmt.Errorf("quiz %d: %w", i, err)
		}
		if err := ValidateQuiz(q); err != nil {
			return nil, fmt.Errorf("quiz %s: %w", q.ID, err)
		}
	}
	for i := range c.Puzzles {
		p := &c.Puzzles[i]
		if err := unique(p.ID); err != nil {
			return nil, fmt.Errorf("puzzle %d: %w", i, err)
		}
		if err := ValidatePuzzle(p); err != nil {
			return nil, fmt.Errorf("puzzle %s: %w", p.ID, err)
		}
	}

	return &c, nil
}
