package rubric

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Spok95/bqs/internal/models"
)

//go:embed rubric.yaml
var defaultRubric []byte

type document struct {
	Sections []models.RubricSection `yaml:"sections"`
}

// Parse читает описание рубрики из YAML и проверяет его.
func Parse(raw []byte) ([]models.RubricSection, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("rubric yaml: %w", err)
	}
	if len(doc.Sections) == 0 {
		return nil, errors.New("rubric has no sections")
	}
	seen := make(map[string]struct{}, len(doc.Sections))
	for i := range doc.Sections {
		s := &doc.Sections[i]
		s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
		if s.Code == "" {
			return nil, fmt.Errorf("section #%d: empty code", i+1)
		}
		if _, dup := seen[s.Code]; dup {
			return nil, fmt.Errorf("section %s: duplicate code", s.Code)
		}
		seen[s.Code] = struct{}{}
		if s.Weight < 0 || s.Weight > 1 {
			return nil, fmt.Errorf("section %s: weight %.2f out of [0,1]", s.Code, s.Weight)
		}
	}
	sort.SliceStable(doc.Sections, func(i, j int) bool {
		return doc.Sections[i].DisplayOrder < doc.Sections[j].DisplayOrder
	})
	return doc.Sections, nil
}

// Source возвращает YAML рубрики: файл из конфига или встроенный.
func Source(path string) ([]byte, error) {
	if path == "" {
		return defaultRubric, nil
	}
	return os.ReadFile(path)
}

// Registry: кеш рубрики в памяти процесса. Меняется только через Reload.
type Registry struct {
	mu       sync.RWMutex
	sections []models.RubricSection
	byCode   map[string]models.RubricSection
	alias    map[string]string
}

func NewRegistry(sections []models.RubricSection) *Registry {
	r := &Registry{}
	r.Reload(sections)
	return r
}

// Default: реестр по встроенной рубрике. Встроенный YAML валиден всегда.
func Default() *Registry {
	sections, err := Parse(defaultRubric)
	if err != nil {
		panic(err)
	}
	return NewRegistry(sections)
}

func (r *Registry) Reload(sections []models.RubricSection) {
	byCode := make(map[string]models.RubricSection, len(sections))
	alias := make(map[string]string, len(sections)*4)
	for _, s := range sections {
		byCode[s.Code] = s
		alias[normalize(s.Code)] = s.Code
		alias[normalize(s.Name)] = s.Code
		for _, a := range s.Aliases {
			alias[normalize(a)] = s.Code
		}
	}
	cp := make([]models.RubricSection, len(sections))
	copy(cp, sections)

	r.mu.Lock()
	r.sections = cp
	r.byCode = byCode
	r.alias = alias
	r.mu.Unlock()
}

func (r *Registry) Sections() []models.RubricSection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.RubricSection, len(r.sections))
	copy(out, r.sections)
	return out
}

// Canonical переводит короткий код или длинный алиас в короткий код.
func (r *Registry) Canonical(code string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.alias[normalize(code)]
	return c, ok
}

func (r *Registry) Weight(code string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byCode[code]
	return s.Weight, ok
}

// totalWeight: сумма весов всей рубрики (для канонической = 1.00).
func (r *Registry) totalWeight() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var w float64
	for _, s := range r.sections {
		w += s.Weight
	}
	return math.Round(w*100) / 100
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_", "&", "", "/", "_").Replace(s)
}
