package reagent

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jarlab/jarlab/internal/jsonfile"
)

const (
	CoagulantsFile  = "coagulants.json"
	FlocculantsFile = "flocculants.json"
)

// FileStore keeps one reagent list in a JSON file. Every call reads or
// rewrites the whole file.
type FileStore struct {
	Path string
	Kind Kind
}

func NewFileStore(path string, kind Kind) *FileStore {
	return &FileStore{Path: path, Kind: kind}
}

// Load returns the persisted list with the sentinel at index 0. When the
// file is missing or malformed it returns the built-in defaults together with
// a *jsonfile.LoadError, so the list is always usable and the caller decides
// whether the fallback is worth reporting.
func (s *FileStore) Load() ([]Reagent, error) {
	var list []Reagent
	if err := jsonfile.Read(s.Path, &list); err != nil {
		return defaults(s.Kind), err
	}
	if s.Kind == KindFlocculant {
		for i := range list {
			if list[i].State == "" {
				list[i].State = StateLiquid
			}
		}
	}
	return pinSentinel(list, s.Kind), nil
}

// Save overwrites the backing file.
func (s *FileStore) Save(list []Reagent) error {
	return jsonfile.Write(s.Path, pinSentinel(list, s.Kind))
}

// Add appends a new definition.
func (s *FileStore) Add(r Reagent) ([]Reagent, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.IsNone() {
		return nil, ErrSentinel
	}
	if err := s.normalize(&r); err != nil {
		return nil, err
	}
	list, err := s.loadForWrite()
	if err != nil {
		return nil, err
	}
	if _, ok := Find(list, r.Name); ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, r.Name)
	}
	list = append(list, r)
	if err := s.Save(list); err != nil {
		return nil, err
	}
	return list, nil
}

// Update replaces the definition called oldName. r may carry a new name.
func (s *FileStore) Update(oldName string, r Reagent) ([]Reagent, error) {
	r.Name = strings.TrimSpace(r.Name)
	if oldName == NoneName || r.IsNone() {
		return nil, ErrSentinel
	}
	if err := s.normalize(&r); err != nil {
		return nil, err
	}
	list, err := s.loadForWrite()
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range list {
		if list[i].Name == oldName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	if r.Name != oldName {
		if _, ok := Find(list, r.Name); ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, r.Name)
		}
	}
	list[idx] = r
	if err := s.Save(list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete removes the definition called name.
func (s *FileStore) Delete(name string) ([]Reagent, error) {
	if name == NoneName {
		return nil, ErrSentinel
	}
	list, err := s.loadForWrite()
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name == name {
			list = append(list[:i], list[i+1:]...)
			if err := s.Save(list); err != nil {
				return nil, err
			}
			return list, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// loadForWrite is Load for the edit paths. A missing file seeds from the
// defaults, but a corrupt one is left alone so the operator can repair it.
func (s *FileStore) loadForWrite() ([]Reagent, error) {
	list, err := s.Load()
	if jsonfile.IsCorrupt(err) {
		return nil, fmt.Errorf("refusing to overwrite %s: %w", s.Path, err)
	}
	return list, nil
}

func (s *FileStore) normalize(r *Reagent) error {
	if s.Kind == KindCoagulant {
		r.State = ""
	} else if r.State == "" {
		r.State = StateLiquid
	}
	return r.Validate()
}

// Catalog holds the coagulant and flocculant stores of one config directory.
type Catalog struct {
	Coagulants  *FileStore
	Flocculants *FileStore
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{
		Coagulants:  NewFileStore(filepath.Join(dir, CoagulantsFile), KindCoagulant),
		Flocculants: NewFileStore(filepath.Join(dir, FlocculantsFile), KindFlocculant),
	}
}

// Store returns the list store for kind.
func (c *Catalog) Store(kind Kind) *FileStore {
	if kind == KindFlocculant {
		return c.Flocculants
	}
	return c.Coagulants
}

// Lists is a loaded snapshot of both reagent lists.
type Lists struct {
	Coagulants  []Reagent
	Flocculants []Reagent
}

// Load reads both lists. The returned errors are the per-file fallbacks, in
// coagulant, flocculant order, and are nil when the file was used as is.
func (c *Catalog) Load() (Lists, []error) {
	coag, cerr := c.Coagulants.Load()
	floc, ferr := c.Flocculants.Load()
	var errs []error
	if cerr != nil {
		errs = append(errs, cerr)
	}
	if ferr != nil {
		errs = append(errs, ferr)
	}
	return Lists{Coagulants: coag, Flocculants: floc}, errs
}

// Coagulant resolves a coagulant by name, falling back to the sentinel.
func (l Lists) Coagulant(name string) Reagent {
	if r, ok := Find(l.Coagulants, name); ok {
		return r
	}
	return None(KindCoagulant)
}

// Flocculant resolves a flocculant by name, falling back to the sentinel.
func (l Lists) Flocculant(name string) Reagent {
	if r, ok := Find(l.Flocculants, name); ok {
		return r
	}
	return None(KindFlocculant)
}

// ParseKind accepts the CLI and form spellings of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coagulant", "coagulants", "coag":
		return KindCoagulant, nil
	case "flocculant", "flocculants", "floc":
		return KindFlocculant, nil
	}
	return "", fmt.Errorf("unknown reagent kind %q (want coagulant or flocculant)", s)
}
