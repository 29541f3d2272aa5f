// Package parameter stores which water-quality parameters the lab measures.
package parameter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jarlab/jarlab/internal/jsonfile"
)

const FileName = "parameters.json"

// Parameter is a measurable raw-water quantity.
type Parameter string

const (
	Turbidity        Parameter = "Turbidity"
	Color            Parameter = "Color"
	PH               Parameter = "pH"
	Conductivity     Parameter = "Conductivity"
	SuspendedSolids  Parameter = "Suspended solids"
	UV254            Parameter = "UV254"
	ResidualAluminum Parameter = "Residual aluminum"
	ResidualIron     Parameter = "Residual iron"
	COD              Parameter = "COD"
)

// All lists every parameter in display order.
var All = []Parameter{Turbidity, Color, PH, Conductivity, SuspendedSolids, UV254, ResidualAluminum, ResidualIron, COD}

// Parse matches name against All, ignoring case and surrounding space.
func Parse(name string) (Parameter, error) {
	name = strings.TrimSpace(name)
	for _, p := range All {
		if strings.EqualFold(string(p), name) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown parameter %q", name)
}

// Unit is the display unit of the parameter's raw-water value.
func (p Parameter) Unit() string {
	switch p {
	case Turbidity:
		return "NTU"
	case Color:
		return "Pt-Co"
	case Conductivity:
		return "µS/cm"
	case SuspendedSolids, ResidualAluminum, ResidualIron, COD:
		return "mg/L"
	case UV254:
		return "abs"
	}
	return ""
}

// HasInlet reports whether the parameter has a raw-water (inlet) value. The
// residual metals are only measured after treatment.
func (p Parameter) HasInlet() bool {
	return p != ResidualAluminum && p != ResidualIron
}

// Selection is the parameters config file: the universe of parameters and
// the subset currently measured.
type Selection struct {
	Available []Parameter `json:"available"`
	Selected  []Parameter `json:"selected"`
}

// Default measures turbidity, pH and COD.
func Default() Selection {
	return Selection{
		Available: slices.Clone(All),
		Selected:  []Parameter{Turbidity, PH, COD},
	}
}

func (s Selection) Has(p Parameter) bool {
	return slices.Contains(s.Selected, p)
}

// Set replaces the selection, dropping names that are not available and
// keeping the order of Available.
func (s *Selection) Set(selected []Parameter) {
	out := make([]Parameter, 0, len(selected))
	for _, p := range s.Available {
		if slices.Contains(selected, p) {
			out = append(out, p)
		}
	}
	s.Selected = out
}

// FileStore keeps the selection in a JSON file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns the stored selection, or Default with a *jsonfile.LoadError.
func (f *FileStore) Load() (Selection, error) {
	var s Selection
	if err := jsonfile.Read(f.Path, &s); err != nil {
		return Default(), err
	}
	if len(s.Available) == 0 {
		s.Available = slices.Clone(All)
	}
	return s, nil
}

func (f *FileStore) Save(s Selection) error {
	return jsonfile.Write(f.Path, s)
}
