package schema

import (
	"fmt"
)

// Feature groups as presented by the input form.
const (
	GroupVitalSigns = "Vital Signs"
	GroupLabTests   = "Laboratory Tests"
	GroupScores     = "Scoring Systems"
	GroupTreatment  = "Treatment Measures"
)

// DefaultTarget is the label column the classifier was trained against.
const DefaultTarget = "SEPSIS_PI"

// Spec describes one clinical input: its display metadata, documented valid
// range and the form default.
type Spec struct {
	Name    string  `json:"name" yaml:"name"`
	Label   string  `json:"label" yaml:"label"`
	Unit    string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Group   string  `json:"group" yaml:"group"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Default float64 `json:"default" yaml:"default"`
	Binary  bool    `json:"binary,omitempty" yaml:"binary,omitempty"`
}

// Training column order. Every row handed to the classifier or the attribution
// engine must follow it.
var trainingOrder = []string{
	"ANION_GAP", "BALANCE", "BS", "BUN", "CHLORIDE", "CR", "CRRT",
	"GCS", "HGB", "INRPT", "MV", "NBPS", "NOR", "OASIS", "RR",
	"SAPSII", "SODIUM", "SOFA", "T", "WBC",
}

var catalog = map[string]Spec{
	"GCS":       {Name: "GCS", Label: "Glasgow Coma Scale", Group: GroupVitalSigns, Min: 3, Max: 15, Default: 15},
	"RR":        {Name: "RR", Label: "Respiratory Rate", Unit: "/min", Group: GroupVitalSigns, Min: 0, Max: 60, Default: 20},
	"T":         {Name: "T", Label: "Temperature", Unit: "°C", Group: GroupVitalSigns, Min: 30, Max: 45, Default: 37},
	"NBPS":      {Name: "NBPS", Label: "Systolic Blood Pressure", Unit: "mmHg", Group: GroupVitalSigns, Min: 0, Max: 300, Default: 120},
	"WBC":       {Name: "WBC", Label: "White Blood Cell Count", Unit: "×10⁹/L", Group: GroupLabTests, Min: 0, Max: 100, Default: 10},
	"HGB":       {Name: "HGB", Label: "Hemoglobin", Unit: "g/dL", Group: GroupLabTests, Min: 0, Max: 30, Default: 12},
	"ANION_GAP": {Name: "ANION_GAP", Label: "Anion Gap", Unit: "mEq/L", Group: GroupLabTests, Min: 0, Max: 50, Default: 12},
	"CHLORIDE":  {Name: "CHLORIDE", Label: "Chloride", Unit: "mEq/L", Group: GroupLabTests, Min: 0, Max: 200, Default: 105},
	"SODIUM":    {Name: "SODIUM", Label: "Sodium", Unit: "mEq/L", Group: GroupLabTests, Min: 0, Max: 200, Default: 140},
	"BUN":       {Name: "BUN", Label: "Blood Urea Nitrogen", Unit: "mg/dL", Group: GroupLabTests, Min: 0, Max: 200, Default: 20},
	"CR":        {Name: "CR", Label: "Creatinine", Unit: "mg/dL", Group: GroupLabTests, Min: 0, Max: 20, Default: 1},
	"INRPT":     {Name: "INRPT", Label: "International Normalized Ratio", Group: GroupLabTests, Min: 0.5, Max: 10, Default: 1},
	"BS":        {Name: "BS", Label: "Blood Sugar", Unit: "mg/dL", Group: GroupLabTests, Min: 0, Max: 500, Default: 100},
	"SOFA":      {Name: "SOFA", Label: "Sequential Organ Failure Assessment", Group: GroupScores, Min: 0, Max: 24, Default: 0},
	"SAPSII":    {Name: "SAPSII", Label: "Simplified Acute Physiology Score II", Group: GroupScores, Min: 0, Max: 200, Default: 30},
	"OASIS":     {Name: "OASIS", Label: "Oxford Acute Severity of Illness Score", Group: GroupScores, Min: 0, Max: 100, Default: 20},
	"BALANCE":   {Name: "BALANCE", Label: "Fluid Balance", Unit: "mL", Group: GroupTreatment, Min: -50000, Max: 50000, Default: 0},
	"MV":        {Name: "MV", Label: "Mechanical Ventilation", Group: GroupTreatment, Min: 0, Max: 1, Default: 0, Binary: true},
	"CRRT":      {Name: "CRRT", Label: "Continuous Renal Replacement Therapy", Group: GroupTreatment, Min: 0, Max: 1, Default: 0, Binary: true},
	"NOR":       {Name: "NOR", Label: "Norepinephrine", Group: GroupTreatment, Min: 0, Max: 1, Default: 0, Binary: true},
}

// Schema is the ordered list of feature names recorded at training time plus
// the target label. It is immutable after construction.
type Schema struct {
	names  []string
	index  map[string]int
	target string
	specs  map[string]Spec
}

// New builds a schema from the training-time column order.
func New(featureCols []string, target string) (*Schema, error) {
	if len(featureCols) == 0 {
		return nil, fmt.Errorf("schema: no feature columns")
	}

	index := make(map[string]int, len(featureCols))
	for i, name := range featureCols {
		if name == "" {
			return nil, fmt.Errorf("schema: empty feature name at position %d", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("schema: duplicate feature name %q", name)
		}
		index[name] = i
	}

	return &Schema{
		names:  append([]string(nil), featureCols...),
		index:  index,
		target: target,
	}, nil
}

// NewWithSpecs builds a schema whose order and metadata both come from specs,
// as loaded from a feature_info artifact.
func NewWithSpecs(specs []Spec, target string) (*Schema, error) {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}

	s, err := New(names, target)
	if err != nil {
		return nil, err
	}

	s.specs = make(map[string]Spec, len(specs))
	for _, spec := range specs {
		if spec.Label == "" {
			spec.Label = spec.Name
		}
		if spec.Min > spec.Max {
			return nil, fmt.Errorf("schema: %s has min %g above max %g", spec.Name, spec.Min, spec.Max)
		}
		s.specs[spec.Name] = spec
	}
	return s, nil
}

// Default returns the 20-feature sepsis schema in training order.
func Default() *Schema {
	s, err := New(trainingOrder, DefaultTarget)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the feature names in schema order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of features.
func (s *Schema) Len() int { return len(s.names) }

// Target returns the training label name.
func (s *Schema) Target() string { return s.target }

// Index returns the position of name in schema order.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Spec returns metadata for a feature. Features unknown to the catalog get a
// bare spec with only the name and an unbounded range.
func (s *Schema) Spec(name string) (Spec, bool) {
	if _, ok := s.index[name]; !ok {
		return Spec{}, false
	}
	if spec, ok := s.specs[name]; ok {
		return spec, true
	}
	if spec, ok := catalog[name]; ok {
		return spec, true
	}
	return Spec{Name: name, Label: name}, true
}

// Specs returns metadata for every feature in schema order.
func (s *Schema) Specs() []Spec {
	specs := make([]Spec, 0, len(s.names))
	for _, name := range s.names {
		spec, _ := s.Spec(name)
		specs = append(specs, spec)
	}
	return specs
}

// Defaults returns the form default for every feature of the schema.
func (s *Schema) Defaults() map[string]float64 {
	out := make(map[string]float64, len(s.names))
	for _, name := range s.names {
		spec, _ := s.Spec(name)
		out[name] = spec.Default
	}
	return out
}
