package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/model"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
)

// Artifact file names inside the artifacts directory.
const (
	ModelFile           = "model.json"
	ExplainerFile       = "explainer.json"
	FeatureInfoFile     = "feature_info.json"
	FeatureInfoYAMLFile = "feature_info.yaml"
)

// FeatureInfo is the feature-schema artifact written by the training job.
// Features optionally carries display metadata and ranges per column.
type FeatureInfo struct {
	FeatureCols []string      `json:"feature_cols" yaml:"feature_cols"`
	TargetCol   string        `json:"target_col" yaml:"target_col"`
	Features    []schema.Spec `json:"features,omitempty" yaml:"features,omitempty"`
}

// Bundle is everything loaded from an artifacts directory. Engine is nil when
// the explainer could not be loaded; EngineErr then says why.
type Bundle struct {
	Schema     *schema.Schema
	Classifier model.Classifier
	Engine     attribution.Engine
	EngineErr  error
}

// Store reads and writes the serving artifacts in one directory
type Store struct {
	dataDir string
}

// NewStore creates a new artifact store
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) Dir() string { return s.dataDir }

// HasModel reports whether a model artifact is present in the store.
func (s *Store) HasModel() bool {
	_, err := os.Stat(filepath.Join(s.dataDir, ModelFile))
	return err == nil
}

// Load reads schema, model and explainer. A missing or incompatible explainer
// does not fail the load since predictions remain available without it.
func (s *Store) Load() (*Bundle, error) {
	sch, err := s.LoadSchema()
	if err != nil {
		return nil, err
	}

	ma, err := s.LoadModel()
	if err != nil {
		return nil, err
	}
	if len(ma.FeatureNames) > 0 && !slices.Equal(ma.FeatureNames, sch.Names()) {
		return nil, apperrors.NewConfigurationError("model feature order does not match feature_info", nil)
	}

	clf, err := model.FromArtifact(*ma)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid model artifact", err)
	}

	b := &Bundle{Schema: sch, Classifier: clf}

	ea, err := s.LoadExplainer()
	if err != nil {
		b.EngineErr = err
		return b, nil
	}
	b.Engine, b.EngineErr = attribution.FromArtifact(*ea, clf)
	return b, nil
}

// LoadFeatureInfo reads feature_info.json, falling back to feature_info.yaml
func (s *Store) LoadFeatureInfo() (*FeatureInfo, error) {
	var info FeatureInfo

	err := s.readJSON(FeatureInfoFile, &info)
	if errors.Is(err, os.ErrNotExist) {
		err = s.readYAML(FeatureInfoYAMLFile, &info)
	}
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to load feature info", err)
	}
	return &info, nil
}

// LoadSchema builds the feature schema from the feature info artifact
func (s *Store) LoadSchema() (*schema.Schema, error) {
	info, err := s.LoadFeatureInfo()
	if err != nil {
		return nil, err
	}

	var sch *schema.Schema
	if len(info.Features) > 0 {
		names := make([]string, len(info.Features))
		for i, f := range info.Features {
			names[i] = f.Name
		}
		if len(info.FeatureCols) > 0 && !slices.Equal(names, info.FeatureCols) {
			return nil, apperrors.NewConfigurationError("feature metadata order does not match feature_cols", nil)
		}
		sch, err = schema.NewWithSpecs(info.Features, info.TargetCol)
	} else {
		sch, err = schema.New(info.FeatureCols, info.TargetCol)
	}
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid feature info", err)
	}
	return sch, nil
}

// LoadModel reads the classifier artifact
func (s *Store) LoadModel() (*model.Artifact, error) {
	var a model.Artifact
	if err := s.readJSON(ModelFile, &a); err != nil {
		return nil, apperrors.NewConfigurationError("failed to load model", err)
	}
	return &a, nil
}

// LoadExplainer reads the explainer artifact
func (s *Store) LoadExplainer() (*attribution.Artifact, error) {
	var a attribution.Artifact
	if err := s.readJSON(ExplainerFile, &a); err != nil {
		return nil, fmt.Errorf("failed to load explainer: %w", err)
	}
	return &a, nil
}

func (s *Store) SaveFeatureInfo(info *FeatureInfo) error { return s.writeJSON(FeatureInfoFile, info) }
func (s *Store) SaveModel(a *model.Artifact) error       { return s.writeJSON(ModelFile, a) }
func (s *Store) SaveExplainer(a *attribution.Artifact) error {
	return s.writeJSON(ExplainerFile, a)
}

func (s *Store) readJSON(name string, v any) error {
	file, err := os.Open(filepath.Join(s.dataDir, name))
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) readYAML(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dataDir, name))
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	file, err := os.Create(filepath.Join(s.dataDir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return nil
}
