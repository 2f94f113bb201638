package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const versionsFileName = "model_versions.json"

// ModelVersion represents a versioned, trained model artifact
type ModelVersion struct {
	Model     string       `json:"model"`
	Version   string       `json:"version"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"created_at"`
	Metrics   ModelMetrics `json:"metrics"`
	IsActive  bool         `json:"is_active"`
}

// ModelMetrics contains the held-out evaluation of a trained model
type ModelMetrics struct {
	Accuracy        float64 `json:"accuracy"`
	Precision       float64 `json:"precision,omitempty"`
	Recall          float64 `json:"recall,omitempty"`
	F1Score         float64 `json:"f1_score,omitempty"`
	TrainingSamples int     `json:"training_samples"`
	TestSamples     int     `json:"test_samples"`
}

// ModelManager handles model versioning and rollback. Versions of every model
// live in one file; activation and rollback are scoped to a model name.
type ModelManager struct {
	mu           sync.RWMutex
	modelsDir    string
	versionsFile string
	versions     []ModelVersion
}

// NewModelManager creates a model manager rooted at modelsDir
func NewModelManager(modelsDir string) (*ModelManager, error) {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}

	mm := &ModelManager{
		modelsDir:    modelsDir,
		versionsFile: filepath.Join(modelsDir, versionsFileName),
		versions:     make([]ModelVersion, 0),
	}

	if err := mm.loadVersions(); err != nil {
		log.Warn().Err(err).Str("file", mm.versionsFile).Msg("Failed to load model versions, starting fresh")
	}

	return mm, nil
}

// AddVersion registers a new artifact for model and makes it the active one
func (mm *ModelManager) AddVersion(model, modelPath string, metrics ModelMetrics) (ModelVersion, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	now := time.Now()
	version := ModelVersion{
		Model:     model,
		Version:   mm.nextVersionLocked(model, now),
		Path:      modelPath,
		CreatedAt: now,
		Metrics:   metrics,
	}

	// newest first
	mm.versions = append([]ModelVersion{version}, mm.versions...)
	sort.SliceStable(mm.versions, func(i, j int) bool {
		return mm.versions[i].CreatedAt.After(mm.versions[j].CreatedAt)
	})

	if err := mm.activateLocked(model, version.Version); err != nil {
		return ModelVersion{}, err
	}
	version.IsActive = true
	return version, mm.saveVersions()
}

// ActivateVersion activates a specific version of model
func (mm *ModelManager) ActivateVersion(model, version string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if err := mm.activateLocked(model, version); err != nil {
		return err
	}
	return mm.saveVersions()
}

// Rollback activates the version registered before the active one
func (mm *ModelManager) Rollback(model string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	var own []int
	currentIdx := -1
	for i, v := range mm.versions {
		if v.Model != model {
			continue
		}
		if v.IsActive {
			currentIdx = len(own)
		}
		own = append(own, i)
	}

	if len(own) < 2 {
		return fmt.Errorf("no previous version of %s available for rollback", model)
	}
	if currentIdx == -1 {
		return fmt.Errorf("no active version of %s found", model)
	}
	if currentIdx+1 >= len(own) {
		return fmt.Errorf("no version of %s older than the active one", model)
	}

	if err := mm.activateLocked(model, mm.versions[own[currentIdx+1]].Version); err != nil {
		return err
	}
	return mm.saveVersions()
}

// GetCurrentVersion returns the active version of model, or nil
func (mm *ModelManager) GetCurrentVersion(model string) *ModelVersion {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	for _, v := range mm.versions {
		if v.Model == model && v.IsActive {
			cp := v
			return &cp
		}
	}
	return nil
}

// ListVersions returns the versions of model, newest first
func (mm *ModelManager) ListVersions(model string) []ModelVersion {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	out := make([]ModelVersion, 0)
	for _, v := range mm.versions {
		if v.Model == model {
			out = append(out, v)
		}
	}
	return out
}

func (mm *ModelManager) activateLocked(model, version string) error {
	found := false
	for i := range mm.versions {
		if mm.versions[i].Model != model {
			continue
		}
		if mm.versions[i].Version == version {
			mm.versions[i].IsActive = true
			found = true
		} else {
			mm.versions[i].IsActive = false
		}
	}
	if !found {
		return fmt.Errorf("version %s of %s not found", version, model)
	}
	return nil
}

func (mm *ModelManager) nextVersionLocked(model string, now time.Time) string {
	base := now.Format("20060102-150405")
	version := base
	for n := 1; mm.hasVersionLocked(model, version); n++ {
		version = fmt.Sprintf("%s.%d", base, n)
	}
	return version
}

func (mm *ModelManager) hasVersionLocked(model, version string) bool {
	for _, v := range mm.versions {
		if v.Model == model && v.Version == version {
			return true
		}
	}
	return false
}

// loadVersions loads model versions from file
func (mm *ModelManager) loadVersions() error {
	data, err := os.ReadFile(mm.versionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return json.Unmarshal(data, &mm.versions)
}

// saveVersions saves model versions to file
func (mm *ModelManager) saveVersions() error {
	data, err := json.MarshalIndent(mm.versions, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(mm.versionsFile, data, 0o600)
}
