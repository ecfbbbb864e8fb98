package insight

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// ModelSpec describes one selectable generation tier: a stable key the user
// picks, a display name, a flat price, and the ordered list of provider model
// ids to try. Earlier ids are preferred; later ids are fallbacks.
type ModelSpec struct {
	Key      string   `yaml:"key"`
	Name     string   `yaml:"name"`
	Price    string   `yaml:"price"`
	ModelIds []string `yaml:"model_ids"`
}

// PriceAmount parses the spec's price. Validated at load time, so this never
// fails on a catalog that came through LoadCatalog.
func (m ModelSpec) PriceAmount() decimal.Decimal {
	return decimal.RequireFromString(m.Price)
}

type catalogFile struct {
	Default string      `yaml:"default"`
	Models  []ModelSpec `yaml:"models"`
}

// Catalog is the set of selectable models, loaded once at startup.
type Catalog struct {
	defaultKey string
	specs      map[string]ModelSpec
}

// LoadCatalog reads the model catalog from a yaml file.
func LoadCatalog(modelsFile string) (*Catalog, error) {
	var modelsPath string
	if filepath.IsAbs(modelsFile) {
		modelsPath = modelsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		modelsPath = filepath.Join(wd, modelsFile)
	}

	data, err := os.ReadFile(modelsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", modelsFile, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", modelsFile, err)
	}

	if len(file.Models) == 0 {
		return nil, fmt.Errorf("no models configured in %s", modelsFile)
	}

	specs := make(map[string]ModelSpec, len(file.Models))
	for i, spec := range file.Models {
		if spec.Key == "" {
			return nil, fmt.Errorf("model at index %d missing key", i)
		}
		if spec.Name == "" {
			return nil, fmt.Errorf("model %s missing name", spec.Key)
		}
		if len(spec.ModelIds) == 0 {
			return nil, fmt.Errorf("model %s has no model ids", spec.Key)
		}
		if _, err := decimal.NewFromString(spec.Price); err != nil {
			return nil, fmt.Errorf("model %s has invalid price %q: %w", spec.Key, spec.Price, err)
		}
		specs[spec.Key] = spec
	}

	defaultKey := file.Default
	if defaultKey == "" {
		defaultKey = file.Models[0].Key
	}
	if _, ok := specs[defaultKey]; !ok {
		return nil, fmt.Errorf("default model %s not in catalog", defaultKey)
	}

	return &Catalog{defaultKey: defaultKey, specs: specs}, nil
}

// Resolve returns the spec for a model key. An empty or unknown key resolves
// to the default model rather than failing, so a stale client selection still
// produces an answer.
func (c *Catalog) Resolve(key string) ModelSpec {
	if spec, ok := c.specs[key]; ok {
		return spec
	}
	return c.specs[c.defaultKey]
}

// Known reports whether the key names a catalog entry.
func (c *Catalog) Known(key string) bool {
	_, ok := c.specs[key]
	return ok
}

// DefaultKey returns the configured default model key.
func (c *Catalog) DefaultKey() string {
	return c.defaultKey
}

// List returns all specs ordered by key for stable API output.
func (c *Catalog) List() []ModelSpec {
	specs := make([]ModelSpec, 0, len(c.specs))
	for _, spec := range c.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Key < specs[j].Key })
	return specs
}
