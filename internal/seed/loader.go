package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Real-Dev-Squad/website-backend/internal/rollout"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

type YAMLRoleBased struct {
	Roles  []string `yaml:"roles"`
	Active bool     `yaml:"active"`
}

type YAMLPercentage struct {
	Value  int  `yaml:"value"`
	Active bool `yaml:"active"`
}

type YAMLFlagConfig struct {
	Enabled    bool           `yaml:"enabled"`
	RoleBased  YAMLRoleBased  `yaml:"role_based"`
	Percentage YAMLPercentage `yaml:"percentage"`
}

type YAMLFlag struct {
	Name        string          `yaml:"name"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Config      *YAMLFlagConfig `yaml:"config"`
}

type YAMLStock struct {
	Name     string `yaml:"name"`
	Quantity int64  `yaml:"quantity"`
	Price    int64  `yaml:"price"`
}

type YAMLData struct {
	FeatureFlags []YAMLFlag  `yaml:"feature_flags"`
	Stocks       []YAMLStock `yaml:"stocks"`
}

// Data is a validated seed file.
type Data struct {
	Flags  []types.FeatureFlag
	Stocks []types.StockCreateDto
}

// Store is the part of the database the seeder writes to.
type Store interface {
	UpsertFeatureFlag(ctx context.Context, flag types.FeatureFlag) error
	UpsertStock(ctx context.Context, dto types.StockCreateDto) error
}

func LoadFile(filePath string) (*Data, error) {
	b, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Data, error) {
	var yamlData YAMLData
	if err := yaml.Unmarshal(b, &yamlData); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	data := &Data{
		Flags:  make([]types.FeatureFlag, 0, len(yamlData.FeatureFlags)),
		Stocks: make([]types.StockCreateDto, 0, len(yamlData.Stocks)),
	}
	seen := make(map[string]bool)
	for _, yf := range yamlData.FeatureFlags {
		name := strings.ToLower(strings.TrimSpace(yf.Name))
		if name == "" {
			return nil, fmt.Errorf("feature flag without a name")
		}
		if types.IsReservedFlagName(name) {
			return nil, fmt.Errorf("feature flag name %s is reserved", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate feature flag %s", name)
		}
		seen[name] = true
		if yf.Config == nil {
			return nil, fmt.Errorf("feature flag %s: %w", name, rollout.ErrMissingConfiguration)
		}

		cfg := &rollout.Config{
			Enabled: yf.Config.Enabled,
			RoleBased: rollout.RoleBasedConfig{
				Roles:  yf.Config.RoleBased.Roles,
				Active: yf.Config.RoleBased.Active,
			},
			Percentage: rollout.PercentageConfig{
				Value:  yf.Config.Percentage.Value,
				Active: yf.Config.Percentage.Active,
			},
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("feature flag %s: %w", name, err)
		}
		data.Flags = append(data.Flags, types.FeatureFlag{
			Name:        name,
			Title:       yf.Title,
			Description: yf.Description,
			Config:      cfg,
		})
	}

	for _, ys := range yamlData.Stocks {
		if ys.Name == "" || ys.Price <= 0 || ys.Quantity < 0 {
			return nil, fmt.Errorf("invalid stock %q", ys.Name)
		}
		data.Stocks = append(data.Stocks, types.StockCreateDto{
			Name:     ys.Name,
			Quantity: ys.Quantity,
			Price:    ys.Price,
		})
	}
	return data, nil
}

// Apply upserts every flag and stock. Existing rows keep their rollout config
// and market state.
func (d *Data) Apply(ctx context.Context, store Store, logger *logrus.Logger) error {
	for _, flag := range d.Flags {
		if err := store.UpsertFeatureFlag(ctx, flag); err != nil {
			return fmt.Errorf("failed to seed feature flag %s: %w", flag.Name, err)
		}
	}
	for _, stock := range d.Stocks {
		if err := store.UpsertStock(ctx, stock); err != nil {
			return fmt.Errorf("failed to seed stock %s: %w", stock.Name, err)
		}
	}
	logger.WithFields(logrus.Fields{
		"feature_flags": len(d.Flags),
		"stocks":        len(d.Stocks),
	}).Info("seed data applied")
	return nil
}
