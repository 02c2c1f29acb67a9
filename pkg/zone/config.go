package zone

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/util"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

const DefaultConfigDirectory = "data/zones/"
const DefaultTimezone = "Europe/London"

var ErrInvalidConfig = errors.New("invalid zone config")

// Config describes a single zone. The start line is always the edge from vertex 0 to vertex 1,
// the finish line is the edge from FinishIndex to the vertex after it.
type Config struct {
	Identifier  string          `yaml:"identifier" validate:"required"`
	Name        string          `yaml:"name"`
	FinishIndex int             `yaml:"finish_index" validate:"min=1"`
	Timezone    string          `yaml:"timezone"`
	Path        []ctdf.Position `yaml:"path" validate:"min=3"`
}

var configValidator = validator.New()

// Validate checks the config describes usable geometry and fills in defaults
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidConfig, c.Identifier, err)
	}

	if c.FinishIndex >= len(c.Path) {
		return fmt.Errorf("%w %q: finish_index %d out of range for %d vertices", ErrInvalidConfig, c.Identifier, c.FinishIndex, len(c.Path))
	}

	for i, point := range c.Path {
		if point.Latitude < -90 || point.Latitude > 90 || point.Longitude < -180 || point.Longitude > 180 {
			return fmt.Errorf("%w %q: vertex %d %s out of range", ErrInvalidConfig, c.Identifier, i, point)
		}
	}

	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w %q: timezone: %w", ErrInvalidConfig, c.Identifier, err)
	}

	return nil
}

func (c *Config) Location() *time.Location {
	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}

// DecodeConfigs reads every YAML document in r as a zone config
func DecodeConfigs(r io.Reader) ([]Config, error) {
	var configs []Config

	decoder := yaml.NewDecoder(r)
	for {
		var config Config
		err := decoder.Decode(&config)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}

		if err := config.Validate(); err != nil {
			return nil, err
		}

		configs = append(configs, config)
	}

	return configs, nil
}

// LoadConfigs walks directory for .yaml files and loads every zone config found.
// Duplicate identifiers are rejected.
func LoadConfigs(directory string) ([]Config, error) {
	var configs []Config
	seen := map[string]string{}

	err := filepath.Walk(directory,
		func(path string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if fileInfo.IsDir() {
				return nil
			}

			extension := filepath.Ext(path)
			if extension != ".yaml" && extension != ".yml" {
				return nil
			}

			log.Debug().Str("path", path).Msg("Loading zone config file")

			zoneYaml, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			fileConfigs, err := DecodeConfigs(bytes.NewReader(zoneYaml))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			for _, config := range fileConfigs {
				if existing, exists := seen[config.Identifier]; exists {
					return fmt.Errorf("%w %q: defined in both %s and %s", ErrInvalidConfig, config.Identifier, existing, path)
				}
				seen[config.Identifier] = path

				configs = append(configs, config)
			}

			return nil
		})
	if err != nil {
		return nil, err
	}

	return configs, nil
}

// SelectConfigs returns the configs named in identifiers, or all of them when identifiers is empty
func SelectConfigs(configs []Config, identifiers []string) []Config {
	if len(identifiers) == 0 {
		return configs
	}

	return util.Filter(configs, func(config Config) bool {
		return slices.Contains(identifiers, config.Identifier)
	})
}
