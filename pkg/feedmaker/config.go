package feedmaker

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
	"gopkg.in/yaml.v3"
)

const DefaultConfigDirectory = "data/feeds/"
const DefaultInterval = 30 * time.Second

const (
	FormatText         = "text"
	FormatGTFSRealtime = "gtfs-realtime"
)

var ErrInvalidConfig = errors.New("invalid feed config")

// FeedConfig describes an HTTP source polled for vehicle positions
type FeedConfig struct {
	Identifier string            `yaml:"identifier" validate:"required"`
	URL        string            `yaml:"url" validate:"required,url"`
	Format     string            `yaml:"format" validate:"oneof=text gtfs-realtime"`
	Interval   time.Duration     `yaml:"interval"`
	Headers    map[string]string `yaml:"headers"`
	Templates  []FeedTemplate    `yaml:"templates"`
}

var configValidator = validator.New()

func (c *FeedConfig) Validate() error {
	if c.Format == "" {
		c.Format = FormatText
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}

	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidConfig, c.Identifier, err)
	}

	if c.Interval < time.Second {
		return fmt.Errorf("%w %q: interval %s is under a second", ErrInvalidConfig, c.Identifier, c.Interval)
	}

	if c.Format == FormatText {
		if len(c.Templates) == 0 {
			return fmt.Errorf("%w %q: text feeds need at least one template", ErrInvalidConfig, c.Identifier)
		}

		for i, template := range c.Templates {
			if template.TagStart == "" {
				return fmt.Errorf("%w %q: template %d has no tag_start", ErrInvalidConfig, c.Identifier, i)
			}
		}
	}

	return nil
}

func DecodeConfigs(r io.Reader) ([]FeedConfig, error) {
	var configs []FeedConfig

	decoder := yaml.NewDecoder(r)
	for {
		var config FeedConfig
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

// LoadConfigs reads every feed config in the .yaml files under directory
func LoadConfigs(directory string) ([]FeedConfig, error) {
	var configs []FeedConfig
	seen := map[string]string{}

	err := filepath.Walk(directory,
		func(path string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			extension := filepath.Ext(path)
			if fileInfo.IsDir() || (extension != ".yaml" && extension != ".yml") {
				return nil
			}

			log.Debug().Str("path", path).Msg("Loading feed config file")

			feedYaml, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			fileConfigs, err := DecodeConfigs(bytes.NewReader(feedYaml))
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
