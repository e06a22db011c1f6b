// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/pdiddy/docforge/pkg/types"
)

// jsonTags decodes settings files against the json field tags.
func jsonTags(c *mapstructure.DecoderConfig) { c.TagName = "json" }

// LoadPageSettings reads a page-settings file (JSON or YAML). An empty
// path returns the institutional defaults.
func LoadPageSettings(path string) (types.PageSettings, error) {
	settings := types.DefaultPageSettings()
	if path == "" {
		return settings, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return types.PageSettings{}, fmt.Errorf("reading page settings %s: %w", path, err)
	}
	if err := v.Unmarshal(&settings, jsonTags); err != nil {
		return types.PageSettings{}, fmt.Errorf("decoding page settings %s: %w", path, err)
	}
	return settings, nil
}

// LoadPictureSettings reads a picture-settings file (JSON or YAML). An
// empty path returns the defaults.
func LoadPictureSettings(path string) (types.PictureSettings, error) {
	settings := types.DefaultPictureSettings()
	if path == "" {
		return settings, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return types.PictureSettings{}, fmt.Errorf("reading picture settings %s: %w", path, err)
	}
	if err := v.Unmarshal(&settings, jsonTags); err != nil {
		return types.PictureSettings{}, fmt.Errorf("decoding picture settings %s: %w", path, err)
	}
	return settings, nil
}
