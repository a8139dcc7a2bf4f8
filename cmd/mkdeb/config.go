package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/etnz/mkdeb/deb"
	"go.yaml.in/yaml/v3"
)

// Config holds the build settings that can come from a file, the
// environment or the command line.
type Config struct {
	OutputDir      string
	Compression    deb.Compression
	ModTime        time.Time
	PadFinalMember bool
	Defines        map[string]string
}

// decodeConfig reads the YAML configuration file at path.
func decodeConfig(path string) (*Config, error) {
	// Internal DTO for YAML deserialization
	type yamlConfig struct {
		OutputDir      string            `yaml:"output_dir"`
		Compression    string            `yaml:"compression"`
		Mtime          *int64            `yaml:"mtime"`
		PadFinalMember bool              `yaml:"pad_final_member"`
		Defines        map[string]string `yaml:"defines"`
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dto yamlConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&dto); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	compression, err := deb.ParseCompression(dto.Compression)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Map DTO to business object
	config := &Config{
		OutputDir:      dto.OutputDir,
		Compression:    compression,
		PadFinalMember: dto.PadFinalMember,
		Defines:        dto.Defines,
	}
	if dto.Mtime != nil {
		config.ModTime = time.Unix(*dto.Mtime, 0)
	}
	return config, nil
}

// sourceDateEpoch returns the time set by SOURCE_DATE_EPOCH, or the zero
// time when the variable is unset.
//
// Reference: https://reproducible-builds.org/specs/source-date-epoch/
func sourceDateEpoch() (time.Time, error) {
	v, ok := os.LookupEnv("SOURCE_DATE_EPOCH")
	if !ok || v == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", v, err)
	}
	return time.Unix(sec, 0), nil
}
