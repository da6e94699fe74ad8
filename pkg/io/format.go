package io

import (
	"path/filepath"
	"strings"

	"github.com/sadolini/openvino/pkg/errors"
)

// Format is a document encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "%s: unknown graph format (want .json, .yaml or .yml)", path)
}

type document struct {
	Form  string         `json:"form" yaml:"form"`
	Meta  map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
	Nodes []node         `json:"nodes" yaml:"nodes"`
	Edges []edge         `json:"edges" yaml:"edges"`
}

type node struct {
	ID    int64          `json:"id" yaml:"id"`
	Name  string         `json:"name,omitempty" yaml:"name,omitempty"`
	Kind  string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Op    string         `json:"op,omitempty" yaml:"op,omitempty"`
	Attrs map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

type edge struct {
	From int64 `json:"from" yaml:"from"`
	To   int64 `json:"to" yaml:"to"`
	Out  int   `json:"out,omitempty" yaml:"out,omitempty"`
	In   int   `json:"in,omitempty" yaml:"in,omitempty"`
}
