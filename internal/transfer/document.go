// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package transfer moves an entity's private warps in and out of the store
// as YAML documents.
package transfer

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/warp"
)

// FormatVersion is written into every exported document.
const FormatVersion = "1.0.0"

// SupportedVersions is the constraint imported documents must satisfy.
const SupportedVersions = "^1"

var supported = mustConstraint(SupportedVersions)

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// Document is a portable list of one entity's warps.
type Document struct {
	Version string  `yaml:"version" json:"version" jsonschema:"minLength=1,description=Document format version (semver)"`
	Owner   string  `yaml:"owner" json:"owner" jsonschema:"minLength=1,description=Name of the entity the warps were exported from"`
	Warps   []Entry `yaml:"warps" json:"warps"`
}

// Entry is one warp in a Document.
type Entry struct {
	Name      string  `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Dimension string  `yaml:"dimension" json:"dimension" jsonschema:"minLength=1,example=minecraft:overworld"`
	X         float64 `yaml:"x" json:"x"`
	Y         float64 `yaml:"y" json:"y"`
	Z         float64 `yaml:"z" json:"z"`
	Favorite  bool    `yaml:"favorite,omitempty" json:"favorite,omitempty"`
}

func entryOf(w *warp.Warp) Entry {
	return Entry{
		Name:      w.Name,
		Dimension: w.DimensionID,
		X:         w.Location.X,
		Y:         w.Location.Y,
		Z:         w.Location.Z,
		Favorite:  w.Favorite,
	}
}

// warp builds a private warp for owner from e.
func (e Entry) warp(owner string) (*warp.Warp, error) {
	return warp.New(entity.Vec3{X: e.X, Y: e.Y, Z: e.Z}, e.Dimension, e.Name, e.Favorite, owner, false)
}

// Parse validates data against the document schema, decodes it and checks
// its version.
func Parse(data []byte) (*Document, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("TRANSFER_INVALID").Wrapf(err, "decode document")
	}
	if err := doc.checkVersion(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) checkVersion() error {
	v, err := semver.StrictNewVersion(d.Version)
	if err != nil {
		return oops.Code("TRANSFER_INVALID").With("version", d.Version).Wrapf(err, "parse version")
	}
	if !supported.Check(v) {
		return oops.Code("TRANSFER_VERSION_UNSUPPORTED").
			With("version", d.Version).
			With("supported", SupportedVersions).
			Errorf("document version %s is not supported", d.Version)
	}
	return nil
}

// Marshal encodes doc as YAML.
func Marshal(doc *Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, oops.Code("TRANSFER_INVALID").Wrapf(err, "encode document")
	}
	return data, nil
}
