// Package spec holds the FOCUS specification metadata: column and
// attribute definitions, partitioned by specification version. Pure
// lookup over immutable data loaded once from the embedded resources.
package spec

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("not found")

type ColumnDefinition struct {
	ID                string `yaml:"column_id" json:"id"`
	DisplayName       string `yaml:"display_name" json:"display_name"`
	Description       string `yaml:"description" json:"description"`
	DataType          string `yaml:"data_type" json:"data_type"`
	ColumnType        string `yaml:"column_type" json:"column_type"`
	FeatureLevel      string `yaml:"feature_level" json:"feature_level"`
	IntroducedVersion string `yaml:"introduced_version" json:"introduced_version"`
}

type AttributeDefinition struct {
	ID                string `yaml:"attribute_id" json:"id"`
	Name              string `yaml:"name" json:"name"`
	Description       string `yaml:"description" json:"description"`
	Requirement       string `yaml:"requirement" json:"requirement"`
	IntroducedVersion string `yaml:"introduced_version" json:"introduced_version"`
}

type definition interface {
	introduced() string
	matchesID(name string) bool
	matchesName(name string) bool
}

func (c ColumnDefinition) introduced() string { return c.IntroducedVersion }
func (c ColumnDefinition) matchesID(name string) bool {
	return strings.EqualFold(c.ID, name)
}
func (c ColumnDefinition) matchesName(name string) bool {
	return strings.EqualFold(c.DisplayName, name)
}

func (a AttributeDefinition) introduced() string { return a.IntroducedVersion }
func (a AttributeDefinition) matchesID(name string) bool {
	return strings.EqualFold(a.ID, name)
}
func (a AttributeDefinition) matchesName(name string) bool {
	return strings.EqualFold(a.Name, name)
}

// registry is one version-filtered collection. Definitions keep the
// order they were authored in.
type registry[T definition] struct {
	items []T
}

// atVersion returns the definitions visible in a version: everything
// introduced at or before it.
func (r registry[T]) atVersion(version string) []T {
	out := make([]T, 0, len(r.items))
	for _, item := range r.items {
		if versionLE(item.introduced(), version) {
			out = append(out, item)
		}
	}
	return out
}

// find resolves a name case-insensitively, preferring an exact ID
// match over a display-name match.
func (r registry[T]) find(version, name string) (T, error) {
	visible := r.atVersion(version)
	for _, item := range visible {
		if item.matchesID(name) {
			return item, nil
		}
	}
	for _, item := range visible {
		if item.matchesName(name) {
			return item, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%q in version %q: %w", name, version, ErrNotFound)
}

type Registry struct {
	columns    registry[ColumnDefinition]
	attributes registry[AttributeDefinition]
}

// Load reads columns.yaml and attributes.yaml from the specification
// resource tree. A missing or unparseable bundle is fatal: without it
// no metadata tool can answer correctly.
func Load(fsys fs.FS) (*Registry, error) {
	var columns []ColumnDefinition
	if err := loadYAML(fsys, "columns.yaml", &columns); err != nil {
		return nil, err
	}
	var attributes []AttributeDefinition
	if err := loadYAML(fsys, "attributes.yaml", &attributes); err != nil {
		return nil, err
	}
	return &Registry{
		columns:    registry[ColumnDefinition]{items: columns},
		attributes: registry[AttributeDefinition]{items: attributes},
	}, nil
}

func loadYAML(fsys fs.FS, name string, out any) error {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(content, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (r *Registry) Columns(version string) []ColumnDefinition {
	return r.columns.atVersion(version)
}

func (r *Registry) Column(version, name string) (ColumnDefinition, error) {
	return r.columns.find(version, name)
}

func (r *Registry) Attributes(version string) []AttributeDefinition {
	return r.attributes.atVersion(version)
}

func (r *Registry) Attribute(version, name string) (AttributeDefinition, error) {
	return r.attributes.find(version, name)
}

// Versions returns every introduced_version present in the metadata,
// in ascending order.
func (r *Registry) Versions() []string {
	seen := make(map[string]struct{})
	for _, c := range r.columns.items {
		seen[c.IntroducedVersion] = struct{}{}
	}
	for _, a := range r.attributes.items {
		seen[a.IntroducedVersion] = struct{}{}
	}
	versions := make([]string, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return semver.Compare(canonical(versions[i]), canonical(versions[j])) < 0
	})
	return versions
}

func versionLE(a, b string) bool {
	return semver.Compare(canonical(a), canonical(b)) <= 0
}

// canonical maps a FOCUS version like "1.0" or "1.2-preview" onto a
// form semver.Compare understands.
func canonical(version string) string {
	base, pre, _ := strings.Cut(version, "-")
	for strings.Count(base, ".") < 2 {
		base += ".0"
	}
	v := "v" + base
	if pre != "" {
		v += "-" + pre
	}
	return v
}
