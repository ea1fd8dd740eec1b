// Package catalog loads the versioned library of named FOCUS query
// templates from a resource tree and answers lookups by id.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("not found")

// Catalog is an immutable map from (version, id) to Definition, built
// once at process init. Reads are lock-free afterwards.
type Catalog struct {
	log      *slog.Logger
	defs     map[string]map[string]Definition
	order    map[string][]string
	findings []*MalformedTemplateError
}

// Load builds the catalog from a resource tree whose top level contains
// one directory per supported specification version, named like v1_0,
// v1_1, v1_2. A single malformed entry is recorded as a finding and
// skipped; only a tree with no loadable version at all is an error.
func Load(log *slog.Logger, fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read query resource tree: %w", err)
	}

	c := &Catalog{
		log:   log,
		defs:  make(map[string]map[string]Definition),
		order: make(map[string][]string),
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		version, ok := versionFromDir(entry.Name())
		if !ok {
			continue
		}
		if err := c.loadVersion(fsys, entry.Name(), version); err != nil {
			return nil, err
		}
	}

	if len(c.defs) == 0 {
		return nil, fmt.Errorf("no query versions found in resource tree")
	}
	return c, nil
}

func (c *Catalog) loadVersion(fsys fs.FS, dir, version string) error {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read query directory %s: %w", dir, err)
	}

	byID := make(map[string]Definition)
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return fmt.Errorf("failed to read template %s/%s: %w", dir, name, err)
		}
		def, err := parseTemplate(version, name, content)
		if err != nil {
			var malformed *MalformedTemplateError
			if errors.As(err, &malformed) {
				c.findings = append(c.findings, malformed)
				c.log.Warn("catalog: skipping malformed template",
					"version", version,
					"file", name,
					"reason", malformed.Reason,
				)
				continue
			}
			return err
		}
		if _, exists := byID[def.ID]; exists {
			finding := &MalformedTemplateError{
				Version: version,
				File:    name,
				Reason:  fmt.Sprintf("duplicate id %q", def.ID),
			}
			c.findings = append(c.findings, finding)
			c.log.Warn("catalog: skipping template with duplicate id", "version", version, "file", name, "id", def.ID)
			continue
		}
		byID[def.ID] = def
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c.defs[version] = byID
	c.order[version] = ids
	c.log.Info("catalog: loaded query templates", "version", version, "count", len(byID))
	return nil
}

// Versions returns the loaded specification versions in ascending order.
func (c *Catalog) Versions() []string {
	versions := make([]string, 0, len(c.defs))
	for v := range c.defs {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// List returns every definition authored for exactly the given version.
// There is no fallback to an adjacent version: column semantics differ
// release to release.
func (c *Catalog) List(version string) ([]Definition, error) {
	byID, ok := c.defs[version]
	if !ok {
		return nil, fmt.Errorf("version %q: %w", version, ErrNotFound)
	}
	defs := make([]Definition, 0, len(byID))
	for _, id := range c.order[version] {
		defs = append(defs, byID[id])
	}
	return defs, nil
}

func (c *Catalog) Get(version, id string) (Definition, error) {
	byID, ok := c.defs[version]
	if !ok {
		return Definition{}, fmt.Errorf("version %q: %w", version, ErrNotFound)
	}
	def, ok := byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("query %q in version %q: %w", id, version, ErrNotFound)
	}
	return def, nil
}

// Findings returns the malformed templates recorded during load.
func (c *Catalog) Findings() []*MalformedTemplateError {
	return c.findings
}

// versionFromDir maps a resource directory name like "v1_0" to the
// specification version "1.0".
func versionFromDir(name string) (string, bool) {
	if !strings.HasPrefix(name, "v") {
		return "", false
	}
	version := strings.ReplaceAll(strings.TrimPrefix(name, "v"), "_", ".")
	if version == "" {
		return "", false
	}
	return version, true
}
