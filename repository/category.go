package repository

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/kwinsch/historify/herrors"
)

// Category is a named directory tracked by the repository, either inside the
// repository root or external to it.
type Category struct {
	Name     string
	DataPath string // absolute
	External bool
}

func categoryKey(name string) string { return "category." + name }

// AddCategory registers name → datapath. datapath may be relative to the
// repository root or absolute; it is recorded as an absolute path alongside
// an "external" flag so the scanner and snapshot packer can tell categories
// inside the tree from ones outside it.
func (r *Repository) AddCategory(name, datapath string) error {
	if name == "" || strings.ContainsAny(name, ",\n") {
		return herrors.Newf(herrors.KindConfig, "invalid category name %q", name)
	}
	abs := datapath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.Root, abs)
	}
	abs = filepath.Clean(abs)

	external := "false"
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		external = "true"
	}

	if err := r.Config.Set(categoryKey(name), abs); err != nil {
		return err
	}
	return r.Config.Set(categoryKey(name)+".external", external)
}

// Category resolves a single registered category by name.
func (r *Repository) Category(name string) (Category, error) {
	path := r.Config.Get(categoryKey(name), "")
	if path == "" {
		return Category{}, herrors.Newf(herrors.KindConfig, "unknown category %q", name)
	}
	external := r.Config.Get(categoryKey(name)+".external", "false") == "true"
	return Category{Name: name, DataPath: path, External: external}, nil
}

// Categories returns every registered category, sorted by name. It scans the
// config CSV mirror directly since the config package only exposes
// single-key lookups.
func (r *Repository) Categories() ([]Category, error) {
	rows, err := readConfigCSV(filepath.Join(r.DBDir, "config.csv"))
	if err != nil {
		return nil, err
	}
	names := map[string]bool{}
	for key := range rows {
		if strings.HasPrefix(key, "category.") && !strings.HasSuffix(key, ".external") {
			names[strings.TrimPrefix(key, "category.")] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	out := make([]Category, 0, len(sorted))
	for _, n := range sorted {
		cat, err := r.Category(n)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}
