// Package snapshot archives a repository (and optionally its external
// categories) into tar+gzip files, optionally split across fixed-capacity
// optical-media images.
package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/repository"
	"github.com/kwinsch/historify/verifier"
	"gopkg.in/yaml.v2"
)

// Packer produces snapshot archives for a repository.
type Packer struct {
	repo       *repository.Repository
	pubKeyPath string
}

// New binds a Packer to repo, using pubKeyPath for the pre-snapshot recent
// verification.
func New(repo *repository.Repository, pubKeyPath string) *Packer {
	return &Packer{repo: repo, pubKeyPath: pubKeyPath}
}

// Manifest describes one snapshot run, written alongside the produced
// archives for operator reference.
type Manifest struct {
	ID         string    `yaml:"id"`
	Repository string    `yaml:"repository"`
	CreatedAt  time.Time `yaml:"created_at"`
	Full       bool      `yaml:"full"`
	Archives   []string  `yaml:"archives"`
}

// Options controls one Snapshot invocation.
type Options struct {
	OutputBase string
	Full       bool
	Media      string // "" disables media packing; otherwise a medium name
}

// Snapshot performs the full snapshot procedure: recent verification,
// archiving, optional external-category archiving, and optional media
// packing.
func (p *Packer) Snapshot(opts Options, now time.Time) ([]string, error) {
	v := verifier.New(p.repo, p.pubKeyPath)
	result := v.VerifyRecent()
	if !result.OK {
		return nil, herrors.Newf(herrors.KindChain, "refusing snapshot: recent verification failed: %v", result.Issues)
	}

	categories, err := p.repo.Categories()
	if err != nil {
		return nil, err
	}
	var external []repository.Category
	for _, c := range categories {
		if c.External {
			external = append(external, c)
		}
	}

	mainArchive := opts.OutputBase + ".tar.gz"
	if err := archiveTree(p.repo.Root, mainArchive, externalPaths(external)); err != nil {
		return nil, err
	}
	produced := []string{mainArchive}

	if opts.Full && len(external) > 0 {
		externalArchive := opts.OutputBase + "-external.tar.gz"
		if err := archiveCategories(external, externalArchive); err != nil {
			return nil, err
		}
		produced = append(produced, externalArchive)
	}

	manifest := Manifest{
		ID:         uuid.NewString(),
		Repository: p.repo.Root,
		CreatedAt:  now,
		Full:       opts.Full,
		Archives:   produced,
	}
	manifestBytes, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindIO, err, "marshaling snapshot manifest")
	}
	manifestPath := opts.OutputBase + ".manifest.yaml"
	if err := os.WriteFile(manifestPath, manifestBytes, 0o644); err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "writing %s", manifestPath)
	}
	produced = append(produced, manifestPath)

	if opts.Media != "" {
		images, err := packMedia(produced, opts.Media, opts.OutputBase)
		if err != nil {
			return nil, err
		}
		produced = append(produced, images...)
	}

	return produced, nil
}

func externalPaths(cats []repository.Category) map[string]bool {
	out := map[string]bool{}
	for _, c := range cats {
		out[c.DataPath] = true
	}
	return out
}

// archiveTree tars+gzips root, excluding any directory in exclude (used for
// external-category paths, which never live under the repository root in
// practice, but are checked defensively in case a category was registered
// before being moved outside).
func archiveTree(root, outPath string, exclude map[string]bool) error {
	f, err := os.Create(outPath)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "creating %s", outPath)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if exclude[path] {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return addToTar(tw, root, path, info)
	})
}

func archiveCategories(cats []repository.Category, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "creating %s", outPath)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, cat := range cats {
		err := filepath.Walk(cat.DataPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(filepath.Dir(cat.DataPath), path)
			if relErr != nil {
				return relErr
			}
			return addToTarWithName(tw, filepath.Join(cat.Name, rel), path, info)
		})
		if err != nil {
			return herrors.Wrapf(herrors.KindIO, err, "archiving category %s", cat.Name)
		}
	}
	return nil
}

func addToTar(tw *tar.Writer, root, path string, info os.FileInfo) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	return addToTarWithName(tw, rel, path, info)
}

func addToTarWithName(tw *tar.Writer, name string, path string, info os.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(name)
	if err := tw.WriteHeader(hdr); err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "writing tar header for %s", name)
	}
	if info.IsDir() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "opening %s", path)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "writing %s into archive", path)
	}
	return nil
}

// mediumCapacity returns the byte capacity of a named optical medium, BD-R
// single layer (25 GiB) by default.
func mediumCapacity(medium string) (int64, error) {
	switch medium {
	case "", "bd-r":
		return 25 * 1 << 30, nil
	case "bd-r-dl":
		return 50 * 1 << 30, nil
	case "dvd":
		return 4_700_000_000, nil
	default:
		return 0, herrors.Newf(herrors.KindConfig, "unknown media type %q", medium)
	}
}

type sizedFile struct {
	path string
	size int64
}

// binPack applies first-fit-decreasing to fit files into capacity-C bins.
func binPack(files []sizedFile, capacity int64) [][]sizedFile {
	sort.Slice(files, func(i, j int) bool { return files[i].size > files[j].size })
	var bins [][]sizedFile
	var remaining []int64
	for _, f := range files {
		placed := false
		for i := range bins {
			if remaining[i] >= f.size {
				bins[i] = append(bins[i], f)
				remaining[i] -= f.size
				placed = true
				break
			}
		}
		if !placed {
			bins = append(bins, []sizedFile{f})
			remaining = append(remaining, capacity-f.size)
		}
	}
	return bins
}

func packMedia(archives []string, medium, outputBase string) ([]string, error) {
	capacity, err := mediumCapacity(medium)
	if err != nil {
		return nil, err
	}
	var files []sizedFile
	for _, a := range archives {
		info, err := os.Stat(a)
		if err != nil {
			return nil, herrors.Wrapf(herrors.KindIO, err, "statting %s", a)
		}
		files = append(files, sizedFile{path: a, size: info.Size()})
	}
	bins := binPack(files, capacity)

	var images []string
	for i, bin := range bins {
		var name string
		if len(bins) == 1 {
			name = fmt.Sprintf("%s.iso", outputBase)
		} else {
			name = fmt.Sprintf("%s-disc%d.iso", outputBase, i+1)
		}
		volID := fmt.Sprintf("HISTORIFY%d", i+1)
		if len(volID) > 15 {
			volID = volID[:15]
		}
		paths := make([]string, 0, len(bin))
		for _, f := range bin {
			paths = append(paths, f.path)
		}
		if err := writeISOImage(name, volID, paths); err != nil {
			return nil, err
		}
		images = append(images, name)
	}
	return images, nil
}
