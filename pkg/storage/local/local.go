package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
)

var (
	// ErrPathMustBeAbsolute is returned if the given path to New was not absolute.
	ErrPathMustBeAbsolute = errors.New("path must be absolute")

	// ErrPathMustBeADirectory is returned if the given path to New is not a directory.
	ErrPathMustBeADirectory = errors.New("path must be a directory")

	// ErrPathMustBeWritable is returned if the given path to New is not writable.
	ErrPathMustBeWritable = errors.New("path must be writable")

	// ErrPackageDirectoryNotFound is returned if the package directory does not
	// exist on disk.
	ErrPackageDirectoryNotFound = errors.New("package directory not found")
)

const dirMode = 0o755

// launcherName is the name of the generated entry point under <root>/bin.
const launcherName = "texbld"

// Store maps pkg records to on-disk package directories and to the generated
// launcher path. It has no persistent state of its own beyond the filesystem.
type Store struct{ path string }

func New(ctx context.Context, path string) (*Store, error) {
	if err := validatePath(ctx, path); err != nil {
		return nil, err
	}

	s := &Store{path: path}

	if err := s.setupDirs(); err != nil {
		return nil, fmt.Errorf("error setting up the store directory: %w", err)
	}

	return s, nil
}

// Root returns the root directory of the store.
func (s *Store) Root() string { return s.path }

// PackageDirectory returns the absolute directory of the package with the
// given id.
func (s *Store) PackageDirectory(id int64) string {
	return filepath.Join(s.storePath(), strconv.FormatInt(id, 10))
}

// LauncherPath returns the absolute path of the generated launcher script.
func (s *Store) LauncherPath() string { return filepath.Join(s.binPath(), launcherName) }

// VirtualenvBootstrapPath returns the absolute path of the virtualenv zipapp
// used to provision stable runtimes.
func (s *Store) VirtualenvBootstrapPath() string {
	return filepath.Join(s.path, "virtualenv.pyz")
}

// HasPackage returns true if the package directory exists on disk. The record
// store may still reference an id whose directory was externally deleted;
// this check detects that drift and is mandatory before activation.
func (s *Store) HasPackage(id int64) bool {
	info, err := os.Stat(s.PackageDirectory(id))

	return err == nil && info.IsDir()
}

// CreatePackageDirectory creates the directory of the package with the given
// id and returns its path.
func (s *Store) CreatePackageDirectory(id int64) (string, error) {
	dir := s.PackageDirectory(id)

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("error creating the package directory %q: %w", dir, err)
	}

	return dir, nil
}

// RemovePackageDirectory deletes the directory of the package with the given
// id. It does not touch the record store.
func (s *Store) RemovePackageDirectory(id int64) error {
	dir := s.PackageDirectory(id)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ErrPackageDirectoryNotFound
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("error removing the package directory %q: %w", dir, err)
	}

	return nil
}

// WalkPackages calls fn for every package directory present on disk, in no
// particular order. Entries under the store directory that do not look like
// package ids are skipped.
func (s *Store) WalkPackages(fn func(id int64) error) error {
	entries, err := os.ReadDir(s.storePath())
	if err != nil {
		return fmt.Errorf("error reading the store directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}

		if err := fn(id); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) storePath() string { return filepath.Join(s.path, "store") }
func (s *Store) binPath() string   { return filepath.Join(s.path, "bin") }

func (s *Store) setupDirs() error {
	for _, p := range []string{s.storePath(), s.binPath()} {
		if err := os.MkdirAll(p, dirMode); err != nil {
			return fmt.Errorf("error creating the directory %q: %w", p, err)
		}
	}

	return nil
}

func validatePath(ctx context.Context, path string) error {
	log := zerolog.Ctx(ctx)

	if !filepath.IsAbs(path) {
		log.Error().Str("path", path).Msg("path is not absolute")

		return ErrPathMustBeAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		// First run; the root is created on demand.
		if err := os.MkdirAll(path, dirMode); err != nil {
			return fmt.Errorf("error creating the root directory %q: %w", path, err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("error stat'ing the path %q: %w", path, err)
	}

	if !info.IsDir() {
		log.Error().Str("path", path).Msg("path is not a directory")

		return ErrPathMustBeADirectory
	}

	if !isWritable(ctx, path) {
		return ErrPathMustBeWritable
	}

	return nil
}

func isWritable(ctx context.Context, path string) bool {
	log := zerolog.Ctx(ctx)

	tmpFile, err := os.CreateTemp(path, "write_test")
	if err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("error writing a temp file in the path")

		return false
	}

	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	return true
}
