package builds

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/plan"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/script"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/validation"
)

// File names inside a build directory
const (
	ExecutableName = "KodLaewLong-Installer.exe"
	ScriptName     = "install.ps1"
	LauncherName   = "Install.bat"
)

// utf8BOM lets Windows PowerShell 5.1 read the script as UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ArtifactKind is the primary artifact a build directory holds
type ArtifactKind string

const (
	KindNativeExecutable   ArtifactKind = "native_executable"
	KindScriptPlusLauncher ArtifactKind = "script_plus_launcher"
)

// Build describes one stored build
type Build struct {
	ID           string       `json:"buildId"`
	Dir          string       `json:"-"`
	ArtifactKind ArtifactKind `json:"artifactKind"`
	CreatedAt    time.Time    `json:"createdAt"`
	ItemCount    int          `json:"itemCount"`
}

// Packager turns the script in outputDir into the build's primary artifact.
// It reports an error only when no usable artifact could be left behind.
type Packager interface {
	Compile(ctx context.Context, scriptPath, outputDir string) (ArtifactKind, error)
}

// Store creates and resolves build directories under a root
type Store struct {
	root   string
	logger *observability.Logger
	now    func() time.Time
}

// NewStore creates the root directory if needed and returns a store over it
func NewStore(root string, logger *observability.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve build root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create build root: %w", err)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Store{
		root:   abs,
		logger: logger.WithField("component", "build_store"),
		now:    time.Now,
	}, nil
}

// Root returns the absolute build root
func (s *Store) Root() string {
	return s.root
}

// Create writes scriptText into a new build directory and packages it.
// A nil packager leaves the script with a launcher.
func (s *Store) Create(ctx context.Context, p plan.InstallPlan, scriptText string, packager Packager) (*Build, error) {
	id, dir, err := s.allocate()
	if err != nil {
		return nil, err
	}

	build := &Build{
		ID:        id,
		Dir:       dir,
		CreatedAt: s.now().UTC(),
		ItemCount: p.Len(),
	}

	scriptPath := filepath.Join(dir, ScriptName)
	if err := os.WriteFile(scriptPath, append(append([]byte{}, utf8BOM...), scriptText...), 0644); err != nil {
		s.discard(dir)
		return nil, fmt.Errorf("failed to write install script: %w", err)
	}

	if packager == nil {
		if err := WriteLauncher(dir); err != nil {
			s.discard(dir)
			return nil, fmt.Errorf("%w: %v", ErrPackagingFailed, err)
		}
		build.ArtifactKind = KindScriptPlusLauncher
	} else {
		kind, err := packager.Compile(ctx, scriptPath, dir)
		if err != nil {
			s.discard(dir)
			return nil, fmt.Errorf("%w: %v", ErrPackagingFailed, err)
		}
		build.ArtifactKind = kind
	}

	s.logger.WithFields(map[string]interface{}{
		"build_id":      build.ID,
		"artifact_kind": string(build.ArtifactKind),
		"items":         build.ItemCount,
	}).Info("Build created")

	return build, nil
}

// allocate creates a fresh directory. Mkdir fails on an existing path, so an id
// is never handed out twice.
func (s *Store) allocate() (string, string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id := uuid.New().String()
		dir := filepath.Join(s.root, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", fmt.Errorf("failed to create build directory: %w", err)
		}
	}
	return "", "", fmt.Errorf("failed to allocate a unique build id")
}

func (s *Store) discard(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		s.logger.WithError(err).Warn("Failed to remove incomplete build directory")
	}
}

// Resolve returns the directory of an existing build
func (s *Store) Resolve(buildID string) (string, error) {
	if !validation.IsValidBuildID(buildID) {
		return "", ErrInvalidID
	}

	dir := filepath.Join(s.root, buildID)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to stat build: %w", err)
	}
	if !info.IsDir() {
		return "", ErrNotFound
	}
	return dir, nil
}

// DetectArtifactKind reports which primary artifact dir holds
func DetectArtifactKind(dir string) (ArtifactKind, error) {
	info, err := os.Stat(filepath.Join(dir, ExecutableName))
	switch {
	case err == nil && info.Mode().IsRegular():
		return KindNativeExecutable, nil
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return KindScriptPlusLauncher, nil
	default:
		return "", fmt.Errorf("failed to stat executable: %w", err)
	}
}

// WriteLauncher writes the batch launcher for the build script into dir
func WriteLauncher(dir string) error {
	path := filepath.Join(dir, LauncherName)
	if err := os.WriteFile(path, []byte(script.RenderLauncher(ScriptName)), 0644); err != nil {
		return fmt.Errorf("failed to write launcher: %w", err)
	}
	return nil
}

// Entry is one build found by Walk
type Entry struct {
	ID      string
	Dir     string
	ModTime time.Time
	Bytes   int64
}

// Walk calls fn for every build directory under the root. Entries that are not
// build ids are skipped.
func (s *Store) Walk(fn func(Entry) error) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("failed to read build root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !validation.IsValidBuildID(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat build %s: %w", entry.Name(), err)
		}

		dir := filepath.Join(s.root, entry.Name())
		size, err := dirSize(dir)
		if err != nil {
			return fmt.Errorf("failed to size build %s: %w", entry.Name(), err)
		}

		if err := fn(Entry{ID: entry.Name(), Dir: dir, ModTime: info.ModTime(), Bytes: size}); err != nil {
			return err
		}
	}
	return nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}
