// Package download resolves a build id to its deliverable artifact and streams
// it: the native executable as-is, or the whole build directory as a zip archive
// compressed at the highest level.
package download

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/builds"
)

// Delivery names and content types
const (
	ExecutableFileName = builds.ExecutableName
	ArchiveFolder      = "KodLaewLong-Installer"
	ArchivePrefix      = "KodLaewLong-Installer-"

	ContentTypeExecutable = "application/octet-stream"
	ContentTypeArchive    = "application/zip"
)

var (
	// ErrBadBuildID is returned for a malformed build id
	ErrBadBuildID = errors.New("invalid build id")

	// ErrBuildNotFound is returned when the build does not exist
	ErrBuildNotFound = errors.New("build not found")

	// ErrArchive is returned when the artifact cannot be streamed
	ErrArchive = errors.New("failed to stream build artifact")
)

// Resolver finds build directories
type Resolver interface {
	Resolve(buildID string) (string, error)
}

// Server opens build artifacts for delivery
type Server struct {
	builds Resolver
}

// NewServer creates a server over a build store
func NewServer(resolver Resolver) *Server {
	return &Server{builds: resolver}
}

// Artifact is a resolved, ready to stream build
type Artifact struct {
	BuildID     string
	Dir         string
	Kind        builds.ArtifactKind
	FileName    string
	ContentType string
	// Size is known only for the native executable; zero otherwise
	Size int64
}

// Open resolves buildID. The id is validated before any filesystem access.
func (s *Server) Open(buildID string) (*Artifact, error) {
	dir, err := s.builds.Resolve(buildID)
	switch {
	case errors.Is(err, builds.ErrInvalidID):
		return nil, ErrBadBuildID
	case errors.Is(err, builds.ErrNotFound):
		return nil, ErrBuildNotFound
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}

	kind, err := builds.DetectArtifactKind(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}

	a := &Artifact{BuildID: buildID, Dir: dir, Kind: kind}
	if kind == builds.KindNativeExecutable {
		info, err := os.Stat(filepath.Join(dir, builds.ExecutableName))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchive, err)
		}
		a.FileName = ExecutableFileName
		a.ContentType = ContentTypeExecutable
		a.Size = info.Size()
	} else {
		a.FileName = ArchiveFileName(buildID)
		a.ContentType = ContentTypeArchive
	}
	return a, nil
}

// ArchiveFileName is the attachment name of a zipped build
func ArchiveFileName(buildID string) string {
	short := buildID
	if len(short) > 8 {
		short = short[:8]
	}
	return ArchivePrefix + short + ".zip"
}

// WriteTo streams the artifact to w. The returned count is the number of bytes
// that reached w, so callers can tell whether a response was already started.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	var err error
	if a.Kind == builds.KindNativeExecutable {
		err = copyFile(cw, filepath.Join(a.Dir, builds.ExecutableName))
	} else {
		err = writeArchive(cw, a.Dir, ArchiveFolder)
	}
	if err != nil {
		return cw.n, fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return cw.n, nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
