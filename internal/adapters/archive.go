package adapters

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"

	"ios-toolchain/internal/ports"
)

type archiveFormat int

const (
	formatUnknown archiveFormat = iota
	formatTarGz
	formatTarBz2
	formatTarXz
	formatTarZst
	formatTar
	formatZip
)

func detectFormat(name string) archiveFormat {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return formatTarGz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return formatTarBz2
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return formatTarXz
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return formatTarZst
	case strings.HasSuffix(lower, ".tar"):
		return formatTar
	case strings.HasSuffix(lower, ".zip"):
		return formatZip
	default:
		return formatUnknown
	}
}

// ArchiveAdapter reads tar (gzip, bzip2, xz, zstd or plain) and zip source
// archives.
type ArchiveAdapter struct{}

func NewArchiveAdapter() ArchiveAdapter {
	return ArchiveAdapter{}
}

// RootDir returns the top-level directory of the first archive entry.
func (a ArchiveAdapter) RootDir(archivePath string) (string, error) {
	format := detectFormat(archivePath)
	switch format {
	case formatUnknown:
		return "", unsupportedArchive(archivePath)
	case formatZip:
		zr, err := zip.OpenReader(archivePath)
		if err != nil {
			return "", archiveError("failed to open zip archive", err)
		}
		defer zr.Close()
		if len(zr.File) == 0 {
			return "", emptyArchive(archivePath)
		}
		return topLevel(zr.File[0].Name), nil
	default:
		tr, closer, err := openTar(archivePath, format)
		if err != nil {
			return "", err
		}
		defer closer()
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				return "", emptyArchive(archivePath)
			}
			if err != nil {
				return "", archiveError("failed to read tar archive", err)
			}
			// GitHub tarballs start with a pax global header entry.
			if hdr.Typeflag == tar.TypeXGlobalHeader {
				continue
			}
			return topLevel(hdr.Name), nil
		}
	}
}

// Extract unpacks archivePath into destDir. Entries escaping destDir are
// rejected.
func (a ArchiveAdapter) Extract(ctx context.Context, archivePath string, destDir string) error {
	log.Ctx(ctx).Info().Str("archive", filepath.Base(archivePath)).Msgf("Extract %s into %s", archivePath, destDir)
	format := detectFormat(archivePath)
	switch format {
	case formatUnknown:
		return unsupportedArchive(archivePath)
	case formatZip:
		return extractZip(ctx, archivePath, destDir)
	default:
		tr, closer, err := openTar(archivePath, format)
		if err != nil {
			return err
		}
		defer closer()
		return extractTar(ctx, tr, destDir)
	}
}

func openTar(archivePath string, format archiveFormat) (*tar.Reader, func(), error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, archiveError("failed to open archive", err)
	}
	var reader io.Reader
	closer := func() { file.Close() }
	switch format {
	case formatTarGz:
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, archiveError("failed to open gzip stream", err)
		}
		reader = gz
		closer = func() { gz.Close(); file.Close() }
	case formatTarBz2:
		reader = bzip2.NewReader(file)
	case formatTarXz:
		xzr, err := xz.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, archiveError("failed to open xz stream", err)
		}
		reader = xzr
	case formatTarZst:
		zr, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, archiveError("failed to open zstd stream", err)
		}
		reader = zr
		closer = func() { zr.Close(); file.Close() }
	default:
		reader = file
	}
	return tar.NewReader(reader), closer, nil
}

func extractTar(ctx context.Context, tr *tar.Reader, destDir string) error {
	destDir, err := realDest(destDir)
	if err != nil {
		return err
	}
	var links []*tar.Header
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return archiveError("failed to read tar archive", err)
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		if err := ensureInside(destDir, target, hdr.Name); err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(hdr.FileInfo().Mode())); err != nil {
				return archiveError("failed to create directory", err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := checkLinkTarget(destDir, target, hdr.Name, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return archiveError("failed to create directory", err)
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return archiveError(fmt.Sprintf("failed to create symlink %s", hdr.Name), err)
			}
		case tar.TypeLink:
			links = append(links, hdr)
		}
	}
	for _, hdr := range links {
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		source, err := safeJoin(destDir, hdr.Linkname)
		if err != nil {
			return err
		}
		if err := ensureInside(destDir, target, hdr.Name); err != nil {
			return err
		}
		if err := ensureInside(destDir, source, hdr.Name); err != nil {
			return err
		}
		_ = os.Remove(target)
		if err := os.Link(source, target); err != nil {
			return archiveError(fmt.Sprintf("failed to create hard link %s", hdr.Name), err)
		}
	}
	return nil
}

func extractZip(ctx context.Context, archivePath string, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return archiveError("failed to open zip archive", err)
	}
	defer zr.Close()
	destDir, err = realDest(destDir)
	if err != nil {
		return err
	}
	for _, file := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := safeJoin(destDir, file.Name)
		if err != nil {
			return err
		}
		if err := ensureInside(destDir, target, file.Name); err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return archiveError("failed to create directory", err)
			}
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return archiveError(fmt.Sprintf("failed to open %s", file.Name), err)
		}
		err = writeEntry(target, rc, file.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(target string, src io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return archiveError("failed to create directory", err)
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return archiveError(fmt.Sprintf("failed to create %s", target), err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return archiveError(fmt.Sprintf("failed to write %s", target), err)
	}
	if err := out.Close(); err != nil {
		return archiveError(fmt.Sprintf("failed to close %s", target), err)
	}
	return nil
}

func safeJoin(destDir string, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !within(destDir, target) {
		return "", escapingEntry(name)
	}
	return target, nil
}

// realDest creates destDir and returns it with symlinks resolved so that
// resolved entry paths can be compared against it.
func realDest(destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", archiveError("failed to create directory", err)
	}
	resolved, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return "", archiveError(fmt.Sprintf("failed to resolve %s", destDir), err)
	}
	return resolved, nil
}

// ensureInside resolves the deepest existing ancestor of target, target
// included, and rejects it when a previously extracted symlink points it
// outside destDir.
func ensureInside(destDir string, target string, name string) error {
	existing := target
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		// Dangling links are left to the write itself; the lexical check
		// below still applies.
		resolved = existing
	}
	if !within(destDir, resolved) {
		return escapingEntry(name)
	}
	return nil
}

func checkLinkTarget(destDir string, target string, name string, linkname string) error {
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return escapingEntry(name)
	}
	if !within(destDir, filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))) {
		return escapingEntry(name)
	}
	return nil
}

func within(root string, target string) bool {
	rel, err := filepath.Rel(root, target)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func escapingEntry(name string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("archive entry %s escapes the destination", name))
}

func topLevel(name string) string {
	cleaned := strings.TrimPrefix(path.Clean(strings.TrimPrefix(name, "./")), "/")
	if idx := strings.Index(cleaned, "/"); idx != -1 {
		return cleaned[:idx]
	}
	return cleaned
}

func dirMode(mode os.FileMode) os.FileMode {
	perm := mode.Perm() | 0o700
	return perm
}

func unsupportedArchive(archivePath string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("cannot extract %s: unrecognized extension", filepath.Base(archivePath)))
}

func emptyArchive(archivePath string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("archive %s is empty", filepath.Base(archivePath)))
}

func archiveError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.ArchivePort = ArchiveAdapter{}
