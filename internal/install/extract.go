package install

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/vyltrex/launcher/internal/apperr"
	"github.com/vyltrex/launcher/internal/logging"
)

// ArchiveFormat is the container detected from an archive's leading bytes.
type ArchiveFormat string

const (
	FormatZip     ArchiveFormat = "zip"
	FormatTarGz   ArchiveFormat = "tar.gz"
	FormatTarZstd ArchiveFormat = "tar.zst"
	FormatTarLz4  ArchiveFormat = "tar.lz4"
	FormatTar     ArchiveFormat = "tar"
	FormatUnknown ArchiveFormat = "unknown"
)

var (
	magicZip      = []byte("PK\x03\x04")
	magicZipEmpty = []byte("PK\x05\x06")
	magicGzip     = []byte{0x1f, 0x8b}
	magicZstd     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLz4      = []byte{0x04, 0x22, 0x4d, 0x18}
)

const tarMagicOffset = 257

// DetectFormat inspects the leading bytes of an archive.
func DetectFormat(header []byte) ArchiveFormat {
	switch {
	case bytes.HasPrefix(header, magicZip), bytes.HasPrefix(header, magicZipEmpty):
		return FormatZip
	case bytes.HasPrefix(header, magicGzip):
		return FormatTarGz
	case bytes.HasPrefix(header, magicZstd):
		return FormatTarZstd
	case bytes.HasPrefix(header, magicLz4):
		return FormatTarLz4
	case len(header) >= tarMagicOffset+5 && string(header[tarMagicOffset:tarMagicOffset+5]) == "ustar":
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Extractor unpacks archives into a directory.
type Extractor struct {
	logger logging.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger logging.Logger) *Extractor {
	return &Extractor{logger: logging.OrNop(logger)}
}

// Extract unpacks every file entry of archivePath under destDir,
// preserving relative paths and overwriting existing files. onProgress,
// if not nil, receives processed/total*100 after each file entry, with
// directory entries excluded from both counts. An archive with no file
// entries reports 100 once.
func (e *Extractor) Extract(archivePath, destDir string, onProgress func(float64)) error {
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	format, err := sniff(archivePath)
	if err != nil {
		return err
	}
	e.logger.Debug("extracting", "archive", archivePath, "format", string(format), "dest", destDir)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	switch format {
	case FormatZip:
		return e.extractZip(archivePath, destDir, onProgress)
	case FormatTarGz, FormatTarZstd, FormatTarLz4, FormatTar:
		return e.extractTar(archivePath, format, destDir, onProgress)
	default:
		return apperr.Format(nil, "unrecognized archive format")
	}
}

func sniff(path string) (ArchiveFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	header := make([]byte, tarMagicOffset+8)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("read archive header: %w", err)
	}
	return DetectFormat(header[:n]), nil
}

func (e *Extractor) extractZip(archivePath, destDir string, onProgress func(float64)) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return apperr.Format(err, "corrupt zip archive")
	}
	defer zr.Close()

	var files []*zip.File
	for _, f := range zr.File {
		if isDirEntry(f.Name, f.FileInfo().IsDir()) {
			target, err := safeJoin(destDir, f.Name)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}
		files = append(files, f)
	}

	if len(files) == 0 {
		onProgress(100)
		return nil
	}

	total := len(files)
	for i, f := range files {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return apperr.Format(err, "open zip entry %s", f.Name)
		}
		err = writeFile(target, rc, filePerm(f.Mode()))
		rc.Close()
		if err != nil {
			return err
		}

		onProgress(entryPercent(i+1, total))
	}

	return nil
}

// extractTar makes two passes over a compressed tar stream: one to count
// regular files, one to write them. Streams cannot be rewound, so the
// archive is reopened for the second pass.
func (e *Extractor) extractTar(archivePath string, format ArchiveFormat, destDir string, onProgress func(float64)) error {
	total, err := countTarFiles(archivePath, format)
	if err != nil {
		return err
	}
	if total == 0 {
		onProgress(100)
		return nil
	}

	tr, closeFn, err := openTar(archivePath, format)
	if err != nil {
		return err
	}
	defer closeFn()

	processed := 0
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return apperr.Format(err, "read tar header")
		}

		switch header.Typeflag {
		case tar.TypeDir:
			target, err := safeJoin(destDir, header.Name)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			target, err := safeJoin(destDir, header.Name)
			if err != nil {
				return err
			}
			if err := writeFile(target, tr, filePerm(header.FileInfo().Mode())); err != nil {
				return err
			}
			processed++
			onProgress(entryPercent(processed, total))

		default:
			// Links and device nodes can point outside destDir; a game
			// payload never needs them.
			e.logger.Debug("skipping tar entry", "name", header.Name, "type", string(header.Typeflag))
		}
	}

	return nil
}

func countTarFiles(archivePath string, format ArchiveFormat) (int, error) {
	tr, closeFn, err := openTar(archivePath, format)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	count := 0
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, apperr.Format(err, "read tar header")
		}
		if header.Typeflag == tar.TypeReg {
			count++
		}
	}
}

func openTar(archivePath string, format ArchiveFormat) (*tar.Reader, func(), error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	br := bufio.NewReader(f)

	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, nil, apperr.Format(err, "corrupt gzip stream")
		}
		return tar.NewReader(gz), func() { gz.Close(); f.Close() }, nil

	case FormatTarZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, nil, apperr.Format(err, "corrupt zstd stream")
		}
		return tar.NewReader(zr), func() { zr.Close(); f.Close() }, nil

	case FormatTarLz4:
		return tar.NewReader(lz4.NewReader(br)), func() { f.Close() }, nil

	default:
		return tar.NewReader(br), func() { f.Close() }, nil
	}
}

// safeJoin resolves an archive entry name under destDir, rejecting names
// that escape it. Backslash separators from Windows-built zips are
// normalized first.
func safeJoin(destDir, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	target := filepath.Join(destDir, clean)
	root := filepath.Clean(destDir)

	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", apperr.Format(nil, "illegal file path in archive: %s", name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	src := &entryReader{r: r}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		if src.err != nil {
			return apperr.Format(src.err, "corrupt archive entry %s", filepath.Base(target))
		}
		return fmt.Errorf("write file %s: %w", target, err)
	}

	return out.Close()
}

// entryReader remembers the last failure of the archive side of a copy,
// so decode errors from any codec are told apart from disk errors.
type entryReader struct {
	r   io.Reader
	err error
}

func (e *entryReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		e.err = err
	}
	return n, err
}

func isDirEntry(name string, isDir bool) bool {
	return isDir || strings.HasSuffix(name, "/") || strings.HasSuffix(name, `\`)
}

// filePerm keeps the archived permission bits but guarantees the owner can
// read and write.
func filePerm(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	return perm | 0o600
}

func entryPercent(processed, total int) float64 {
	if total < 1 {
		total = 1
	}
	return clampPercent(float64(processed) / float64(total) * 100)
}
