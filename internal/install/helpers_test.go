package install

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

type testEntry struct {
	Name string
	Body string
	Mode os.FileMode
}

func dirEntry(name string) testEntry {
	return testEntry{Name: strings.TrimSuffix(name, "/") + "/"}
}

func (e testEntry) isDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

func (e testEntry) mode() os.FileMode {
	if e.Mode != 0 {
		return e.Mode
	}
	return 0o644
}

// buildZip returns a zip archive holding entries in order.
func buildZip(t *testing.T, entries ...testEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		if e.isDir() {
			hdr.SetMode(os.ModeDir | 0o755)
		} else {
			hdr.SetMode(e.mode())
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if !e.isDir() {
			_, err = io.WriteString(w, e.Body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildTar returns a tar archive compressed per format.
func buildTar(t *testing.T, format ArchiveFormat, entries ...testEntry) []byte {
	t.Helper()

	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: int64(e.mode()), Size: int64(len(e.Body)), Typeflag: tar.TypeReg}
		if e.isDir() {
			hdr = &tar.Header{Name: e.Name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !e.isDir() {
			_, err := io.WriteString(tw, e.Body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())

	var out bytes.Buffer
	switch format {
	case FormatTarGz:
		gw := gzip.NewWriter(&out)
		_, err := gw.Write(raw.Bytes())
		require.NoError(t, err)
		require.NoError(t, gw.Close())
	case FormatTarZstd:
		zw, err := zstd.NewWriter(&out)
		require.NoError(t, err)
		_, err = zw.Write(raw.Bytes())
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	case FormatTarLz4:
		lw := lz4.NewWriter(&out)
		_, err := lw.Write(raw.Bytes())
		require.NoError(t, err)
		require.NoError(t, lw.Close())
	default:
		return raw.Bytes()
	}
	return out.Bytes()
}

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// archiveServer serves body at /pkg.zip with a Content-Length header
// and counts requests.
type archiveServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests int
	agents   []string
}

func newArchiveServer(t *testing.T, body []byte) *archiveServer {
	t.Helper()
	s := &archiveServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.agents = append(s.agents, r.Header.Get("User-Agent"))
		s.mu.Unlock()

		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *archiveServer) ArchiveURL() string {
	return s.Server.URL + "/pkg.zip"
}

func (s *archiveServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// progressRecorder collects progress events.
type progressRecorder struct {
	mu     sync.Mutex
	events []Progress
}

func (r *progressRecorder) Record(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *progressRecorder) Events() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Progress(nil), r.events...)
}

func (r *progressRecorder) Stages() []Stage {
	var stages []Stage
	for _, e := range r.Events() {
		if len(stages) == 0 || stages[len(stages)-1] != e.Stage {
			stages = append(stages, e.Stage)
		}
	}
	return stages
}

func (r *progressRecorder) Percents(stage Stage) []float64 {
	var out []float64
	for _, e := range r.Events() {
		if e.Stage == stage {
			out = append(out, e.Percent)
		}
	}
	return out
}
