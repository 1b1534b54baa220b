package install

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vyltrex/launcher/internal/apperr"
)

// Location is where an entry point was found. BaseDir is the directory
// holding the file and becomes the working directory at launch.
type Location struct {
	BaseDir string
	File    string
}

// Path returns the absolute entry point path.
func (l Location) Path() string {
	return filepath.Join(l.BaseDir, l.File)
}

// Locate finds the entry point named name under root. The exact path
// root/name is tried first when it stays inside root; otherwise the tree is searched depth-first
// for a regular file whose basename equals name ignoring case. Which
// match wins among several is unspecified.
func Locate(root, name string) (Location, error) {
	// An exact path escaping root is ignored; the search below never
	// leaves root.
	if exact, err := safeJoin(root, name); err == nil {
		if info, err := os.Stat(exact); err == nil && info.Mode().IsRegular() {
			return Location{BaseDir: filepath.Dir(exact), File: filepath.Base(exact)}, nil
		}
	}

	want := filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))

	// iterative depth-first walk
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := readDirUnsorted(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			switch {
			case entry.IsDir():
				stack = append(stack, full)
			case entry.Type().IsRegular() && strings.EqualFold(entry.Name(), want):
				return Location{BaseDir: dir, File: entry.Name()}, nil
			}
		}
	}

	return Location{}, notFoundError(root, name)
}

// TopLevelFolders lists the directory names directly under root, sorted.
func TopLevelFolders(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func notFoundError(root, name string) error {
	folders := TopLevelFolders(root)
	if len(folders) == 0 {
		return apperr.NotFound("entry point %s not found; top-level folders in archive: [] (archive may be empty or laid out differently)", name)
	}
	return apperr.NotFound("entry point %s not found; top-level folders in archive: [%s]", name, strings.Join(folders, ", "))
}

// readDirUnsorted returns entries in filesystem order.
func readDirUnsorted(dir string) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.ReadDir(-1)
}
