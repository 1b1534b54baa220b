// Package install downloads, verifies, extracts and launches game
// packages.
//
// # Pipeline
//
// Manager.Install runs one strictly sequential pass per call:
//
//	Downloading -> Verifying -> Extracting -> Locating -> Committing -> Done
//
// Any failure aborts the pass. The temporary archive is always removed,
// and no installation record is written unless every step succeeded.
// Extracted files are left behind when the entry point cannot be found
// so the archive layout can be inspected; the next install of the same
// package starts by wiping its directory.
//
// # Components
//
//   - Downloader: HTTP(S) fetch with a redirect cap and byte progress
//   - Verifier: streaming digest (sha256 or blake3), case-insensitive compare
//   - Extractor: zip, tar.gz, tar.zst, tar.lz4 and plain tar with entry progress
//   - Locate: explicit-stack search for the entry point executable
//   - Manager: orchestration, per-package guard, uninstall and launch
//
// # Usage
//
//	mgr, err := install.NewManager(install.Config{
//	    InstallRoot: filepath.Join(dataDir, "Games"),
//	    MetaDir:     filepath.Join(dataDir, "Meta"),
//	    Store:       store.Open(filepath.Join(dataDir, "Meta", "installed.json")),
//	})
//	if err != nil {
//	    return err
//	}
//
//	res, err := mgr.Install(ctx, pkg, func(p install.Progress) {
//	    fmt.Printf("%s %.0f%%\n", p.Stage, p.Percent)
//	})
package install
