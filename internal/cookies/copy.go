package cookies

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SafeCopy copies a SQLite cookie database (and its -wal and -shm companions
// when present) into a fresh temporary directory.
//
// Returns the temporary directory, a cleanup function that removes it, and an
// error. The caller must call cleanup when done.
func SafeCopy(srcPath string) (tempDir string, cleanup func(), err error) {
	if err := checkStoreFile(srcPath); err != nil {
		return "", nil, err
	}

	tempDir, err = os.MkdirTemp("", "cookieshare-capture-*")
	if err != nil {
		return "", nil, fmt.Errorf("capture: cannot create temp directory: %w", err)
	}
	cleanup = func() {
		os.RemoveAll(tempDir)
	}

	baseName := filepath.Base(srcPath)
	if err := copyFile(srcPath, filepath.Join(tempDir, baseName)); err != nil {
		cleanup()
		return "", nil, err
	}
	// companions are best-effort: a store without a WAL is still readable
	for _, suffix := range []string{"-wal", "-shm"} {
		companion := srcPath + suffix
		if _, err := os.Stat(companion); err == nil {
			_ = copyFile(companion, filepath.Join(tempDir, baseName+suffix))
		}
	}
	return tempDir, cleanup, nil
}

func checkStoreFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("capture: cookie store not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("capture: %s is a directory, expected a cookie store file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("capture: cookie store %s is empty", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("capture: cannot open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("capture: cannot create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("capture: cannot copy %s: %w", src, err)
	}
	return nil
}
