package delivery

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// buildArchive zips the files into a staging archive under the system
// temp dir. Entries are flattened to base names; collisions get a
// " (n)" suffix before the extension.
func buildArchive(files []string) (string, error) {
	archivePath := filepath.Join(os.TempDir(), uuid.New().String()+".zip")

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	seen := make(map[string]int)

	for _, file := range files {
		if err := addEntry(zw, file, seen); err != nil {
			zw.Close()
			out.Close()
			os.Remove(archivePath)

			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(archivePath)

		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(archivePath)

		return "", fmt.Errorf("failed to close archive: %w", err)
	}

	return archivePath, nil
}

func addEntry(zw *zip.Writer, file string, seen map[string]int) error {
	name := uniqueName(filepath.Base(file), seen)

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %q: %w", name, err)
	}

	in, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", file, err)
	}
	defer in.Close()

	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to write archive entry %q: %w", name, err)
	}

	return nil
}

// uniqueName de-duplicates flattened base names: the second "a.jpg"
// becomes "a (2).jpg".
func uniqueName(base string, seen map[string]int) string {
	seen[base]++
	if seen[base] == 1 {
		return base
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	return fmt.Sprintf("%s (%d)%s", stem, seen[base], ext)
}
