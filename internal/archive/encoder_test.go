package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
}

func TestEncodeDirRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"alpha.txt":      "alpha",
		"nested/beta.md": "beta content",
		"nested/gamma":   "",
	})

	dest := filepath.Join(t.TempDir(), "tree.pbk")
	encoder := NewEncoder(FilterConfig{PreserveMetadata: true}, false, nil)

	result, err := encoder.EncodeDir(root, dest)
	if err != nil {
		t.Fatalf("EncodeDir() error = %v", err)
	}
	if result.FileCount != 3 {
		t.Errorf("EncodeDir() file count = %d, want 3", result.FileCount)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if result.SizeBytes != int64(len(data)) {
		t.Errorf("EncodeDir() size = %d, archive is %d bytes", result.SizeBytes, len(data))
	}

	entries, err := ReadAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	wantOrder := []string{"alpha.txt", "nested/beta.md", "nested/gamma"}
	if len(entries) != len(wantOrder) {
		t.Fatalf("ReadAll() returned %d entries, want %d", len(entries), len(wantOrder))
	}
	for i, want := range wantOrder {
		if entries[i].Header.Path != want {
			t.Errorf("entry %d path = %q, want %q", i, entries[i].Header.Path, want)
		}
	}

	if string(entries[1].Payload) != "beta content" {
		t.Errorf("payload = %q, want %q", entries[1].Payload, "beta content")
	}
	if entries[0].Header.Mtime == 0 {
		t.Error("metadata preservation did not record mtime")
	}
	if entries[2].Header.Size != 0 {
		t.Errorf("empty file size = %d, want 0", entries[2].Header.Size)
	}
}

func TestEncodeDirCompressed(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"data.txt": "compressible compressible compressible",
	})

	dest := filepath.Join(t.TempDir(), "tree.pbk.gz")
	encoder := NewEncoder(FilterConfig{}, true, nil)

	result, err := encoder.EncodeDir(root, dest)
	if err != nil {
		t.Fatalf("EncodeDir() error = %v", err)
	}

	closer, decoder, err := Open(dest)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer closer.Close()

	header, payload, err := decoder.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if header.Path != "data.txt" {
		t.Errorf("Next() path = %q, want %q", header.Path, "data.txt")
	}
	if string(payload) != "compressible compressible compressible" {
		t.Errorf("Next() payload = %q", payload)
	}

	if result.SizeBytes <= int64(len(payload)) {
		t.Errorf("reported size %d should include frame overhead", result.SizeBytes)
	}
}

func TestEncodeDirFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter FilterConfig
		want   []string
	}{
		{
			name:   "exclude logs",
			filter: FilterConfig{Exclude: []string{"*.log"}},
			want:   []string{"keep.txt", "sub/also.txt"},
		},
		{
			name:   "include only txt",
			filter: FilterConfig{Include: []string{"*.txt"}},
			want:   []string{"keep.txt", "sub/also.txt"},
		},
		{
			name:   "exclude directory prunes subtree",
			filter: FilterConfig{Exclude: []string{"sub"}},
			want:   []string{"app.log", "keep.txt"},
		},
		{
			name:   "max file size skips large files",
			filter: FilterConfig{MaxFileSize: 8},
			want:   []string{"app.log", "keep.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, map[string]string{
				"keep.txt":     "keep",
				"app.log":      "log line",
				"sub/also.txt": "a larger payload",
			})

			dest := filepath.Join(t.TempDir(), "out.pbk")
			encoder := NewEncoder(tt.filter, false, nil)

			result, err := encoder.EncodeDir(root, dest)
			if err != nil {
				t.Fatalf("EncodeDir() error = %v", err)
			}

			f, err := os.Open(dest)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer f.Close()

			entries, err := ReadAll(f)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}

			var got []string
			for _, entry := range entries {
				got = append(got, entry.Header.Path)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("archived paths = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("archived paths = %v, want %v", got, tt.want)
					break
				}
			}

			if result.FileCount != len(tt.want) {
				t.Errorf("FileCount = %d, want %d", result.FileCount, len(tt.want))
			}
		})
	}
}

func TestEncodeDirSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.txt": "real"})

	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out.pbk")
	encoder := NewEncoder(FilterConfig{}, false, nil)

	result, err := encoder.EncodeDir(root, dest)
	if err != nil {
		t.Fatalf("EncodeDir() error = %v", err)
	}
	if result.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (symlink skipped)", result.FileCount)
	}

	followed := NewEncoder(FilterConfig{FollowSymlinks: true}, false, nil)
	result, err = followed.EncodeDir(root, filepath.Join(t.TempDir(), "followed.pbk"))
	if err != nil {
		t.Fatalf("EncodeDir() error = %v", err)
	}
	if result.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2 (symlink followed)", result.FileCount)
	}
}

func TestEncodeDirMissingRoot(t *testing.T) {
	encoder := NewEncoder(FilterConfig{}, false, nil)

	_, err := encoder.EncodeDir(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "out.pbk"))
	if err == nil {
		t.Fatal("EncodeDir() on missing root returned nil error")
	}
}

func TestEncodeFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "source.dat")
	content := []byte("single file payload")
	if err := os.WriteFile(src, content, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "copy.dat")
	encoder := NewEncoder(FilterConfig{PreserveMetadata: true}, false, nil)

	result, err := encoder.EncodeFile(src, dest)
	if err != nil {
		t.Fatalf("EncodeFile() error = %v", err)
	}
	if result.SizeBytes != int64(len(content)) {
		t.Errorf("SizeBytes = %d, want %d", result.SizeBytes, len(content))
	}

	copied, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(copied, content) {
		t.Errorf("copied content = %q, want %q", copied, content)
	}

	metaBytes, err := os.ReadFile(dest + ".meta")
	if err != nil {
		t.Fatalf("metadata sidecar missing: %v", err)
	}
	var meta FileMetadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		t.Fatalf("metadata sidecar invalid: %v", err)
	}
	if meta.Size != int64(len(content)) {
		t.Errorf("sidecar size = %d, want %d", meta.Size, len(content))
	}
	if meta.Mode != 0600 {
		t.Errorf("sidecar mode = %o, want 0600", meta.Mode)
	}
}

func TestDecoderCorruptStream(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "truncated length prefix", input: []byte{0x00, 0x00}},
		{name: "implausible header length", input: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{name: "truncated header", input: []byte{0x00, 0x00, 0x00, 0x10, '{'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := NewDecoder(bytes.NewReader(tt.input))
			_, _, err := decoder.Next()
			if !errors.Is(err, ErrCorruptArchive) {
				t.Errorf("Next() error = %v, want ErrCorruptArchive", err)
			}
		})
	}
}

func TestArtifactName(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	got := ArtifactName("users-db", ".sql.gz", ts)
	want := "users-db_2026-03-14T09-26-53Z.sql.gz"
	if got != want {
		t.Errorf("ArtifactName() = %q, want %q", got, want)
	}
}
