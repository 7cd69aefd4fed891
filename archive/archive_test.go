package archive_test

import (
	"archive/zip"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/DaviesX/ioq3-map-exporter/archive"
	"github.com/DaviesX/ioq3-map-exporter/vfs"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func mountAll(t *testing.T, dir string) *vfs.FS {
	t.Helper()
	archives, err := archive.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	fs, err := archive.Mount(archives)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestListSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"pak1.pk3", "pak0.pk3", "readme.txt", "zpak.pk3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{}, 0666); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.pk3"), 0777); err != nil {
		t.Fatal(err)
	}

	archives, err := archive.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 3 {
		t.Fatalf("got %d archives; expected 3: %v", len(archives), archives)
	}
	want := []string{"pak0.pk3", "pak1.pk3", "zpak.pk3"}
	for i, a := range archives {
		if filepath.Base(a) != want[i] {
			t.Errorf("archives[%d]=%q; expected %q", i, a, want[i])
		}
	}
}

func TestMountLaterArchiveWins(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "pak0.pk3"), map[string]string{
		"textures/wall.tga": "old",
		"scripts/base.shader": "base",
	})
	writeZip(t, filepath.Join(dir, "pak1.pk3"), map[string]string{
		"textures/wall.tga": "new",
		"sound/hum.wav":     "hum",
	})

	fs := mountAll(t, dir)

	data, err := fs.ReadFile("textures/wall.tga")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("wall.tga=%q; expected the later archive's copy", data)
	}
	if !fs.Exists("scripts/base.shader") || !fs.Exists("sound/hum.wav") {
		t.Error("non-colliding entries missing from mount")
	}
}

func TestMountDirectoryEntries(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "pak0.pk3"), map[string]string{
		"env/":         "",
		"env/sky.tga":  "sky",
	})

	fs := mountAll(t, dir)
	if !fs.Exists("env/sky.tga") {
		t.Error("env/sky.tga missing")
	}
}

func TestMountIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "pak0.pk3"), map[string]string{
		"a.txt": "a0", "b.txt": "b0",
	})
	writeZip(t, filepath.Join(dir, "pak1.pk3"), map[string]string{
		"b.txt": "b1", "c.txt": "c1",
	})

	read := func() map[string]string {
		fs := mountAll(t, dir)
		out := map[string]string{}
		for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
			data, err := fs.ReadFile(name)
			if err != nil {
				t.Fatal(err)
			}
			out[name] = string(data)
		}
		fs.Close()
		return out
	}

	first := read()
	second := read()
	for name, content := range first {
		if second[name] != content {
			t.Errorf("%s differs between mounts: %q vs %q", name, content, second[name])
		}
	}
	if first["b.txt"] != "b1" {
		t.Errorf("b.txt=%q; expected later archive's copy", first["b.txt"])
	}
}

func TestMountIdempotentRandomPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	names := []string{"a.txt", "b/c.txt", "b/d.txt", "e.txt", "f/g/h.txt"}

	for trial := 0; trial < 8; trial++ {
		dir := t.TempDir()

		makeEntries := func(tag string) map[string]string {
			entries := map[string]string{}
			for _, name := range names {
				if rng.Intn(2) == 0 {
					entries[name] = tag + name
				}
			}
			return entries
		}
		first := makeEntries("lo:")
		second := makeEntries("hi:")
		// force at least one overlap and one unique entry per archive
		first[names[0]] = "lo:" + names[0]
		second[names[0]] = "hi:" + names[0]
		first[names[1]] = "lo:" + names[1]
		second[names[2]] = "hi:" + names[2]

		writeZip(t, filepath.Join(dir, "pak0.pk3"), first)
		writeZip(t, filepath.Join(dir, "pak1.pk3"), second)

		read := func() map[string]string {
			fs := mountAll(t, dir)
			defer fs.Close()
			out := map[string]string{}
			for _, name := range names {
				if data, err := fs.ReadFile(name); err == nil {
					out[name] = string(data)
				}
			}
			return out
		}

		got := read()
		again := read()
		if len(got) != len(again) {
			t.Fatalf("trial %d: mounts differ in file set: %v vs %v", trial, got, again)
		}
		for name, content := range got {
			if again[name] != content {
				t.Errorf("trial %d: %s differs between mounts: %q vs %q", trial, name, content, again[name])
			}
			want, inSecond := second[name]
			if inSecond && content != want {
				t.Errorf("trial %d: %s=%q; expected the later archive's copy %q", trial, name, content, want)
			}
		}
	}
}

func TestMountEmptyListFails(t *testing.T) {
	if _, err := archive.Mount(nil); err == nil {
		t.Error("Mount(nil) succeeded; expected error")
	}
}

func TestMountUnreadableArchiveFails(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "pak0.pk3")
	if err := os.WriteFile(bad, []byte("not a zip"), 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Mount([]string{bad}); err == nil {
		t.Error("Mount of a corrupt archive succeeded; expected error")
	}
}
