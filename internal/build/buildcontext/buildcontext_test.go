package buildcontext

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	t.Run("collects files honoring dockerignore", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()

		writeFile(t, root, ".dockerignore", `
target/
node_modules/
*.log
`)
		writeFile(t, root, "pom.xml", `<project/>`)
		writeFile(t, root, "src/main/java/App.java", `class App {}`)
		writeFile(t, root, "target/app.jar", `binary`)
		writeFile(t, root, "node_modules/dep/index.js", `x`)
		writeFile(t, root, "build.log", `noise`)

		context, err := Scan(root, nil)
		r.NoError(err)

		got := append([]string(nil), context.Files...)
		sort.Strings(got)
		r.Equal([]string{".dockerignore", "pom.xml", "src/main/java/App.java"}, got)
	})

	t.Run("falls back to gitignore when no dockerignore exists", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()

		writeFile(t, root, ".gitignore", "dist/\n")
		writeFile(t, root, "package.json", `{ "name": "frontend" }`)
		writeFile(t, root, "dist/index.html", `<html/>`)

		context, err := Scan(root, nil)
		r.NoError(err)
		r.NotContains(context.Files, "dist/index.html")
		r.Contains(context.Files, "package.json")
	})

	t.Run("narrows to include patterns", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()

		writeFile(t, root, "pom.xml", `<project/>`)
		writeFile(t, root, "src/main/java/App.java", `class App {}`)
		writeFile(t, root, "README.md", `docs`)

		context, err := Scan(root, []string{"pom.xml", "src/**"})
		r.NoError(err)

		got := append([]string(nil), context.Files...)
		sort.Strings(got)
		r.Equal([]string{"pom.xml", "src/main/java/App.java"}, got)
	})

	t.Run("skips everything under .git", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()

		writeFile(t, root, ".git/config", `git`)
		writeFile(t, root, "main.go", `package main`)

		context, err := Scan(root, nil)
		r.NoError(err)
		r.Equal([]string{"main.go"}, context.Files)
	})

	t.Run("tracks the newest modification time", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()

		writeFile(t, root, "old.txt", `old`)
		writeFile(t, root, "new.txt", `new`)

		newest := time.Now().Add(time.Hour)
		r.NoError(os.Chtimes(filepath.Join(root, "new.txt"), newest, newest))

		context, err := Scan(root, nil)
		r.NoError(err)
		r.WithinDuration(newest, context.NewestChange, time.Second)
	})
}

func writeFile(t *testing.T, root string, rel string, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}
