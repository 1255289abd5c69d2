package buildcontext

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	ignore "github.com/sabhiram/go-gitignore"
)

// Context is the set of files a service build reads from its directory,
// after .dockerignore (or .gitignore as a fallback) filtering.
type Context struct {
	Dir          string
	Files        []string
	NewestChange time.Time
}

// Scan walks dir and collects the files an image build would consume.
// includePatterns narrows the scan when non-empty; patterns use the same
// doublestar syntax as the rest of the config.
func Scan(dir string, includePatterns []string) (*Context, error) {
	dir = filepath.Clean(dir)

	ign, err := compileIgnore(dir)
	if err != nil {
		return nil, err
	}

	result := &Context{Dir: dir}

	walkErr := filepath.WalkDir(dir, func(absPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(dir, absPath)
		if err != nil {
			return fmt.Errorf("get relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		if relPath == ".git" || strings.HasPrefix(relPath, ".git/") {
			return fs.SkipDir
		}

		if d.IsDir() {
			if relPath != "." && ign != nil && (ign.MatchesPath(relPath) || ign.MatchesPath(relPath+"/")) {
				return fs.SkipDir
			}
			return nil
		}

		if ign != nil && ign.MatchesPath(relPath) {
			return nil
		}

		if len(includePatterns) > 0 {
			ok, err := lib.PathMatchesOneOfPatterns(relPath, includePatterns)
			if err != nil {
				return fmt.Errorf("matching include patterns: %w", err)
			}
			if !ok {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", relPath, err)
		}

		result.Files = append(result.Files, relPath)
		if info.ModTime().After(result.NewestChange) {
			result.NewestChange = info.ModTime()
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk build context: %w", walkErr)
	}

	return result, nil
}

// compileIgnore prefers .dockerignore and falls back to .gitignore, since
// most service directories carry only the latter.
func compileIgnore(dir string) (*ignore.GitIgnore, error) {
	for _, candidate := range []string{".dockerignore", ".gitignore"} {
		ign, err := ignore.CompileIgnoreFile(filepath.Join(dir, candidate))
		if err == nil {
			return ign, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("compile %s: %w", candidate, err)
		}
	}
	return nil, nil
}
