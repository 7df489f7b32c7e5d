package indexer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/continuedev/continueindex/internal/security"
	"github.com/continuedev/continueindex/internal/validation"
)

// GlobalIgnorePatterns is the fixed set of patterns materialized into
// ~/.continue/index/.globalcontinueignore on first use.
var GlobalIgnorePatterns = []string{
	"**/.DS_Store", "**/package-lock.json", "*.lock", "*.log", "*.ttf", "*.png", "*.jpg",
	"*.jpeg", "*.gif", "*.mp4", "*.svg", "*.ico", "*.pdf", "*.zip", "*.gz", "*.tar", "*.tgz",
	"*.rar", "*.7z", "*.exe", "*.dll", "*.obj", "*.o", "*.a", "*.lib", "*.so", "*.dylib", "*.ncb",
	"*.sdf", "*.woff", "*.woff2", "*.eot", "*.cur", "*.avi", "*.mpg", "*.mpeg", "*.mov", "*.mp3",
	"*.mkv", "*.webm", "*.jar", "*.onnx", "*.tmp", "*.swp", "*.bak", "*.dmp", "**/node_modules/",
	"**/.git", "*.class", "*.pyc", "*.pyo", "*.whl", "*.egg-info", "*.db", "*.sql", "*.sqlite",
	"*.sqlite3", "**/__pycache__/", "**/.pytest_cache/", "**/.env", "*.pem", "*.cert",
	"*.key", "*.csr", "**/.idea/", "**/.vscode/", "**/.history/", "*.sass-cache", "*.scssc",
	"*.parquet",
}

// globalIgnorePath returns ~/.continue/index/.globalcontinueignore under
// the given index root.
func globalIgnorePath(indexRoot string) string {
	return filepath.Join(indexRoot, ".globalcontinueignore")
}

// ensureGlobalIgnoreFile writes GlobalIgnorePatterns, one per line, the
// first time the file does not already exist. Idempotent: an existing file
// is left untouched, matching the original's create-if-absent semantics.
func ensureGlobalIgnoreFile(indexRoot string) error {
	path := globalIgnorePath(indexRoot)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(indexRoot, 0o755); err != nil {
		return err
	}

	content := strings.Join(GlobalIgnorePatterns, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0o644)
}

// walkEntry is one file or directory the walker yields, already filtered
// of ignored paths.
type walkEntry struct {
	relPath string
	isDir   bool
	abs     string
}

// walkDir produces a deterministic pre-order traversal of dir, honoring
// the global ignore file, a per-directory .continueignore, and any
// .gitignore files the walk encounters, using go-git's gitignore matcher
// for pattern semantics. The root entry is yielded first with relPath "".
func walkDir(dir string, indexRoot string) ([]walkEntry, error) {
	if err := ensureGlobalIgnoreFile(indexRoot); err != nil {
		return nil, err
	}

	globalPatterns, err := readPatternFile(globalIgnorePath(indexRoot))
	if err != nil {
		return nil, err
	}

	var entries []walkEntry
	var walk func(relDir string, patterns []gitignore.Pattern) error

	walk = func(relDir string, patterns []gitignore.Pattern) error {
		absDir := filepath.Join(dir, relDir)

		var domain []string
		if relDir != "" {
			domain = strings.Split(relDir, "/")
		}
		localPatterns, err := loadDirIgnoreFiles(absDir, domain)
		if err != nil {
			return err
		}
		effective := append(append([]gitignore.Pattern{}, patterns...), localPatterns...)
		matcher := gitignore.NewMatcher(effective)

		dirEntries, err := os.ReadDir(absDir)
		if err != nil {
			return err
		}
		sort.Slice(dirEntries, func(i, j int) bool { return dirEntries[i].Name() < dirEntries[j].Name() })

		for _, de := range dirEntries {
			name := de.Name()
			relPath := name
			if relDir != "" {
				relPath = relDir + "/" + name
			}
			if err := validation.IsPathSafe(relPath); err != nil {
				return err
			}

			components := strings.Split(relPath, "/")
			isDir := de.IsDir()
			if matcher.Match(components, isDir) {
				continue
			}

			abs, err := security.SafeJoin(absDir, name)
			if err != nil {
				return err
			}
			entries = append(entries, walkEntry{relPath: relPath, isDir: isDir, abs: abs})

			if isDir {
				if err := walk(relPath, effective); err != nil {
					return err
				}
			}
		}
		return nil
	}

	entries = append(entries, walkEntry{relPath: "", isDir: true, abs: dir})

	rootPatterns := make([]gitignore.Pattern, 0, len(globalPatterns))
	for _, p := range globalPatterns {
		rootPatterns = append(rootPatterns, gitignore.ParsePattern(p, nil))
	}

	if err := walk("", rootPatterns); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadDirIgnoreFiles loads .continueignore and .gitignore from a single
// directory, returning their patterns scoped to that directory's domain so
// they only apply to paths underneath it.
func loadDirIgnoreFiles(absDir string, domain []string) ([]gitignore.Pattern, error) {
	var patterns []gitignore.Pattern
	for _, name := range []string{".continueignore", ".gitignore"} {
		lines, err := readPatternFile(filepath.Join(absDir, name))
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			patterns = append(patterns, gitignore.ParsePattern(l, domain))
		}
	}
	return patterns, nil
}

// readPatternFile reads a newline-delimited ignore-pattern file, skipping
// blank lines and comments. A missing file yields no patterns.
func readPatternFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}
