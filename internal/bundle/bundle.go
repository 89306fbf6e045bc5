// Package bundle assembles the JSON source document for a Streamlit app.
package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cdf-tools/streamlit-deploy/internal/config"
	"github.com/cdf-tools/streamlit-deploy/internal/domain"
)

// SourceExt selects the files packaged into the bundle.
const SourceExt = ".py"

// Build collects the app's source files and requirements. It never returns a
// partial bundle.
func Build(app domain.AppDescriptor) (domain.Bundle, error) {
	const op = "build bundle"

	paths, err := SourceFiles(app.Folder)
	if err != nil {
		return domain.Bundle{}, domain.FilesystemError(op, err)
	}

	reqRaw, err := os.ReadFile(filepath.Join(app.Folder, config.RequirementsFile))
	if err != nil {
		return domain.Bundle{}, domain.FilesystemError(op, fmt.Errorf("read %s: %w", config.RequirementsFile, err))
	}

	files := make(map[string]domain.File, len(paths))
	for _, rel := range paths {
		content, err := os.ReadFile(filepath.Join(app.Folder, filepath.FromSlash(rel)))
		if err != nil {
			return domain.Bundle{}, domain.FilesystemError(op, fmt.Errorf("read %s: %w", rel, err))
		}
		if !utf8.Valid(content) {
			return domain.Bundle{}, domain.FilesystemError(op, fmt.Errorf("read %s: not valid UTF-8 text", rel))
		}
		files[rel] = domain.TextFile(string(content))
	}

	return domain.Bundle{
		Requirements: SplitLines(string(reqRaw)),
		Entrypoint:   app.Entrypoint,
		Files:        files,
	}, nil
}

// SourceFiles returns slash-separated paths, relative to root, of every
// source file below root, sorted. A symlinked root is resolved before the
// walk; links below it are not followed.
func SourceFiles(root string) ([]string, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	root = resolved

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), SourceExt) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}

// SplitLines splits on \n, \r\n and \r. A trailing line break does not
// produce an empty entry; lines are otherwise kept verbatim.
func SplitLines(s string) []string {
	lines := []string{}
	for len(s) > 0 {
		i := strings.IndexAny(s, "\r\n")
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i])
		if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
			i++
		}
		s = s[i+1:]
	}
	return lines
}

// Encode serializes the bundle. Map keys are emitted sorted, so an
// unchanged folder always encodes to the same bytes.
func Encode(b domain.Bundle) ([]byte, error) {
	if b.Requirements == nil {
		b.Requirements = []string{}
	}
	if b.Files == nil {
		b.Files = map[string]domain.File{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func Decode(raw []byte) (domain.Bundle, error) {
	var b domain.Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.Bundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	return b, nil
}

type Stats struct {
	Files        int
	Requirements int
	Bytes        int
}

func StatsOf(b domain.Bundle, encoded []byte) Stats {
	return Stats{Files: len(b.Files), Requirements: len(b.Requirements), Bytes: len(encoded)}
}
