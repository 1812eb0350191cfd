package codegen

import (
	"fmt"
	"go/format"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/solatis/ensuregen/internal/rules"
	"golang.org/x/tools/imports"
)

// Header is the first line of every generated file.
const Header = "// Code generated by ensuregen. DO NOT EDIT."

// FileOptions controls file-level emission.
type FileOptions struct {
	// Filename is the output path; it scopes import resolution.
	Filename string
	// FixImports runs goimports over the result: unused manifest imports
	// are dropped and missing standard-library imports are added.
	FixImports bool
}

// RenderFile emits one formatted Go file holding every validator of u.
func RenderFile(u *rules.CompiledUnit, opts FileOptions) ([]byte, error) {
	if u.Package == "" {
		return nil, fmt.Errorf("unit %s has no package name", u.File)
	}

	needed := make(map[string]string)
	var fragments []Fragment
	for _, v := range u.Validators {
		f := RenderValidator(v)
		for path, name := range f.Imports {
			if prev, ok := needed[path]; !ok || prev == "" {
				needed[path] = name
			}
		}
		fragments = append(fragments, f)
	}
	// manifest imports are emitted as declared; only goimports prunes them
	for _, path := range u.Imports {
		if _, ok := needed[path]; !ok {
			needed[path] = ""
		}
	}

	var w writer
	w.P(Header)
	if u.File != "" {
		w.P("// source: ", filepath.Base(u.File))
	}
	w.P()
	w.P("package ", u.Package)
	if len(fragments) > 0 {
		w.P()
		writeImports(&w, needed)
	}
	for _, f := range fragments {
		w.P()
		w.buf.WriteString(f.Source)
	}

	src := []byte(w.String())
	if opts.FixImports {
		out, err := imports.Process(opts.Filename, src, &imports.Options{
			Comments:  true,
			TabIndent: true,
			TabWidth:  8,
		})
		if err != nil {
			return nil, fmt.Errorf("fix imports for %s: %w", u.File, err)
		}
		return out, nil
	}
	out, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", u.File, err)
	}
	return out, nil
}

func writeImports(w *writer, needed map[string]string) {
	paths := make([]string, 0, len(needed))
	for path := range needed {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	w.P("import (")
	w.In()
	for _, path := range paths {
		if name := needed[path]; name != "" {
			w.P(name, " ", strconv.Quote(path))
		} else {
			w.P(strconv.Quote(path))
		}
	}
	w.Out()
	w.P(")")
}
