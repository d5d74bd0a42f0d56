// Package discover finds service handler types in Go source.
//
// A handler type is an exported struct type whose name ends in
// "APIService". Its service name and accepted versions follow the same
// rules as the runtime registry and can be changed with directives in the
// type's doc comment:
//
//	//apiservice:alias forecast
//	//apiservice:version v1 v2
//	type WeatherAPIService struct{}
//
// The scan reports every (service, version) key the package declares and
// the keys claimed by more than one type, which the registry would reject
// as duplicates at run time.
package discover

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/broady/apiservice"
)

const directivePrefix = "//apiservice:"

// Handler is a discovered handler type.
type Handler struct {
	TypeName string         // Go identifier, e.g. WeatherAPIService
	Alias    string         // from //apiservice:alias, empty if none
	Versions []string       // from //apiservice:version, nil if none
	Pos      token.Position // source location
}

func (h Handler) handlerType() *apiservice.HandlerType {
	t := apiservice.Type(h.TypeName, nil)
	if h.Alias != "" {
		t.Alias(h.Alias)
	}
	if h.Versions != nil {
		t.Versions(h.Versions...)
	}
	return t
}

// Service returns the lower-cased service name the type answers to.
func (h Handler) Service() string {
	return h.handlerType().ServiceName()
}

// AcceptedVersions returns the declared versions, or the default version.
func (h Handler) AcceptedVersions() []string {
	return h.handlerType().AcceptedVersions()
}

// Key identifies a registry entry.
type Key struct {
	Service string
	Version string
}

func (k Key) String() string {
	return k.Service + "@" + k.Version
}

// Conflict is a key claimed by more than one handler type.
type Conflict struct {
	Key   Key
	Types []string
}

// Result contains the handler types found in a package.
type Result struct {
	Handlers    []Handler
	PackagePath string
	Dir         string // directory containing the package
}

// Keys returns every (service, version) key, sorted.
func (r *Result) Keys() []Key {
	seen := make(map[Key]bool)
	var keys []Key
	for _, h := range r.Handlers {
		for _, v := range h.AcceptedVersions() {
			k := Key{Service: h.Service(), Version: v}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sortKeys(keys)
	return keys
}

// Conflicts returns the keys claimed by more than one handler type, sorted.
func (r *Result) Conflicts() []Conflict {
	owners := make(map[Key][]string)
	for _, h := range r.Handlers {
		for _, v := range h.AcceptedVersions() {
			k := Key{Service: h.Service(), Version: v}
			owners[k] = append(owners[k], h.TypeName)
		}
	}

	var conflicts []Conflict
	for k, types := range owners {
		if len(types) > 1 {
			sort.Strings(types)
			conflicts = append(conflicts, Conflict{Key: k, Types: types})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool {
		return lessKey(conflicts[i].Key, conflicts[j].Key)
	})
	return conflicts
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
}

func lessKey(a, b Key) bool {
	if a.Service != b.Service {
		return a.Service < b.Service
	}
	return a.Version < b.Version
}

// Find scans a Go package for handler types.
//
// The pattern follows go command semantics:
//   - "." for current directory
//   - Import path like "github.com/foo/bar"
//   - Absolute or relative directory path
func Find(pattern string) (*Result, error) {
	return FindDir(pattern, "")
}

// FindDir is like Find but allows specifying a working directory.
func FindDir(pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}

	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}

	result := &Result{
		PackagePath: pkg.PkgPath,
	}
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	fset := token.NewFileSet()
	for _, filename := range pkg.GoFiles {
		f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}

		handlers, err := parseFile(fset, f)
		if err != nil {
			return nil, err
		}
		result.Handlers = append(result.Handlers, handlers...)
	}

	sort.Slice(result.Handlers, func(i, j int) bool {
		return result.Handlers[i].TypeName < result.Handlers[j].TypeName
	})
	return result, nil
}

type directives struct {
	alias    string
	versions []string
	pos      token.Position
}

// parseFile extracts handler types and their directives from a single file.
func parseFile(fset *token.FileSet, f *ast.File) ([]Handler, error) {
	// Directive comment groups keyed by their end, so they can be matched
	// to the declaration that follows them.
	pending := make(map[token.Pos]*directives)
	for _, cg := range f.Comments {
		for _, c := range cg.List {
			if !strings.HasPrefix(c.Text, directivePrefix) {
				continue
			}
			pos := fset.Position(c.Pos())
			parts := strings.Fields(strings.TrimPrefix(c.Text, directivePrefix))
			if len(parts) == 0 {
				return nil, fmt.Errorf("%s: empty %s directive", pos, directivePrefix)
			}

			d := pending[cg.End()]
			if d == nil {
				d = &directives{pos: pos}
				pending[cg.End()] = d
			}
			switch parts[0] {
			case "alias":
				if len(parts) != 2 {
					return nil, fmt.Errorf("%s: %salias takes exactly one name", pos, directivePrefix)
				}
				d.alias = parts[1]
			case "version":
				if len(parts) < 2 {
					return nil, fmt.Errorf("%s: %sversion needs at least one version", pos, directivePrefix)
				}
				d.versions = append(d.versions, parts[1:]...)
			default:
				return nil, fmt.Errorf("%s: unknown directive %s%s", pos, directivePrefix, parts[0])
			}
		}
	}

	var handlers []Handler
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)

			var d *directives
			for _, doc := range []*ast.CommentGroup{ts.Doc, gen.Doc} {
				if doc == nil {
					continue
				}
				if p, ok := pending[doc.End()]; ok {
					d = p
					delete(pending, doc.End())
					break
				}
			}

			if !isHandler(ts) {
				if d != nil {
					return nil, fmt.Errorf("%s: %s directives must precede an exported struct type named *%s, not %s",
						d.pos, directivePrefix, apiservice.Suffix, ts.Name.Name)
				}
				continue
			}

			h := Handler{
				TypeName: ts.Name.Name,
				Pos:      fset.Position(ts.Pos()),
			}
			if d != nil {
				h.Alias = d.alias
				h.Versions = d.versions
			}
			handlers = append(handlers, h)
		}
	}

	for _, d := range pending {
		return nil, fmt.Errorf("%s: %s directive must be followed by a type declaration", d.pos, directivePrefix)
	}
	return handlers, nil
}

func isHandler(ts *ast.TypeSpec) bool {
	if !ts.Name.IsExported() || !strings.HasSuffix(ts.Name.Name, apiservice.Suffix) {
		return false
	}
	_, ok := ts.Type.(*ast.StructType)
	return ok
}
