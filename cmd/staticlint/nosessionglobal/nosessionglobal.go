package nosessionglobal

import (
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports package-level variables holding a session store.
// The session store is the single owner of the signed-in identity and is
// handed to the components that need it; a global copy lets code read
// the session without going through that wiring.
var Analyzer = &analysis.Analyzer{
	Name: "nosessionglobal",
	Doc:  "prohibits package-level variables of type session.Store or *session.Store",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		// Exclude go-build cache files
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.VAR {
				continue
			}

			for _, spec := range gen.Specs {
				valueSpec, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}

				for _, name := range valueSpec.Names {
					if name.Name == "_" {
						continue
					}
					obj := pass.TypesInfo.Defs[name]
					if obj == nil || !isSessionStore(obj.Type()) {
						continue
					}
					pass.Reportf(name.Pos(), "package-level session store %s", name.Name)
				}
			}
		}
	}
	return nil, nil
}

func isSessionStore(typ types.Type) bool {
	if ptr, ok := typ.(*types.Pointer); ok {
		typ = ptr.Elem()
	}

	named, ok := typ.(*types.Named)
	if !ok {
		return false
	}

	obj := named.Obj()
	if obj.Name() != "Store" || obj.Pkg() == nil {
		return false
	}

	path := obj.Pkg().Path()

	return path == "session" || strings.HasSuffix(path, "/internal/session")
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/") || strings.Contains(path, `\go-build\`)
}
