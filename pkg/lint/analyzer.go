// Package lint provides static analysis checks for the monobuild API.
//
// This analyzer detects common mistakes when using the build packages:
//   - Empty string literals passed to toolchain.Resolve(), cache.ParseRemoteURL(), etc.
//   - Empty target arguments to planning methods (Plan, Build, TopologicalOrder)
//   - BuildTask literals with an empty ID, a self-dependency, or duplicate dependencies
//
// Usage:
//
//	go install github.com/example/monobuild/cmd/monobuild-lint@latest
//	monobuild-lint ./...
package lint

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the monobuild lint analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "monobuildlint",
	Doc:      "checks for common monobuild API mistakes",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// packageFuncs maps package identifier to functions whose first string
// argument must not be empty.
var packageFuncs = map[string]map[string]bool{
	"toolchain": {"Resolve": true},
	"cache":     {"ParseRemoteURL": true, "OpenRemote": true, "NewHasher": true, "NewDirStore": true},
	"lockfile":  {"Load": true},
}

// targetMethods are methods whose first argument is a target package ID.
var targetMethods = map[string]bool{
	"TopologicalOrder": true,
	"DependencyPaths":  true,
	"Plan":             true,
	"Build":            true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.CallExpr)(nil),
		(*ast.CompositeLit)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		switch node := n.(type) {
		case *ast.CallExpr:
			if sel, ok := node.Fun.(*ast.SelectorExpr); ok {
				checkSelectorCall(pass, node, sel)
			}
		case *ast.CompositeLit:
			checkTaskLiteral(pass, node)
		}
	})

	return nil, nil
}

// checkSelectorCall checks calls like toolchain.Resolve("...") and
// g.TopologicalOrder("...").
func checkSelectorCall(pass *analysis.Pass, call *ast.CallExpr, sel *ast.SelectorExpr) {
	name := sel.Sel.Name

	if pkg, ok := sel.X.(*ast.Ident); ok {
		if funcs, ok := packageFuncs[pkg.Name]; ok && funcs[name] {
			checkEmptyStringArg(pass, call, name, 0)
			return
		}
	}

	if targetMethods[name] {
		// Build takes (ctx, target, ...); the planning methods take the
		// target first.
		idx := 0
		if name == "Build" {
			idx = 1
		}
		checkEmptyStringArg(pass, call, name, idx)
	}
}

// checkEmptyStringArg reports if the argument at idx is an empty string literal.
func checkEmptyStringArg(pass *analysis.Pass, call *ast.CallExpr, funcName string, idx int) {
	if len(call.Args) <= idx {
		return
	}

	if lit, ok := call.Args[idx].(*ast.BasicLit); ok && lit.Kind == token.STRING {
		if lit.Value == `""` || lit.Value == "``" {
			pass.Reportf(lit.Pos(), "%s called with empty string literal - will never match a package", funcName)
		}
	}
}

// checkTaskLiteral reports BuildTask literals with an empty ID, a dependency
// on themselves, or duplicate dependencies.
func checkTaskLiteral(pass *analysis.Pass, lit *ast.CompositeLit) {
	if !isBuildTaskType(lit.Type) {
		return
	}

	var taskID string
	var deps *ast.CompositeLit

	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok {
			continue
		}

		switch key.Name {
		case "ID":
			if s, ok := kv.Value.(*ast.BasicLit); ok && s.Kind == token.STRING {
				if s.Value == `""` || s.Value == "``" {
					pass.Reportf(s.Pos(), "BuildTask with empty ID - the executor will reject it")
					return
				}
				taskID = stringValue(s)
			}
		case "Dependencies":
			if dl, ok := kv.Value.(*ast.CompositeLit); ok {
				deps = dl
			}
		}
	}

	if deps == nil {
		return
	}

	seen := make(map[string]token.Pos)
	for _, elt := range deps.Elts {
		dep := stringLitValue(elt)
		if dep == "" {
			continue
		}
		if taskID != "" && dep == taskID {
			pass.Reportf(elt.Pos(), "BuildTask %q depends on itself", taskID)
		}
		if prevPos, exists := seen[dep]; exists {
			pass.Reportf(elt.Pos(), "duplicate dependency %q (first seen at %v)", dep, pass.Fset.Position(prevPos))
		}
		seen[dep] = elt.Pos()
	}
}

// isBuildTaskType matches BuildTask and domain.BuildTask literals.
func isBuildTaskType(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name == "BuildTask"
	case *ast.SelectorExpr:
		return t.Sel.Name == "BuildTask"
	}
	return false
}

// stringLitValue extracts a string literal value from an expression.
func stringLitValue(expr ast.Expr) string {
	if lit, ok := expr.(*ast.BasicLit); ok && lit.Kind == token.STRING {
		return stringValue(lit)
	}
	return ""
}

func stringValue(lit *ast.BasicLit) string {
	s := lit.Value
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return ""
}
