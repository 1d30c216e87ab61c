// Command depscheck fails when a package layer imports one it must not know
// about. Run it from the module root.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/hardchor/frog-pond"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages matching Pattern from depending, directly or through
// other packages, on anything under the listed prefixes.
type rule struct {
	Pattern   string
	Forbidden []string
}

var rules = []rule{
	// Renderers only speak the wire protocol.
	{Pattern: "./internal/view/...", Forbidden: []string{
		modulePath + "/internal/sim",
		modulePath + "/internal/net/session",
		modulePath + "/internal/net/ws",
	}},
	{Pattern: "./internal/sim/...", Forbidden: []string{
		modulePath + "/internal/net",
		modulePath + "/internal/view",
	}},
	{Pattern: "./internal/net/...", Forbidden: []string{
		modulePath + "/internal/app",
		modulePath + "/internal/config",
		modulePath + "/internal/view",
	}},
}

func main() {
	dir := flag.String("dir", ".", "module root to check")
	flag.Parse()

	var violations []string
	for _, r := range rules {
		pkgs, err := loadPackages(*dir, r.Pattern)
		if err != nil {
			fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
			os.Exit(1)
		}
		violations = append(violations, check(pkgs, r)...)
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

// loadPackages resolves pattern relative to dir and returns each package with
// its full dependency closure. Test files are included so fixtures cannot
// sneak a forbidden dependency in.
func loadPackages(dir, pattern string) ([]packageInfo, error) {
	cfg := &packages.Config{
		Dir:   dir,
		Mode:  packages.NeedName | packages.NeedImports | packages.NeedDeps,
		Tests: true,
	}
	loaded, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages %s: %w", pattern, err)
	}
	var errs []string
	packages.Visit(loaded, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, e.Error())
		}
	})
	if len(errs) > 0 {
		return nil, fmt.Errorf("loading %s: %s", pattern, strings.Join(errs, "; "))
	}
	return fromPackages(loaded), nil
}

// fromPackages folds test variants ("p [p.test]", "p_test") into one entry per
// import path and records every package reachable from it.
func fromPackages(loaded []*packages.Package) []packageInfo {
	deps := make(map[string]map[string]bool)
	var order []string
	for _, pkg := range loaded {
		if strings.HasSuffix(pkg.PkgPath, ".test") {
			continue
		}
		path := strings.TrimSuffix(pkg.PkgPath, "_test")
		set, ok := deps[path]
		if !ok {
			set = make(map[string]bool)
			deps[path] = set
			order = append(order, path)
		}
		collectDeps(pkg, set)
		delete(set, path)
	}
	out := make([]packageInfo, 0, len(order))
	for _, path := range order {
		info := packageInfo{ImportPath: path}
		for imp := range deps[path] {
			info.Imports = append(info.Imports, imp)
		}
		sort.Strings(info.Imports)
		out = append(out, info)
	}
	return out
}

func collectDeps(pkg *packages.Package, into map[string]bool) {
	for path, imp := range pkg.Imports {
		if into[path] {
			continue
		}
		into[path] = true
		if imp != nil {
			collectDeps(imp, into)
		}
	}
}

func check(pkgs []packageInfo, r rule) []string {
	var violations []string
	for _, pkg := range pkgs {
		for _, imp := range pkg.Imports {
			for _, prefix := range r.Forbidden {
				if imp == prefix || strings.HasPrefix(imp, prefix+"/") {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	return violations
}
