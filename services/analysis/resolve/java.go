// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// javaPackageRe matches a package declaration line.
var javaPackageRe = regexp.MustCompile(`^\s*package\s+([A-Za-z_][A-Za-z0-9_.]*)\s*;`)

// javaPackageScanLimit bounds how many non-comment lines are scanned for
// the package declaration.
const javaPackageScanLimit = 50

// javaSourceRootCandidates are tried in order during root discovery.
var javaSourceRootCandidates = []string{
	filepath.Join("src", "main", "java"),
	filepath.Join("src", "test", "java"),
	"src",
	".",
}

// JavaResolverOption configures a JavaResolver.
type JavaResolverOption func(*JavaResolver)

// WithJavaPolicy sets the unresolved-import policy.
func WithJavaPolicy(policy Policy) JavaResolverOption {
	return func(r *JavaResolver) { r.policy = policy }
}

// JavaResolver resolves Java import specifiers.
//
// Description:
//
//	Source roots are discovered heuristically: src/main/java,
//	src/test/java, src, then the project root itself, accepted when the
//	directory looks like a source root (contains .java files or
//	lowercase package-style subdirectories). A file's canonical name is
//	its scanned package declaration plus the filename. Single-type
//	imports resolve to a file path built from the dotted name; wildcard
//	imports resolve to directory existence.
//
// Thread Safety: safe for concurrent use.
type JavaResolver struct {
	projectRoot string
	policy      Policy
	cache       *memoCache

	rootsOnce sync.Once
	roots     []string

	pkgMu  sync.RWMutex
	pkgOf  map[string]string // file path -> package name
}

// NewJavaResolver creates a resolver rooted at projectRoot.
func NewJavaResolver(projectRoot string, opts ...JavaResolverOption) *JavaResolver {
	r := &JavaResolver{
		projectRoot: projectRoot,
		policy:      PolicyLenient,
		cache:       newMemoCache(),
		pkgOf:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CanonicalModule maps a .java file to "package.ClassName".
func (r *JavaResolver) CanonicalModule(path string) (string, bool) {
	if !strings.HasSuffix(path, ".java") {
		return "", false
	}
	name := strings.TrimSuffix(filepath.Base(path), ".java")
	pkg := r.packageOf(path)
	if pkg == "" {
		return name, true
	}
	return pkg + "." + name, true
}

// Resolve maps a Java import specifier to a module. Wildcard imports are
// written with their trailing ".*".
func (r *JavaResolver) Resolve(fromFile, spec string, names []string) ResolveResult {
	k := r.cache.key(fromFile, spec, names)
	if res, ok := r.cache.get(k); ok {
		return res
	}
	res := r.resolve(spec)
	r.cache.put(k, res)
	return res
}

// ClearCaches drops memoized resolutions and the package-scan cache.
func (r *JavaResolver) ClearCaches() {
	r.cache.clear()
	r.pkgMu.Lock()
	r.pkgOf = make(map[string]string)
	r.pkgMu.Unlock()
}

func (r *JavaResolver) resolve(spec string) ResolveResult {
	head := firstDotSegment(spec)
	if head == "java" || head == "javax" || head == "jakarta" {
		return ResolveResult{Module: spec, Kind: KindStdlib}
	}

	if wild := strings.TrimSuffix(spec, ".*"); wild != spec {
		// Wildcard import: the target is a package directory.
		relDir := filepath.Join(strings.Split(wild, ".")...)
		for _, root := range r.sourceRoots() {
			if p := filepath.Join(root, relDir); dirExists(p) {
				return ResolveResult{Module: wild, FilePath: p, Kind: KindPackage}
			}
		}
		return unresolved(wild, r.policy)
	}

	relPath := filepath.Join(strings.Split(spec, ".")...) + ".java"
	for _, root := range r.sourceRoots() {
		if p := filepath.Join(root, relPath); fileExists(p) {
			return ResolveResult{Module: spec, FilePath: p, Kind: KindProjectFile}
		}
	}
	return unresolved(spec, r.policy)
}

// sourceRoots discovers and caches the source roots.
func (r *JavaResolver) sourceRoots() []string {
	r.rootsOnce.Do(func() {
		for _, cand := range javaSourceRootCandidates {
			dir := filepath.Join(r.projectRoot, cand)
			if looksLikeJavaSourceRoot(dir) {
				r.roots = append(r.roots, dir)
			}
		}
		if len(r.roots) == 0 {
			r.roots = []string{r.projectRoot}
		}
	})
	return r.roots
}

// packageOf scans (and caches) the package declaration of a file.
func (r *JavaResolver) packageOf(path string) string {
	r.pkgMu.RLock()
	pkg, ok := r.pkgOf[path]
	r.pkgMu.RUnlock()
	if ok {
		return pkg
	}

	pkg = scanJavaPackage(path)
	r.pkgMu.Lock()
	r.pkgOf[path] = pkg
	r.pkgMu.Unlock()
	return pkg
}

// scanJavaPackage reads the first ~50 non-comment lines looking for a
// package declaration. Best-effort: unreadable files yield "".
func scanJavaPackage(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	inBlockComment := false
	lines := 0
	for scanner.Scan() && lines < javaPackageScanLimit {
		line := strings.TrimSpace(scanner.Text())
		if inBlockComment {
			if i := strings.Index(line, "*/"); i >= 0 {
				line = strings.TrimSpace(line[i+2:])
				inBlockComment = false
			} else {
				continue
			}
		}
		if strings.HasPrefix(line, "/*") {
			if !strings.Contains(line, "*/") {
				inBlockComment = true
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		lines++
		if m := javaPackageRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// looksLikeJavaSourceRoot reports whether dir contains .java files or
// lowercase package-style subdirectories.
func looksLikeJavaSourceRoot(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".java") {
			return true
		}
		if e.IsDir() && isPackageStyleName(e.Name()) {
			return true
		}
	}
	return false
}

// isPackageStyleName reports an all-lowercase identifier-like directory
// name ("com", "org", "internal").
func isPackageStyleName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

func firstDotSegment(spec string) string {
	if i := strings.IndexByte(spec, '.'); i >= 0 {
		return spec[:i]
	}
	return spec
}
