// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"os"
	"path/filepath"
	"strings"
)

// pythonBuiltins are modules compiled into the interpreter itself.
var pythonBuiltins = map[string]bool{
	"builtins": true, "sys": true, "gc": true, "marshal": true,
	"_thread": true, "_io": true, "itertools": true, "errno": true,
	"posix": true, "time": true, "math": true, "atexit": true,
}

// pythonStdlib covers the common standard-library modules so that stdlib
// classification works without a configured interpreter path. The probe
// against StdlibDir (when set) takes precedence.
var pythonStdlib = map[string]bool{
	"abc": true, "argparse": true, "asyncio": true, "base64": true,
	"collections": true, "contextlib": true, "copy": true, "csv": true,
	"dataclasses": true, "datetime": true, "decimal": true, "enum": true,
	"functools": true, "glob": true, "hashlib": true, "heapq": true,
	"http": true, "importlib": true, "inspect": true, "io": true,
	"json": true, "logging": true, "multiprocessing": true, "os": true,
	"pathlib": true, "pickle": true, "queue": true, "random": true,
	"re": true, "shutil": true, "socket": true, "sqlite3": true,
	"string": true, "struct": true, "subprocess": true, "tempfile": true,
	"textwrap": true, "threading": true, "traceback": true, "types": true,
	"typing": true, "unittest": true, "urllib": true, "uuid": true,
	"warnings": true, "weakref": true, "xml": true, "zipfile": true,
}

// PythonResolverOption configures a PythonResolver.
type PythonResolverOption func(*PythonResolver)

// WithPythonExtraPaths adds extra absolute search paths, probed after the
// project roots.
func WithPythonExtraPaths(paths ...string) PythonResolverOption {
	return func(r *PythonResolver) {
		r.extraPaths = append(r.extraPaths, paths...)
	}
}

// WithPythonStdlibDir sets the interpreter's standard-library directory.
func WithPythonStdlibDir(dir string) PythonResolverOption {
	return func(r *PythonResolver) { r.stdlibDir = dir }
}

// WithPythonSitePackages sets the site-packages directories.
func WithPythonSitePackages(dirs ...string) PythonResolverOption {
	return func(r *PythonResolver) {
		r.sitePackages = append(r.sitePackages, dirs...)
	}
}

// WithPythonPolicy sets the unresolved-import policy.
func WithPythonPolicy(policy Policy) PythonResolverOption {
	return func(r *PythonResolver) { r.policy = policy }
}

// PythonResolver resolves Python import specifiers.
//
// Description:
//
//	Relative imports (leading dots) are spliced against the importer's own
//	canonical module. Absolute imports probe, in order: project roots,
//	extra configured paths, the interpreter stdlib directory, and
//	site-packages. Within each search path the probe tries a module file,
//	then a package __init__.py, then a namespace package (directory
//	without __init__). The bucket that matched determines the kind.
//
// Thread Safety: safe for concurrent use.
type PythonResolver struct {
	projectRoots []string
	extraPaths   []string
	stdlibDir    string
	sitePackages []string
	policy       Policy
	cache        *memoCache
}

// NewPythonResolver creates a resolver over the given project roots.
func NewPythonResolver(projectRoots []string, opts ...PythonResolverOption) *PythonResolver {
	r := &PythonResolver{
		projectRoots: projectRoots,
		policy:       PolicyLenient,
		cache:        newMemoCache(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CanonicalModule maps a .py file to its dotted module name relative to
// the first project root containing it. "__init__.py" canonicalizes to
// its package ("pkg/sub/__init__.py" -> "pkg.sub").
func (r *PythonResolver) CanonicalModule(path string) (string, bool) {
	for _, root := range r.projectRoots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		ext := filepath.Ext(rel)
		if ext != ".py" && ext != ".pyi" {
			return "", false
		}
		rel = strings.TrimSuffix(rel, ext)
		parts := strings.Split(rel, "/")
		if parts[len(parts)-1] == "__init__" {
			parts = parts[:len(parts)-1]
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, "."), true
	}
	return "", false
}

// Resolve maps a Python import specifier to a module. Relative imports
// are written with their leading dots ("..sub.mod"); "from . import x"
// arrives as spec "." with x in names.
func (r *PythonResolver) Resolve(fromFile, spec string, names []string) ResolveResult {
	k := r.cache.key(fromFile, spec, names)
	if res, ok := r.cache.get(k); ok {
		return res
	}
	res := r.resolve(fromFile, spec, names)
	r.cache.put(k, res)
	return res
}

// ClearCaches drops memoized resolutions.
func (r *PythonResolver) ClearCaches() { r.cache.clear() }

func (r *PythonResolver) resolve(fromFile, spec string, names []string) ResolveResult {
	level := 0
	for level < len(spec) && spec[level] == '.' {
		level++
	}
	rest := spec[level:]

	if level > 0 {
		return r.resolveRelative(fromFile, level, rest, names)
	}
	return r.resolveAbsolute(spec)
}

// resolveRelative splices a relative import against the importer's own
// canonical module. Level 1 targets the importer's package, each extra
// dot climbs one package.
func (r *PythonResolver) resolveRelative(fromFile string, level int, rest string, names []string) ResolveResult {
	importer, ok := r.CanonicalModule(fromFile)
	if !ok {
		return ResolveResult{Module: strings.Repeat(".", level) + rest, Kind: KindMissing}
	}

	parts := strings.Split(importer, ".")
	// Drop the importing module's own name, then climb level-1 packages.
	// An __init__.py canonicalizes to its package, which already is the
	// level-1 anchor, so it drops one less.
	drop := level
	if base := filepath.Base(fromFile); base == "__init__.py" || base == "__init__.pyi" {
		drop--
	}
	if drop > len(parts) {
		return ResolveResult{Module: strings.Repeat(".", level) + rest, Kind: KindMissing}
	}
	base := parts[:len(parts)-drop]

	target := strings.Join(base, ".")
	if rest != "" {
		if target != "" {
			target += "."
		}
		target += rest
	}

	// "from . import x": the imported names are modules of the target
	// package. Prefer the first name that resolves to a module file.
	if rest == "" && len(names) > 0 {
		for _, name := range names {
			cand := target
			if cand != "" {
				cand += "."
			}
			cand += name
			if res, ok := r.probeProject(cand); ok {
				return res
			}
		}
	}

	if res, ok := r.probeProject(target); ok {
		return res
	}
	return ResolveResult{Module: target, Kind: KindMissing}
}

func (r *PythonResolver) resolveAbsolute(spec string) ResolveResult {
	head := spec
	if i := strings.IndexByte(spec, '.'); i >= 0 {
		head = spec[:i]
	}
	if pythonBuiltins[head] {
		return ResolveResult{Module: spec, Kind: KindBuiltin}
	}

	if res, ok := r.probeProject(spec); ok {
		return res
	}
	for _, dir := range r.extraPaths {
		if res, ok := probePythonPath(dir, spec, KindProjectFile, KindPackageInit, KindNamespacePkg); ok {
			return res
		}
	}
	if r.stdlibDir != "" {
		if res, ok := probePythonPath(r.stdlibDir, spec, KindStdlib, KindStdlib, KindStdlib); ok {
			return res
		}
	}
	for _, dir := range r.sitePackages {
		if res, ok := probePythonPath(dir, spec, KindThirdParty, KindThirdParty, KindThirdParty); ok {
			return res
		}
	}
	if pythonStdlib[head] {
		return ResolveResult{Module: spec, Kind: KindStdlib}
	}
	return unresolved(spec, r.policy)
}

// probeProject probes the project roots for a dotted module.
func (r *PythonResolver) probeProject(module string) (ResolveResult, bool) {
	if module == "" {
		return ResolveResult{}, false
	}
	for _, root := range r.projectRoots {
		if res, ok := probePythonPath(root, module, KindProjectFile, KindPackageInit, KindNamespacePkg); ok {
			return res, true
		}
	}
	return ResolveResult{}, false
}

// probePythonPath tries module file, package __init__, then namespace
// package under one search directory. The kinds parameterize the bucket.
func probePythonPath(dir, module string, fileKind, initKind, nsKind Kind) (ResolveResult, bool) {
	relPath := filepath.Join(strings.Split(module, ".")...)

	if p := filepath.Join(dir, relPath+".py"); fileExists(p) {
		return ResolveResult{Module: module, FilePath: p, Kind: fileKind}, true
	}
	if p := filepath.Join(dir, relPath, "__init__.py"); fileExists(p) {
		return ResolveResult{Module: module, FilePath: p, Kind: initKind}, true
	}
	if p := filepath.Join(dir, relPath); dirExists(p) {
		return ResolveResult{Module: module, FilePath: p, Kind: nsKind}, true
	}
	return ResolveResult{}, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
