// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// nodeBuiltins is the fixed Node.js builtin module set. Specifiers may
// carry a "node:" prefix.
var nodeBuiltins = map[string]bool{
	"assert": true, "async_hooks": true, "buffer": true, "child_process": true,
	"cluster": true, "console": true, "constants": true, "crypto": true,
	"dgram": true, "diagnostics_channel": true, "dns": true, "domain": true,
	"events": true, "fs": true, "http": true, "http2": true, "https": true,
	"inspector": true, "module": true, "net": true, "os": true, "path": true,
	"perf_hooks": true, "process": true, "punycode": true, "querystring": true,
	"readline": true, "repl": true, "stream": true, "string_decoder": true,
	"timers": true, "tls": true, "trace_events": true, "tty": true, "url": true,
	"util": true, "v8": true, "vm": true, "worker_threads": true, "zlib": true,
}

// jsExtensions is the probe order for the JavaScript resolver.
var jsExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".json", ".ts", ".tsx", ".d.ts"}

// tsExtensions is the probe order for the TypeScript resolver: TypeScript
// sources are preferred over their compiled JavaScript siblings.
var tsExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs", ".json"}

// packageJSON is the subset of package.json the resolver reads.
type packageJSON struct {
	Main   string `json:"main"`
	Module string `json:"module"`
}

// JavaScriptResolverOption configures a JavaScriptResolver.
type JavaScriptResolverOption func(*JavaScriptResolver)

// WithJavaScriptPolicy sets the unresolved-import policy.
func WithJavaScriptPolicy(policy Policy) JavaScriptResolverOption {
	return func(r *JavaScriptResolver) { r.policy = policy }
}

// JavaScriptResolver resolves JavaScript (and, via TypeScriptResolver,
// TypeScript) import specifiers.
//
// Description:
//
//	Relative specifiers ("./x", "../y") resolve by path join plus
//	extension probing, then index files. Bare specifiers walk parent
//	directories for node_modules/<pkg> (scoped packages and subpath
//	imports included), read package.json main/module, and fall back to
//	index files. Node builtins are checked before anything else.
//
// Thread Safety: safe for concurrent use.
type JavaScriptResolver struct {
	projectRoot string
	extensions  []string
	policy      Policy
	cache       *memoCache
}

// NewJavaScriptResolver creates a resolver rooted at projectRoot.
func NewJavaScriptResolver(projectRoot string, opts ...JavaScriptResolverOption) *JavaScriptResolver {
	r := &JavaScriptResolver{
		projectRoot: projectRoot,
		extensions:  jsExtensions,
		policy:      PolicyLenient,
		cache:       newMemoCache(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CanonicalModule maps a source file to its slash-style module name
// relative to the project root, extension stripped. Index files
// canonicalize to their directory ("src/util/index.ts" -> "src/util").
func (r *JavaScriptResolver) CanonicalModule(path string) (string, bool) {
	rel, err := filepath.Rel(r.projectRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	ext := scriptExt(rel)
	if ext == "" {
		return "", false
	}
	rel = strings.TrimSuffix(rel, ext)
	if base := rel[strings.LastIndexByte(rel, '/')+1:]; base == "index" {
		rel = strings.TrimSuffix(strings.TrimSuffix(rel, "index"), "/")
	}
	if rel == "" {
		return "", false
	}
	return rel, true
}

// Resolve maps a JavaScript import specifier to a module.
func (r *JavaScriptResolver) Resolve(fromFile, spec string, names []string) ResolveResult {
	k := r.cache.key(fromFile, spec, names)
	if res, ok := r.cache.get(k); ok {
		return res
	}
	res := r.resolve(fromFile, spec)
	r.cache.put(k, res)
	return res
}

// ClearCaches drops memoized resolutions.
func (r *JavaScriptResolver) ClearCaches() { r.cache.clear() }

func (r *JavaScriptResolver) resolve(fromFile, spec string) ResolveResult {
	bare := strings.TrimPrefix(spec, "node:")
	if nodeBuiltins[firstSegment(bare)] {
		return ResolveResult{Module: bare, Kind: KindBuiltin}
	}

	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".." {
		return r.resolveRelative(fromFile, spec)
	}
	return r.resolveBare(fromFile, spec)
}

// resolveRelative joins the specifier onto the importer's directory and
// probes extensions, then index files.
func (r *JavaScriptResolver) resolveRelative(fromFile, spec string) ResolveResult {
	target := filepath.Clean(filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(spec)))

	if path, kind, ok := r.probeFile(target); ok {
		module, _ := r.CanonicalModule(path)
		if module == "" {
			module = spec
		}
		return ResolveResult{Module: module, FilePath: path, Kind: kind}
	}
	return ResolveResult{Module: spec, Kind: KindMissing}
}

// probeFile tries the exact path, each extension, then index files.
func (r *JavaScriptResolver) probeFile(target string) (string, Kind, bool) {
	if fileExists(target) {
		return target, KindProjectFile, true
	}
	for _, ext := range r.extensions {
		if p := target + ext; fileExists(p) {
			return p, KindProjectFile, true
		}
	}
	if dirExists(target) {
		for _, ext := range r.extensions {
			if p := filepath.Join(target, "index"+ext); fileExists(p) {
				return p, KindPackageInit, true
			}
		}
	}
	return "", KindMissing, false
}

// resolveBare walks parent directories for node_modules/<pkg>.
func (r *JavaScriptResolver) resolveBare(fromFile, spec string) ResolveResult {
	pkg, subpath := splitPackageSpec(spec)

	dir := filepath.Dir(fromFile)
	for {
		pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(pkg))
		if dirExists(pkgDir) {
			if res, ok := r.resolveInPackage(pkgDir, spec, subpath); ok {
				return res
			}
			// Package directory exists but the entry could not be
			// located; still clearly an external dependency.
			return ResolveResult{Module: spec, FilePath: pkgDir, Kind: KindThirdParty}
		}
		parent := filepath.Dir(dir)
		if parent == dir || len(dir) < len(r.projectRoot) {
			break
		}
		dir = parent
	}
	return unresolved(spec, r.policy)
}

// resolveInPackage locates the entry file inside an installed package.
func (r *JavaScriptResolver) resolveInPackage(pkgDir, spec, subpath string) (ResolveResult, bool) {
	if subpath != "" {
		if path, _, ok := r.probeFile(filepath.Join(pkgDir, filepath.FromSlash(subpath))); ok {
			return ResolveResult{Module: spec, FilePath: path, Kind: KindThirdParty}, true
		}
		return ResolveResult{}, false
	}

	if data, err := os.ReadFile(filepath.Join(pkgDir, "package.json")); err == nil {
		var pj packageJSON
		if json.Unmarshal(data, &pj) == nil {
			for _, entry := range []string{pj.Module, pj.Main} {
				if entry == "" {
					continue
				}
				if path, _, ok := r.probeFile(filepath.Join(pkgDir, filepath.FromSlash(entry))); ok {
					return ResolveResult{Module: spec, FilePath: path, Kind: KindThirdParty}, true
				}
			}
		}
	}
	for _, ext := range r.extensions {
		if p := filepath.Join(pkgDir, "index"+ext); fileExists(p) {
			return ResolveResult{Module: spec, FilePath: p, Kind: KindThirdParty}, true
		}
	}
	return ResolveResult{}, false
}

// splitPackageSpec splits a bare specifier into package name and subpath,
// handling scoped "@scope/pkg/sub" specifiers.
func splitPackageSpec(spec string) (pkg, subpath string) {
	parts := strings.Split(spec, "/")
	n := 1
	if strings.HasPrefix(spec, "@") && len(parts) > 1 {
		n = 2
	}
	pkg = strings.Join(parts[:n], "/")
	if len(parts) > n {
		subpath = strings.Join(parts[n:], "/")
	}
	return pkg, subpath
}

func firstSegment(spec string) string {
	if i := strings.IndexByte(spec, '/'); i >= 0 {
		return spec[:i]
	}
	return spec
}

// scriptExt returns the script extension of a path, handling the
// two-part ".d.ts" suffix, or "".
func scriptExt(path string) string {
	if strings.HasSuffix(path, ".d.ts") {
		return ".d.ts"
	}
	ext := filepath.Ext(path)
	for _, known := range jsExtensions {
		if ext == known {
			return ext
		}
	}
	return ""
}

// TypeScriptResolver resolves TypeScript import specifiers. It is the
// JavaScript resolver with TypeScript extensions probed first; the two
// languages share one module system.
type TypeScriptResolver struct {
	*JavaScriptResolver
}

// NewTypeScriptResolver creates a TypeScript resolver rooted at projectRoot.
func NewTypeScriptResolver(projectRoot string, opts ...JavaScriptResolverOption) *TypeScriptResolver {
	js := NewJavaScriptResolver(projectRoot, opts...)
	js.extensions = tsExtensions
	return &TypeScriptResolver{JavaScriptResolver: js}
}
