// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// csNamespaceRe matches file-scoped ("namespace X;") and block-scoped
// ("namespace X {") declarations.
var csNamespaceRe = regexp.MustCompile(`(?m)^\s*namespace\s+([A-Za-z_][A-Za-z0-9_.]*)\s*[;{]?`)

// csNamespaceScanBytes bounds how much of each file the namespace scan
// reads.
const csNamespaceScanBytes = 64 * 1024

// CSharpResolverOption configures a CSharpResolver.
type CSharpResolverOption func(*CSharpResolver)

// WithCSharpPolicy sets the unresolved-import policy.
func WithCSharpPolicy(policy Policy) CSharpResolverOption {
	return func(r *CSharpResolver) { r.policy = policy }
}

// WithCSharpFiles supplies the project's .cs files up front, replacing
// the filesystem walk during index construction.
func WithCSharpFiles(files ...string) CSharpResolverOption {
	return func(r *CSharpResolver) { r.files = append(r.files, files...) }
}

// CSharpResolver resolves C# using directives.
//
// Description:
//
//	A namespace→files index is built lazily by scanning each .cs file
//	for its namespace declaration (file-scoped or block-scoped) with a
//	lightweight regex, not a full parse. Resolution order: exact
//	namespace match, type-within-namespace (Namespace.Type with Type.cs
//	among that namespace's files), direct path construction from dotted
//	segments, then a filesystem walk matching the bare filename with
//	namespace verification. System.* is stdlib.
//
// Thread Safety: safe for concurrent use.
type CSharpResolver struct {
	projectRoot string
	policy      Policy
	files       []string
	cache       *memoCache

	idxMu            sync.Mutex
	idxBuilt         bool
	namespaceToFiles map[string][]string
	fileToNamespace  map[string]string
}

// NewCSharpResolver creates a resolver rooted at projectRoot.
func NewCSharpResolver(projectRoot string, opts ...CSharpResolverOption) *CSharpResolver {
	r := &CSharpResolver{
		projectRoot: projectRoot,
		policy:      PolicyLenient,
		cache:       newMemoCache(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CanonicalModule maps a .cs file to "Namespace.TypeName" using its
// scanned namespace; files with no namespace map to the bare type name.
func (r *CSharpResolver) CanonicalModule(path string) (string, bool) {
	if !strings.HasSuffix(path, ".cs") {
		return "", false
	}
	r.ensureIndex()
	name := strings.TrimSuffix(filepath.Base(path), ".cs")
	r.idxMu.Lock()
	ns := r.fileToNamespace[path]
	r.idxMu.Unlock()
	if ns == "" {
		ns = scanCSharpNamespace(path)
	}
	if ns == "" {
		return name, true
	}
	return ns + "." + name, true
}

// Resolve maps a C# using directive to a module.
func (r *CSharpResolver) Resolve(fromFile, spec string, names []string) ResolveResult {
	k := r.cache.key(fromFile, spec, names)
	if res, ok := r.cache.get(k); ok {
		return res
	}
	res := r.resolve(spec)
	r.cache.put(k, res)
	return res
}

// ClearCaches drops memoized resolutions and the namespace index.
func (r *CSharpResolver) ClearCaches() {
	r.cache.clear()
	r.idxMu.Lock()
	r.idxBuilt = false
	r.namespaceToFiles = nil
	r.fileToNamespace = nil
	r.idxMu.Unlock()
}

func (r *CSharpResolver) resolve(spec string) ResolveResult {
	target := stripUsingDecorations(spec)
	if target == "" {
		return ResolveResult{Module: spec, Kind: KindMissing}
	}
	if head := firstDotSegment(target); head == "System" || head == "Microsoft" {
		return ResolveResult{Module: target, Kind: KindStdlib}
	}

	r.ensureIndex()

	// Exact namespace match.
	if files := r.filesOf(target); len(files) > 0 {
		return ResolveResult{
			Module:   target,
			FilePath: files[0],
			Kind:     KindNamespacePkg,
			Meta:     map[string]string{"files": strconv.Itoa(len(files))},
		}
	}

	// Namespace.Type: the last segment names a type declared in the
	// remaining namespace.
	if i := strings.LastIndexByte(target, '.'); i > 0 {
		ns, typ := target[:i], target[i+1:]
		for _, f := range r.filesOf(ns) {
			if strings.TrimSuffix(filepath.Base(f), ".cs") == typ {
				return ResolveResult{Module: target, FilePath: f, Kind: KindProjectFile}
			}
		}
	}

	// Direct path construction from dotted segments.
	segs := strings.Split(target, ".")
	if p := filepath.Join(r.projectRoot, filepath.Join(segs...)+".cs"); fileExists(p) {
		return ResolveResult{Module: target, FilePath: p, Kind: KindProjectFile}
	}
	if p := filepath.Join(r.projectRoot, filepath.Join(segs...)); dirExists(p) {
		return ResolveResult{Module: target, FilePath: p, Kind: KindNamespacePkg}
	}

	// Last resort: match the bare filename anywhere, verified against
	// the namespace prefix.
	if i := strings.LastIndexByte(target, '.'); i > 0 {
		ns, typ := target[:i], target[i+1:]
		if f := r.findFileNamed(typ+".cs", ns); f != "" {
			return ResolveResult{Module: target, FilePath: f, Kind: KindProjectFile}
		}
	}

	return unresolved(target, r.policy)
}

// filesOf returns the sorted files declaring the namespace.
func (r *CSharpResolver) filesOf(namespace string) []string {
	r.idxMu.Lock()
	defer r.idxMu.Unlock()
	return r.namespaceToFiles[namespace]
}

// findFileNamed walks the known files for one with the given basename
// whose namespace matches.
func (r *CSharpResolver) findFileNamed(basename, namespace string) string {
	r.idxMu.Lock()
	defer r.idxMu.Unlock()
	for f, ns := range r.fileToNamespace {
		if filepath.Base(f) == basename && ns == namespace {
			return f
		}
	}
	return ""
}

// ensureIndex builds the namespace index on first use.
func (r *CSharpResolver) ensureIndex() {
	r.idxMu.Lock()
	defer r.idxMu.Unlock()
	if r.idxBuilt {
		return
	}

	files := r.files
	if len(files) == 0 {
		_ = filepath.WalkDir(r.projectRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped, not fatal
			}
			if !d.IsDir() && strings.HasSuffix(path, ".cs") {
				files = append(files, path)
			}
			return nil
		})
	}

	r.namespaceToFiles = make(map[string][]string)
	r.fileToNamespace = make(map[string]string)
	for _, f := range files {
		ns := scanCSharpNamespace(f)
		if ns == "" {
			continue
		}
		r.fileToNamespace[f] = ns
		r.namespaceToFiles[ns] = append(r.namespaceToFiles[ns], f)
	}
	for ns := range r.namespaceToFiles {
		sort.Strings(r.namespaceToFiles[ns])
	}
	r.idxBuilt = true
}

// scanCSharpNamespace extracts the first namespace declaration from a
// file head. Best-effort: unreadable files yield "".
func scanCSharpNamespace(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, csNamespaceScanBytes)
	n, _ := f.Read(buf)
	if m := csNamespaceRe.FindSubmatch(buf[:n]); m != nil {
		return string(m[1])
	}
	return ""
}

// stripUsingDecorations removes "static ", alias bindings ("X = Y") and
// generic arguments from a using target.
func stripUsingDecorations(spec string) string {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(spec), "static "))
	if i := strings.IndexByte(s, '='); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	return s
}
