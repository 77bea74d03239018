// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package resolve maps raw import specifiers to canonical modules.
//
// One Resolver exists per language. Resolution is heuristic and
// failure-tolerant by design: an import that cannot be located resolves to
// KindThirdParty (lenient policy) or KindMissing (strict policy) rather
// than producing an error, which keeps "unresolved" a first-class,
// queryable state on the hot path.
package resolve

import (
	"strings"
	"sync"
)

// Kind classifies where an import specifier points.
type Kind string

// Resolution kinds. The set is closed: consumers switch over these values.
const (
	// KindProjectFile is a source file inside the project.
	KindProjectFile Kind = "project_file"

	// KindPackageInit is a package entry file (__init__.py, index.js).
	KindPackageInit Kind = "package_init"

	// KindNamespacePkg is a directory-only package (no init file) or a
	// C# namespace spanning several files.
	KindNamespacePkg Kind = "namespace_pkg"

	// KindPackage is a wildcard import of a whole package directory.
	KindPackage Kind = "package"

	// KindStdlib is part of the language's standard library.
	KindStdlib Kind = "stdlib"

	// KindBuiltin is a language/runtime builtin module.
	KindBuiltin Kind = "builtin"

	// KindThirdParty is an external dependency.
	KindThirdParty Kind = "third_party"

	// KindMissing could not be resolved at all.
	KindMissing Kind = "missing"
)

// Policy selects how an unmatched absolute specifier is classified.
type Policy string

const (
	// PolicyLenient classifies unmatched absolute imports as third-party.
	// This hides genuinely broken imports but avoids false alarms for
	// dependencies that are simply not installed. The default.
	PolicyLenient Policy = "lenient"

	// PolicyStrict classifies unmatched absolute imports as missing.
	PolicyStrict Policy = "strict"
)

// ResolveResult is the immutable outcome of one resolution.
type ResolveResult struct {
	// Module is the canonical module name ("pkg.sub.mod" or "src/util").
	// May be the raw specifier when the target is external.
	Module string `json:"module"`

	// FilePath is the resolved file, empty for external or unresolved
	// targets.
	FilePath string `json:"file_path,omitempty"`

	// Kind classifies the resolution.
	Kind Kind `json:"kind"`

	// Meta carries resolver-specific extras. May be nil.
	Meta map[string]string `json:"meta,omitempty"`
}

// IsMissing reports whether the resolution failed outright.
func (r ResolveResult) IsMissing() bool { return r.Kind == KindMissing }

// IsProject reports whether the resolution landed inside the project.
func (r ResolveResult) IsProject() bool {
	switch r.Kind {
	case KindProjectFile, KindPackageInit, KindNamespacePkg, KindPackage:
		return true
	}
	return false
}

// Resolver is the per-language import resolution contract.
//
// Implementations memoize Resolve by exact input tuple, so repeated calls
// are cheap and deterministic. ClearCaches drops the memoization state
// (and any lazily built filesystem indices).
type Resolver interface {
	// CanonicalModule maps a project file path to its canonical module
	// name. ok is false for files outside the project's source roots.
	CanonicalModule(path string) (module string, ok bool)

	// Resolve maps an import specifier written in fromFile to a module.
	// names are the explicitly imported identifiers, when the statement
	// lists them. Never returns an error: failures are KindMissing or
	// KindThirdParty per the configured policy.
	Resolve(fromFile, spec string, names []string) ResolveResult

	// ClearCaches drops memoized resolutions and lazy indices.
	ClearCaches()
}

// memoKey identifies one Resolve input tuple.
type memoKey struct {
	fromFile string
	spec     string
	names    string
}

// memoCache is the shared memoization table used by every resolver.
//
// Thread Safety: safe for concurrent use.
type memoCache struct {
	mu sync.RWMutex
	m  map[memoKey]ResolveResult
}

func newMemoCache() *memoCache {
	return &memoCache{m: make(map[memoKey]ResolveResult)}
}

func (c *memoCache) key(fromFile, spec string, names []string) memoKey {
	return memoKey{fromFile: fromFile, spec: spec, names: strings.Join(names, ",")}
}

func (c *memoCache) get(k memoKey) (ResolveResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.m[k]
	return r, ok
}

func (c *memoCache) put(k memoKey, r ResolveResult) {
	c.mu.Lock()
	c.m[k] = r
	c.mu.Unlock()
}

func (c *memoCache) clear() {
	c.mu.Lock()
	c.m = make(map[memoKey]ResolveResult)
	c.mu.Unlock()
}

// unresolved builds the policy-dependent result for an unmatched absolute
// specifier.
func unresolved(spec string, policy Policy) ResolveResult {
	if policy == PolicyStrict {
		return ResolveResult{Module: spec, Kind: KindMissing}
	}
	return ResolveResult{Module: spec, Kind: KindThirdParty}
}
