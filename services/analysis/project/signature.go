// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ContentSignature derives a stable hex digest over the file set: for
// each file, its absolute path and modification time in nanoseconds. Two
// identical signatures mean no watched file was added, removed or
// touched, so a cached graph built under the same signature is current.
//
// A file that cannot be stated contributes a "missing" line instead of
// failing the signature: deletions must change the digest, not break it.
func ContentSignature(root string, files []string) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		abs := f
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, f)
		}
		info, err := os.Stat(abs)
		if err != nil {
			lines = append(lines, abs+"\x00missing")
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\x00%d", abs, info.ModTime().UnixNano()))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
