// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// setupTestRouter wires the handlers the same way the server binary does.
func setupTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(svc))
	return router
}

// writeProject lays out a small cyclic Python project.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"orders.py":  "import billing\n\n\ndef place_order(items):\n    return billing.charge(items)\n",
		"billing.py": "import orders\n\n\ndef charge(items):\n    return sum(items)\n",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestHandleHealthAndReady(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)

	for _, path := range []string{"/v1/analysis/health", "/v1/analysis/ready"} {
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}
}

func TestHandleInit_Success(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)
	root := writeProject(t)

	body := strings.NewReader(`{"root": ` + jsonString(root) + `}`)
	req, _ := http.NewRequest("POST", "/v1/analysis/init", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp InitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Root != root || resp.Files != 2 {
		t.Errorf("resp = %+v, want root %s with 2 files", resp, root)
	}
	if resp.Signature == "" {
		t.Error("signature not reported")
	}
	if resp.Stats.Cycles != 1 {
		t.Errorf("cycles = %d, want 1", resp.Stats.Cycles)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set on response")
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestHandleInit_MissingRoot(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("POST", "/v1/analysis/init", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != "MISSING_PARAMETER" {
		t.Errorf("code = %q, want MISSING_PARAMETER", resp.Code)
	}
}

func TestHandleCycles(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)
	root := writeProject(t)

	req, _ := http.NewRequest("GET", "/v1/analysis/cycles?root="+url.QueryEscape(root), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Cycles []CycleReport `json:"cycles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Cycles) != 1 {
		t.Fatalf("cycles = %v, want 1", resp.Cycles)
	}
	if resp.Cycles[0].Size != 2 || len(resp.Cycles[0].MinimalCycle) != 2 {
		t.Errorf("cycle = %+v, want the 2-module billing/orders loop", resp.Cycles[0])
	}
}

func TestHandleSymbols_NameFacet(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)
	root := writeProject(t)

	req, _ := http.NewRequest("GET", "/v1/analysis/symbols?name=charge&root="+url.QueryEscape(root), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Total int `json:"total"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestHandleSymbols_StatsWithoutFacet(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)
	root := writeProject(t)

	req, _ := http.NewRequest("GET", "/v1/analysis/symbols?root="+url.QueryEscape(root), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "stats") {
		t.Errorf("body = %s, want index stats", w.Body.String())
	}
}

func TestHandleImpact_MissingParameters(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)
	root := writeProject(t)

	req, _ := http.NewRequest("GET", "/v1/analysis/impact?root="+url.QueryEscape(root), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without symbol or file", w.Code)
	}
}

func TestHandleImpact_Symbol(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)
	root := writeProject(t)

	target := url.QueryEscape("billing.py::charge")
	req, _ := http.NewRequest("GET", "/v1/analysis/impact?symbol="+target+"&root="+url.QueryEscape(root), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Impacted []string `json:"impacted_symbols"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	found := false
	for _, qn := range resp.Impacted {
		if qn == "orders.py::place_order" {
			found = true
		}
	}
	if !found {
		t.Errorf("impacted = %v, want orders.py::place_order", resp.Impacted)
	}
}

func TestHandleGraphDump_MissingRoot(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/analysis/graph/dump", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without root", w.Code)
	}
}

func TestSnapshotEndpoints_WithoutStore(t *testing.T) {
	svc := NewService(nil)
	defer svc.Close()
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("POST", "/v1/analysis/snapshot", strings.NewReader(`{"root": "/tmp"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("snapshot status = %d, want 503 without a store", w.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != "NO_SNAPSHOT_STORE" {
		t.Errorf("code = %q, want NO_SNAPSHOT_STORE", resp.Code)
	}
}
