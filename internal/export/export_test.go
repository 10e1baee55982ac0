package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalSinkRoundTrip(t *testing.T) {
	sink := NewLocalSink(t.TempDir())
	ctx := context.Background()

	parent, err := sink.EnsureFolder(ctx, []string{"Sales Ledger", "Reports"})
	if err != nil {
		t.Fatalf("ensure folder: %v", err)
	}

	location, err := sink.Upload(ctx, parent, "report.xlsx", []byte("workbook"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if filepath.Base(location) != "report.xlsx" {
		t.Fatalf("unexpected location %s", location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "workbook" {
		t.Fatalf("stored content mismatch: %q", data)
	}

	// Repeated EnsureFolder is idempotent.
	if _, err := sink.EnsureFolder(ctx, []string{"Sales Ledger", "Reports"}); err != nil {
		t.Fatalf("re-ensure folder: %v", err)
	}
}

func TestHTTPSinkCreatesFolderHierarchy(t *testing.T) {
	var folderNames []string
	var folderParents []string
	uploads := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/folders":
			var req struct {
				Name   string `json:"name"`
				Parent string `json:"parent"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode folder request: %v", err)
			}
			folderNames = append(folderNames, req.Name)
			folderParents = append(folderParents, req.Parent)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "folder-" + req.Name})
		case "/files":
			uploads++
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse upload: %v", err)
			}
			if got := r.FormValue("parent"); got != "folder-Reports" {
				t.Fatalf("upload parent = %s", got)
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("form file: %v", err)
			}
			defer file.Close()
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "file-" + header.Filename})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, "token-1")
	ctx := context.Background()

	parent, err := sink.EnsureFolder(ctx, []string{"Sales Ledger", "Reports"})
	if err != nil {
		t.Fatalf("ensure folder: %v", err)
	}
	if parent != "folder-Reports" {
		t.Fatalf("parent = %s", parent)
	}
	if len(folderNames) != 2 || folderNames[0] != "Sales Ledger" || folderNames[1] != "Reports" {
		t.Fatalf("folder creation order = %v", folderNames)
	}
	if folderParents[1] != "folder-Sales Ledger" {
		t.Fatalf("nested folder must reference its parent, got %q", folderParents[1])
	}

	location, err := sink.Upload(ctx, parent, "2024-03-01-2024-03-31.xlsx", []byte("workbook"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if location != "file-2024-03-01-2024-03-31.xlsx" {
		t.Fatalf("location = %s", location)
	}
	if uploads != 1 {
		t.Fatalf("expected 1 upload, got %d", uploads)
	}
}

func TestHTTPSinkReportsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, "stale")
	_, err := sink.EnsureFolder(context.Background(), []string{"Reports"})
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestHTTPSinkSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, "")
	_, err := sink.Upload(context.Background(), "root", "report.xlsx", []byte("x"))
	if err == nil {
		t.Fatal("expected error from 500 response")
	}
	if errors.Is(err, ErrAuthRequired) {
		t.Fatalf("server error must not read as auth failure: %v", err)
	}
	if want := fmt.Sprintf("status %d", http.StatusInternalServerError); !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q should mention %q", err, want)
	}
}
