package grid

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/plan"
)

func TestBridgeApplyActionPostsWireShape(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("Body is not JSON: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"result": "Created sheet 'Summary'"})
	}))
	defer srv.Close()

	b := NewBridge(srv.URL)
	result, err := b.ApplyAction(context.Background(), action.CreateSheet{Name: "Summary"})
	if err != nil {
		t.Fatal(err)
	}
	if result != "Created sheet 'Summary'" {
		t.Errorf("Unexpected result: %q", result)
	}
	if gotPath != "/execute" {
		t.Errorf("Expected POST /execute, got %s", gotPath)
	}
	if gotBody["action"] != "createSheet" || gotBody["name"] != "Summary" {
		t.Errorf("Wire shape wrong: %v", gotBody)
	}
}

func TestBridgePlainTextReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Error: range is protected\n")
	}))
	defer srv.Close()

	b := NewBridge(srv.URL)
	result, err := b.ApplyAction(context.Background(), action.ReadRange{Sheet: "Sheet1", Range: "A1:A2"})
	if err != nil {
		t.Fatal(err)
	}
	if result != "Error: range is protected" {
		t.Errorf("Plain-text body should pass through trimmed, got %q", result)
	}
}

func TestBridgeNon200IsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "executor crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewBridge(srv.URL)
	if _, err := b.ApplyAction(context.Background(), action.CreateSheet{Name: "X"}); err == nil {
		t.Fatal("Expected transport error for 500")
	} else if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Error should carry the status: %v", err)
	}
}

func TestBridgeApplyUndoPostsLog(t *testing.T) {
	var gotBody plan.UndoInfo
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/undo" {
			t.Errorf("Expected POST /undo, got %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"result": "Undo complete"})
	}))
	defer srv.Close()

	b := NewBridge(srv.URL)
	undo := plan.UndoInfo{
		SheetsToDelete: []string{"Summary"},
		CellsToClear:   []plan.CellRange{{Sheet: "Sheet1", Range: "D1:D31"}},
	}
	result, err := b.ApplyUndo(context.Background(), undo)
	if err != nil {
		t.Fatal(err)
	}
	if result != "Undo complete" {
		t.Errorf("Unexpected result: %q", result)
	}
	if len(gotBody.SheetsToDelete) != 1 || len(gotBody.CellsToClear) != 1 {
		t.Errorf("Undo log did not round-trip: %+v", gotBody)
	}
}

func TestBridgeUnreachable(t *testing.T) {
	b := NewBridge("http://127.0.0.1:1")
	if _, err := b.ApplyAction(context.Background(), action.CreateSheet{Name: "X"}); err == nil {
		t.Fatal("Expected connection error")
	}
}
