package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/example/kdash/internal/resources"
)

func TestKindsCommandTableOutput(t *testing.T) {
	cmd := newKindsCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "KIND") || !strings.Contains(out, "SCOPE") {
		t.Fatalf("missing table header:\n%s", out)
	}
	for _, kind := range resources.Kinds() {
		if !strings.Contains(out, kind) {
			t.Fatalf("kind %q missing from output:\n%s", kind, out)
		}
	}
	if !strings.Contains(out, "cluster") {
		t.Fatalf("expected the namespaces row to be marked cluster scoped:\n%s", out)
	}
}

func TestKindsCommandJSONOutput(t *testing.T) {
	cmd := newKindsCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--format", "json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command returned error: %v", err)
	}
	var rows []kindRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, buf.String())
	}
	if len(rows) != len(resources.Kinds()) {
		t.Fatalf("expected %d rows, got %d", len(resources.Kinds()), len(rows))
	}
	byKind := make(map[string]kindRow, len(rows))
	for _, row := range rows {
		byKind[row.Kind] = row
	}
	pods, ok := byKind["pods"]
	if !ok {
		t.Fatalf("pods row missing: %v", rows)
	}
	if pods.API != "v1/pods" || pods.Scope != "namespaced" {
		t.Fatalf("unexpected pods row: %+v", pods)
	}
	if deploys := byKind["deployments"]; deploys.API != "apps/v1/deployments" {
		t.Fatalf("unexpected deployments API: %+v", deploys)
	}
}

func TestKindsCommandRejectsUnknownFormat(t *testing.T) {
	cmd := newKindsCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "csv"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
