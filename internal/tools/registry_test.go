package tools

import (
	"context"
	"errors"
	"testing"
)

func noop(ctx context.Context, args map[string]any) (string, error) { return "", nil }

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d tools", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:        "test_tool",
		Description: "A test tool",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "success", nil
		},
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := reg.Get("test_tool")
	if got == nil {
		t.Fatal("Get returned nil for registered tool")
	}
	if got.Name != "test_tool" {
		t.Errorf("got name %q, want %q", got.Name, "test_tool")
	}
	if !reg.Has("test_tool") || reg.Has("other") {
		t.Error("Has returned wrong answer")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	tool := &Tool{Name: "dupe", Execute: noop}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(tool); !errors.Is(err, ErrToolAlreadyRegistered) {
		t.Fatalf("expected ErrToolAlreadyRegistered, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{name: "empty name", tool: &Tool{Execute: noop}, wantErr: ErrToolNameEmpty},
		{name: "nil execute", tool: &Tool{Name: "x"}, wantErr: ErrToolExecuteNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.tool)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, n := range []string{"search", "list_files", "read_file"} {
		reg.MustRegister(&Tool{Name: n, Execute: noop})
	}

	names := reg.Names()
	want := []string{"list_files", "read_file", "search"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
	if all := reg.All(); all[0].Name != "list_files" {
		t.Errorf("All() not sorted: first is %s", all[0].Name)
	}
}

func TestJSONSchema(t *testing.T) {
	s := ToolSchema{
		Required: []string{"path"},
		Properties: map[string]Property{
			"path":      {Type: "string", Description: "file"},
			"max_lines": {Type: "integer", Description: "cap", Default: 500},
		},
	}
	js := s.JSONSchema()
	if js["type"] != "object" {
		t.Fatalf("type = %v", js["type"])
	}
	props := js["properties"].(map[string]any)
	if props["max_lines"].(map[string]any)["default"] != 500 {
		t.Errorf("default not carried: %v", props["max_lines"])
	}

	empty := ToolSchema{}.JSONSchema()
	if req, ok := empty["required"].([]string); !ok || req == nil {
		t.Errorf("required should be an empty slice, got %#v", empty["required"])
	}
}
