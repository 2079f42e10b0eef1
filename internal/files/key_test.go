package files

import (
	"errors"
	"testing"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		file    string
		want    string
		wantErr bool
	}{
		{name: "simple", owner: "alice", file: "a.txt", want: "alice/a.txt"},
		{name: "spaces inside", owner: "alice", file: "my report.pdf", want: "alice/my report.pdf"},
		{name: "unicode", owner: "zoë", file: "résumé.docx", want: "zoë/résumé.docx"},
		{name: "dots inside name", owner: "alice", file: "..hidden", want: "alice/..hidden"},
		{name: "empty owner", owner: "", file: "a.txt", wantErr: true},
		{name: "blank file", owner: "alice", file: "  ", wantErr: true},
		{name: "slash in owner", owner: "a/b", file: "a.txt", wantErr: true},
		{name: "backslash in file", owner: "alice", file: `x\y`, wantErr: true},
		{name: "dot file", owner: "alice", file: ".", wantErr: true},
		{name: "dotdot owner", owner: "..", file: "a.txt", wantErr: true},
		{name: "newline", owner: "alice", file: "a\n.txt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectKey(tt.owner, tt.file)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ObjectKey(%q, %q) = %q, want %q", tt.owner, tt.file, got, tt.want)
			}
		})
	}
}

func TestOwnerPrefix(t *testing.T) {
	got, err := ownerPrefix("bob")
	if err != nil || got != "bob/" {
		t.Fatalf("ownerPrefix = %q, %v", got, err)
	}
	if _, err := ownerPrefix(""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
