package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePath_PathTraversal(t *testing.T) {
	v := NewValidator(1024, 1024, 10.0)
	root := "/srv/drop"

	tests := []struct {
		path      string
		shouldErr bool
	}{
		{"code.png", false},
		{"dir/code.png", false},
		{"../etc/passwd", true},
		{"dir/../code.png", false},
		{"dir/../../etc/passwd", true},
		{"/srv/drop/code.png", false},
		{"/srv/other/code.png", true},
		{"..hidden.png", false},
	}

	for _, tt := range tests {
		err := v.ValidatePath(root, tt.path)
		if tt.shouldErr && err == nil {
			t.Errorf("expected error for path: %s", tt.path)
		}
		if !tt.shouldErr && err != nil {
			t.Errorf("unexpected error for path %s: %v", tt.path, err)
		}
	}
}

func TestValidateSymlink(t *testing.T) {
	v := NewValidator(1024, 1024, 10.0)

	root := t.TempDir()
	outside := t.TempDir()

	inside := filepath.Join(root, "code.png")
	if err := os.WriteFile(inside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(outside, "secret.png")
	if err := os.WriteFile(secret, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := v.ValidateSymlink(root, inside); err != nil {
		t.Errorf("regular file rejected: %v", err)
	}

	good := filepath.Join(root, "alias.png")
	if err := os.Symlink(inside, good); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := v.ValidateSymlink(root, good); err != nil {
		t.Errorf("in-root symlink rejected: %v", err)
	}

	bad := filepath.Join(root, "escape.png")
	if err := os.Symlink(secret, bad); err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateSymlink(root, bad); err == nil {
		t.Error("expected error for symlink escaping root")
	}
}

func TestValidateFileSize(t *testing.T) {
	v := NewValidator(100, 1000, 10.0)

	if err := v.ValidateFileSize(50); err != nil {
		t.Errorf("expected no error for size 50, got: %v", err)
	}

	if err := v.ValidateFileSize(150); err == nil {
		t.Error("expected error for size 150 exceeding limit 100")
	}
}

func TestValidateDimensions(t *testing.T) {
	v := NewValidator(1024, 100*100, 10.0)

	if err := v.ValidateDimensions(100, 100); err != nil {
		t.Errorf("unexpected error at the limit: %v", err)
	}
	if err := v.ValidateDimensions(101, 100); err == nil {
		t.Error("expected error above pixel limit")
	}
	if err := v.ValidateDimensions(0, 10); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestValidateCompressionRatio(t *testing.T) {
	v := NewValidator(1024, 1<<20, 10.0)

	// 10x10 RGBA = 400 raw bytes
	if err := v.ValidateCompressionRatio(40, 10, 10); err != nil {
		t.Errorf("expected no error for ratio 10.0, got: %v", err)
	}

	if err := v.ValidateCompressionRatio(20, 10, 10); err == nil {
		t.Error("expected error for ratio 20.0 exceeding limit 10.0")
	}

	if err := v.ValidateCompressionRatio(0, 10, 10); err == nil {
		t.Error("expected error for zero encoded size")
	}
}
