package limits

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid simple name", "report.pdf", nil},
		{"valid name with spaces", "annual report 2024.xlsx", nil},
		{"empty name", "", ErrNameEmpty},
		{"too long", strings.Repeat("a", MaxFileNameLength+1), ErrNameTooLong},
		{"exactly at limit", strings.Repeat("a", MaxFileNameLength), nil},
		{"forward slash", "dir/file.txt", ErrPathTraversal},
		{"backslash", `dir\file.txt`, ErrPathTraversal},
		{"dot", ".", ErrPathTraversal},
		{"dot dot", "..", ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFileName(%q) = %v, want nil", tt.input, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFileName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRelativePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"valid nested path", "docs/reports/q1.pdf", "docs/reports/q1.pdf", nil},
		{"single component", "readme.md", "readme.md", nil},
		{"cleans redundant separators", "docs//reports/./q1.pdf", "docs/reports/q1.pdf", nil},
		{"empty", "", "", ErrNameEmpty},
		{"parent traversal", "../etc/passwd", "", ErrPathTraversal},
		{"embedded traversal", "docs/../../etc/passwd", "", ErrPathTraversal},
		{"absolute path", "/etc/passwd", "", ErrPathTraversal},
		{"too long", strings.Repeat("d/", MaxRelativePathLength/2) + "f", "", ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateRelativePath(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateRelativePath(%q) error = %v, want nil", tt.input, err)
				}
				if got != tt.want {
					t.Errorf("ValidateRelativePath(%q) = %q, want %q", tt.input, got, tt.want)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRelativePath(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFileCount(t *testing.T) {
	if err := ValidateFileCount(1); err != nil {
		t.Errorf("ValidateFileCount(1) = %v, want nil", err)
	}
	if err := ValidateFileCount(MaxFileCount); err != nil {
		t.Errorf("ValidateFileCount(max) = %v, want nil", err)
	}
	if err := ValidateFileCount(0); !errors.Is(err, ErrFileCountInvalid) {
		t.Errorf("ValidateFileCount(0) = %v, want ErrFileCountInvalid", err)
	}
	if err := ValidateFileCount(-3); !errors.Is(err, ErrFileCountInvalid) {
		t.Errorf("ValidateFileCount(-3) = %v, want ErrFileCountInvalid", err)
	}
	if err := ValidateFileCount(MaxFileCount + 1); !errors.Is(err, ErrFileCountInvalid) {
		t.Errorf("ValidateFileCount(max+1) = %v, want ErrFileCountInvalid", err)
	}
}

func TestValidateHash(t *testing.T) {
	valid := strings.Repeat("ab12", 16)
	if err := ValidateHash(valid); err != nil {
		t.Errorf("ValidateHash(valid) = %v, want nil", err)
	}
	if err := ValidateHash(strings.ToUpper(valid)); err != nil {
		t.Errorf("ValidateHash(uppercase) = %v, want nil", err)
	}
	if err := ValidateHash("abc"); !errors.Is(err, ErrHashInvalid) {
		t.Errorf("ValidateHash(short) = %v, want ErrHashInvalid", err)
	}
	bad := strings.Repeat("zz12", 16)
	if err := ValidateHash(bad); !errors.Is(err, ErrHashInvalid) {
		t.Errorf("ValidateHash(non-hex) = %v, want ErrHashInvalid", err)
	}
}
