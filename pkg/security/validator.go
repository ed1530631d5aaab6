package security

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Validator enforces input limits on images before they are rasterized
type Validator struct {
	maxFileSize         int64
	maxPixels           int64
	maxCompressionRatio float64
}

// NewValidator creates a new security validator
func NewValidator(maxFileSize, maxPixels int64, maxCompressionRatio float64) *Validator {
	slog.Debug("security_validator_init",
		"max_file_size_mb", maxFileSize/1024/1024,
		"max_pixels", maxPixels,
		"max_compression_ratio", maxCompressionRatio)

	return &Validator{
		maxFileSize:         maxFileSize,
		maxPixels:           maxPixels,
		maxCompressionRatio: maxCompressionRatio,
	}
}

// ValidatePath checks that name, relative to root, stays inside root.
// Used for files dropped into a watched folder.
func (v *Validator) ValidatePath(root, name string) error {
	rel := name
	if filepath.IsAbs(name) {
		r, err := filepath.Rel(root, name)
		if err != nil {
			slog.Error("security_path_validation_failed", "path", name, "reason", "outside_root")
			return fmt.Errorf("security: path %s is not under %s", name, root)
		}
		rel = r
	}

	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		slog.Error("security_path_validation_failed", "path", name, "reason", "path_traversal")
		return fmt.Errorf("security: path traversal detected: %s", name)
	}

	return nil
}

// ValidateSymlink resolves path and rejects symlinks that point outside root.
// Regular files pass unchanged.
func (v *Validator) ValidateSymlink(root, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("security: stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return nil
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		slog.Error("security_symlink_validation_failed", "symlink", path, "error", err)
		return fmt.Errorf("security: resolve symlink %s: %w", path, err)
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("security: resolve root %s: %w", root, err)
	}

	if err := v.ValidatePath(resolvedRoot, resolved); err != nil {
		slog.Error("security_symlink_validation_failed",
			"symlink", path,
			"resolved", resolved)
		return fmt.Errorf("security: symlink %s escapes %s", path, root)
	}

	slog.Debug("security_symlink_validated", "symlink", path, "resolved", resolved)
	return nil
}

// ValidateFileSize checks if an encoded image exceeds max file size
func (v *Validator) ValidateFileSize(size int64) error {
	if size > v.maxFileSize {
		slog.Error("security_file_size_exceeded",
			"file_size_mb", size/1024/1024,
			"max_file_size_mb", v.maxFileSize/1024/1024)
		return fmt.Errorf("security: file size %d exceeds max %d", size, v.maxFileSize)
	}
	return nil
}

// ValidateDimensions checks decoded image dimensions against the pixel budget
func (v *Validator) ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("security: invalid dimensions %dx%d", width, height)
	}

	pixels := int64(width) * int64(height)
	if pixels > v.maxPixels {
		slog.Error("security_pixel_count_exceeded",
			"width", width,
			"height", height,
			"max_pixels", v.maxPixels)
		return fmt.Errorf("security: image %dx%d exceeds max %d pixels", width, height, v.maxPixels)
	}
	return nil
}

// ValidateCompressionRatio checks for decompression bombs: the raw RGBA
// size of a width x height image against its encoded size.
func (v *Validator) ValidateCompressionRatio(encodedSize int64, width, height int) error {
	if encodedSize == 0 {
		slog.Error("security_compression_validation_failed", "reason", "zero_encoded_size")
		return fmt.Errorf("security: encoded size cannot be zero")
	}

	rawSize := int64(width) * int64(height) * 4
	ratio := float64(rawSize) / float64(encodedSize)

	if ratio > v.maxCompressionRatio {
		slog.Error("security_decompression_bomb_detected",
			"ratio", ratio,
			"max_ratio", v.maxCompressionRatio,
			"encoded_bytes", encodedSize,
			"raw_bytes", rawSize)
		return fmt.Errorf("security: compression ratio %.2f exceeds max %.2f (encoded: %d, raw: %d)",
			ratio, v.maxCompressionRatio, encodedSize, rawSize)
	}

	slog.Debug("security_compression_validated", "ratio", ratio, "encoded_bytes", encodedSize, "raw_bytes", rawSize)
	return nil
}
