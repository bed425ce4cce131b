// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package image

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tellama/internal/model"
)

// MaxFileSize bounds attachments; inference servers reject oversized
// payloads anyway, better to fail fast with a clear message.
const MaxFileSize = 20 << 20 // 20 MB

// ErrUnsupportedFormat is returned for file types the server cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrTooLarge is returned when the file exceeds MaxFileSize.
var ErrTooLarge = errors.New("image file too large")

// supportedExtensions are the formats multimodal models accept.
var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// IsSupported reports whether the path has a supported image extension.
func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// SupportedExtensions returns the accepted extensions, for help text.
func SupportedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}
}

// Load reads an image file and returns it as a base64 attachment.
func Load(path string) (model.Image, error) {
	if !IsSupported(path) {
		return model.Image{}, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedFormat, filepath.Ext(path), strings.Join(SupportedExtensions(), ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if info.IsDir() {
		return model.Image{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return model.Image{}, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to read image: %w", err)
	}

	return model.Image{
		Path: path,
		Data: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// LoadAll loads several image paths, stopping at the first failure.
func LoadAll(paths []string) ([]model.Image, error) {
	images := make([]model.Image, 0, len(paths))
	for _, p := range paths {
		img, err := Load(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}
