// Package view projects controller state into rows for display and renders
// them as a terminal table.
package view

import (
	"fmt"
	"path/filepath"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// RenderBytes formats n with binary units and two decimals, e.g. "128.00KB".
func RenderBytes(n int64) string {
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f%s", size, units[i])
}

// SizeMB formats n as megabytes, e.g. "0.01 MB".
func SizeMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}

// FormatList joins items as an English list: "a", "a and b", "a, b, and c".
func FormatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

// SizeCaption describes the size limits of a drop; empty when unlimited.
func SizeCaption(minSize, maxSize int64) string {
	switch {
	case minSize > 0 && maxSize > 0:
		return fmt.Sprintf("between %s and %s", RenderBytes(minSize), RenderBytes(maxSize))
	case minSize > 0:
		return "at least " + RenderBytes(minSize)
	case maxSize > 0:
		return "less than " + RenderBytes(maxSize)
	}
	return ""
}

// Heading is the call to action shown above an empty list.
func Heading(maxFiles int) string {
	if maxFiles == 1 {
		return "Upload a file"
	}
	return "Upload files"
}

// FileKind derives a type label from a file name: the lower-cased extension,
// "folder" for an empty name and "txt" when there is no extension.
func FileKind(name string) string {
	if name == "" {
		return "folder"
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "txt"
	}
	return ext
}
