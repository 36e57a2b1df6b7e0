// Binary file detection utility for early rejection of non-text files
// Prevents tree-sitter from attempting to parse binary data as source code
package scanner

import (
	"bytes"
	"path/filepath"
	"strings"
)

// BinaryDetector handles detection of binary files that should not be analyzed
type BinaryDetector struct {
	binaryExtensions map[string]bool
}

// NewBinaryDetector creates a new binary file detector with comprehensive extension database
func NewBinaryDetector() *BinaryDetector {
	extensions := map[string]bool{
		// Font files
		".woff":  true,
		".woff2": true,
		".ttf":   true,
		".otf":   true,
		".eot":   true,

		// Image files
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".gif":  true,
		".bmp":  true,
		".ico":  true,
		".webp": true,
		".svg":  false, // SVG is text-based XML
		".tiff": true,
		".tif":  true,

		// Archive files
		".zip": true,
		".tar": true,
		".gz":  true,
		".bz2": true,
		".xz":  true,
		".7z":  true,
		".rar": true,
		".jar": true,
		".war": true,
		".ear": true,

		// Binary executables
		".exe":   true,
		".dll":   true,
		".so":    true,
		".dylib": true,
		".a":     true,
		".o":     true,
		".obj":   true,
		".bin":   true,

		// Media files
		".mp3":  true,
		".mp4":  true,
		".avi":  true,
		".mov":  true,
		".wmv":  true,
		".flv":  true,
		".wav":  true,
		".flac": true,
		".ogg":  true,

		// Document files (binary formats)
		".pdf":  true,
		".doc":  true,
		".docx": true,
		".xls":  true,
		".xlsx": true,
		".ppt":  true,
		".pptx": true,

		// Database files
		".db":      true,
		".sqlite":  true,
		".sqlite3": true,

		// Compiled bytecode
		".pyc":    true, // Python bytecode
		".pyo":    true, // Python optimized bytecode
		".class":  true, // Java bytecode
		".pickle": true,
		".pkl":    true,
	}

	return &BinaryDetector{
		binaryExtensions: extensions,
	}
}

// IsBinaryByExtension checks if a file is binary based on its extension
func (bd *BinaryDetector) IsBinaryByExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}

	isBinary, exists := bd.binaryExtensions[ext]
	return exists && isBinary
}

// IsBinaryByContent checks if content is binary using magic number detection
// plus a NUL-byte heuristic over the first 512 bytes
func (bd *BinaryDetector) IsBinaryByContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	checkLen := 512
	if len(content) < checkLen {
		checkLen = len(content)
	}
	sample := content[:checkLen]

	// Common binary file signatures (magic numbers)
	if bytes.HasPrefix(sample, []byte{0x1F, 0x8B}) {
		return true // gzip
	}
	if bytes.HasPrefix(sample, []byte{0x50, 0x4B, 0x03, 0x04}) ||
		bytes.HasPrefix(sample, []byte{0x50, 0x4B, 0x05, 0x06}) {
		return true // ZIP
	}
	if bytes.HasPrefix(sample, []byte{0x89, 0x50, 0x4E, 0x47}) {
		return true // PNG
	}
	if bytes.HasPrefix(sample, []byte{0xFF, 0xD8, 0xFF}) {
		return true // JPEG
	}
	if bytes.HasPrefix(sample, []byte{0x47, 0x49, 0x46, 0x38}) {
		return true // GIF
	}
	if bytes.HasPrefix(sample, []byte{0x25, 0x50, 0x44, 0x46}) {
		return true // PDF
	}
	if bytes.HasPrefix(sample, []byte{0x7F, 0x45, 0x4C, 0x46}) {
		return true // ELF (Linux executable)
	}
	if bytes.HasPrefix(sample, []byte{0x4D, 0x5A}) {
		return true // DOS/Windows executable
	}
	if bytes.HasPrefix(sample, []byte{0xCA, 0xFE, 0xBA, 0xBE}) {
		return true // Mach-O (macOS executable)
	}
	if bytes.HasPrefix(sample, []byte{0x77, 0x4F, 0x46, 0x46}) ||
		bytes.HasPrefix(sample, []byte{0x77, 0x4F, 0x46, 0x32}) {
		return true // WOFF/WOFF2 fonts
	}

	// Text files should not contain NUL bytes
	return bytes.IndexByte(sample, 0x00) >= 0
}
