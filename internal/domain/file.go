package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType is the detected type of an uploaded file
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeXLSX FileType = "xlsx"
)

// MaxUploadSize is the largest accepted upload in bytes
const MaxUploadSize int64 = 10 * 1024 * 1024

// AllowedFileTypes lists the types accepted for upload
var AllowedFileTypes = map[FileType]bool{
	FileTypePDF:  true,
	FileTypeXLSX: true,
}

// DetectFileType returns the file type for a filename based on its extension
func DetectFileType(filename string) (FileType, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ft := FileType(ext)
	return ft, AllowedFileTypes[ft]
}

// UploadedFile is a file stored for a session
type UploadedFile struct {
	OriginalName string    `json:"original_name"`
	StoredPath   string    `json:"-"`
	Type         FileType  `json:"file_type"`
	Size         int64     `json:"file_size"`
	SessionID    string    `json:"session_id"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// FileFailure reports a file that could not be accepted or read
type FileFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// UploadResult is the outcome of an upload request
type UploadResult struct {
	Files    []UploadedFile `json:"files"`
	Failures []FileFailure  `json:"failures,omitempty"`
}
