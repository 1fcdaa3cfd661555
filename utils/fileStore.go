package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Temp binary store for uploaded workbooks. Files live here only for the
// duration of one processing run; the orchestrator removes them on both
// success and failure paths.

func tempUploadDir() string {
	if dir := strings.TrimSpace(os.Getenv("UPLOAD_TMP_DIR")); dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), "salesfacts-uploads")
}

// SaveTempUpload streams the uploaded content to a temp file and returns
// (path, sha256 hex, size).
func SaveTempUpload(fileName string, content io.Reader) (string, string, int64, error) {
	dir := tempUploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("could not create upload dir: %v", err)
	}

	ext := filepath.Ext(fileName)
	tmp, err := os.CreateTemp(dir, "upload_*"+ext)
	if err != nil {
		return "", "", 0, fmt.Errorf("could not create temp file: %v", err)
	}
	defer tmp.Close()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), content)
	if err != nil {
		os.Remove(tmp.Name())
		return "", "", 0, fmt.Errorf("could not write temp file: %v", err)
	}

	return tmp.Name(), hex.EncodeToString(hasher.Sum(nil)), size, nil
}

// RemoveTempUpload deletes a processed file. Missing files are not an error:
// cleanup runs on every exit path and may race a previous cleanup.
func RemoveTempUpload(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
