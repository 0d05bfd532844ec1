// Package filesystem stores the output of model runs as hashed log files.
package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsedash/scenariodb/internal/config"
)

const hashSuffix = ".sha256"

// GetRunLogPath returns where the log for jobID is stored.
func GetRunLogPath(jobID string) string {
	return filepath.Join(config.GetRunsDir(), jobID+".log")
}

// RunLog is an open run log. Its SHA-256 is recorded next to it on Close.
type RunLog struct {
	Path string

	f    *os.File
	h    hash.Hash
	w    io.Writer
	hash string
}

// CreateRunLog creates the log file for jobID, replacing any previous one.
func CreateRunLog(jobID string) (*RunLog, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) {
		return nil, fmt.Errorf("invalid job id %q", jobID)
	}
	if err := os.MkdirAll(config.GetRunsDir(), 0o750); err != nil {
		return nil, err
	}

	path := GetRunLogPath(jobID)
	//nolint:gosec // G304: path is built from the runs dir and a validated job id
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	return &RunLog{Path: path, f: f, h: h, w: io.MultiWriter(f, h)}, nil
}

func (l *RunLog) Write(p []byte) (int, error) {
	return l.w.Write(p)
}

// Close closes the log and writes its hash file.
func (l *RunLog) Close() error {
	if l.f == nil {
		return nil
	}
	if err := l.f.Close(); err != nil {
		return err
	}
	l.f = nil
	l.hash = hex.EncodeToString(l.h.Sum(nil))
	return os.WriteFile(l.Path+hashSuffix, []byte(l.hash+"\n"), 0o600)
}

// Hash returns the SHA-256 of the log once it is closed.
func (l *RunLog) Hash() string {
	return l.hash
}

// ReadRunLog reads a log from disk and returns its contents as a string.
func ReadRunLog(path string) (string, error) {
	//nolint:gosec // G304: path is produced by GetRunLogPath
	bytes, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// RunLogHash returns the hash recorded when the log at path was closed.
func RunLogHash(path string) (string, error) {
	//nolint:gosec // G304: path is produced by GetRunLogPath
	bytes, err := os.ReadFile(path + hashSuffix)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytes)), nil
}

// VerifyRunLog ensures the log exists and its SHA-256 matches expectedHash.
// An empty expectedHash checks against the recorded hash.
func VerifyRunLog(path, expectedHash string) (bool, error) {
	content, err := ReadRunLog(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if expectedHash == "" {
		expectedHash, err = RunLogHash(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	}
	return calculateHash(content) == expectedHash, nil
}

func calculateHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
