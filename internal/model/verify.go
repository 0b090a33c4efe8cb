package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the model file does not exist.
var ErrNotFound = errors.New("model file not found")

type Status int

const (
	// StatusUnverified means no real expected checksum is configured.
	StatusUnverified Status = iota
	StatusVerified
	StatusMismatch
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusMismatch:
		return "mismatch"
	default:
		return "unverified"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Report describes one integrity check.
type Report struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256"`
	Expected string `json:"expected,omitempty"`
	Status   Status `json:"status"`
	Cached   bool   `json:"cached"`
}

// OK reports whether the model may be used.
func (r *Report) OK() bool { return r.Status != StatusMismatch }

// DigestCache persists computed digests between runs.
type DigestCache interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

// Verifier checks a model file against an expected SHA-256.
type Verifier struct {
	expected    string
	placeholder string
	cache       DigestCache
	logger      *slog.Logger
}

// NewVerifier builds a Verifier. An empty expected value, or one equal to
// placeholder, only reports the digest. cache may be nil.
func NewVerifier(expected, placeholder string, cache DigestCache, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Verifier{
		expected:    strings.ToLower(strings.TrimSpace(expected)),
		placeholder: strings.ToLower(placeholder),
		cache:       cache,
		logger:      logger,
	}
}

// CheckExists returns ErrNotFound (wrapped with the path) when the model
// file is absent.
func CheckExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("checking model file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", path)
	}
	return nil
}

func (v *Verifier) Verify(ctx context.Context, path string) (*Report, error) {
	if err := CheckExists(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("checking model file: %w", err)
	}

	report := &Report{Path: path, Size: info.Size(), Expected: v.expected}

	key := cacheKey(path)
	if digest, ok := v.cachedDigest(key, info); ok {
		report.SHA256 = digest
		report.Cached = true
	} else {
		startTime := time.Now()
		digest, err := hashFile(ctx, path)
		if err != nil {
			return nil, err
		}
		v.logger.Debug("hashed model file",
			"path", path,
			"size", info.Size(),
			"elapsed", time.Since(startTime),
		)
		report.SHA256 = digest
		v.storeDigest(key, info, digest)
	}

	switch {
	case v.expected == "" || v.expected == v.placeholder:
		report.Status = StatusUnverified
	case report.SHA256 == v.expected:
		report.Status = StatusVerified
	default:
		report.Status = StatusMismatch
	}
	return report, nil
}

func hashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: f}); err != nil {
		return "", fmt.Errorf("hashing model file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ctxReader stops a long read once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "model_sha256:" + path
}

// cache values are "<size>:<mtime unix nanos>:<digest>"
func (v *Verifier) cachedDigest(key string, info os.FileInfo) (string, bool) {
	if v.cache == nil {
		return "", false
	}
	value, err := v.cache.GetState(key)
	if err != nil {
		v.logger.Debug("reading digest cache failed", "error", err)
		return "", false
	}
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 {
		return "", false
	}
	size, err1 := strconv.ParseInt(parts[0], 10, 64)
	mtime, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || size != info.Size() || mtime != info.ModTime().UnixNano() {
		return "", false
	}
	return parts[2], true
}

func (v *Verifier) storeDigest(key string, info os.FileInfo, digest string) {
	if v.cache == nil {
		return
	}
	value := fmt.Sprintf("%d:%d:%s", info.Size(), info.ModTime().UnixNano(), digest)
	if err := v.cache.SetState(key, value); err != nil {
		v.logger.Debug("writing digest cache failed", "error", err)
	}
}
