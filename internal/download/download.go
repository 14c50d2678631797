package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// ErrChecksumMismatch is returned when the fetched bytes do not hash to the
// expected SHA-256.
var ErrChecksumMismatch = errors.New("checksum mismatch")

type Request struct {
	URL         string
	Destination string
	// SHA256 is the expected hex digest. Empty skips verification.
	SHA256 string
}

// Fetcher downloads files to disk through a ".part" file that is renamed
// into place only after the checksum matches.
type Fetcher struct {
	Client  *http.Client
	Logger  *zap.Logger
	Retries int
	// Progress receives a byte progress bar. Nil draws nothing.
	Progress io.Writer
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

func (f *Fetcher) Fetch(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.URL) == "" {
		return errors.New("download URL is required")
	}
	if strings.TrimSpace(req.Destination) == "" {
		return errors.New("destination path is required")
	}

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	retries := f.Retries
	if retries <= 0 {
		retries = 3
	}
	backoff := f.Backoff
	if backoff <= 0 {
		backoff = 300 * time.Millisecond
	}

	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			f.logger().Warn("retrying download", zap.Int("attempt", attempt), zap.Int("max", retries), zap.String("url", req.URL), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * backoff):
			}
		}

		err = f.fetchOnce(ctx, req)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

// retryable keeps client errors, bad digests and cancellation from being
// retried. A mirror serving the wrong bytes serves them again.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrChecksumMismatch) {
		return false
	}
	var status statusError
	if errors.As(err, &status) {
		return status.code >= 500 || status.code == http.StatusTooManyRequests
	}
	return true
}

func (f *Fetcher) fetchOnce(ctx context.Context, req Request) error {
	partPath := req.Destination + ".part"

	out, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	done := false
	defer func() {
		_ = out.Close()
		if !done {
			_ = os.Remove(partPath)
		}
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "pengolodh/1")

	resp, err := f.client().Do(httpReq)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError{code: resp.StatusCode}
	}

	hash := sha256.New()
	writers := []io.Writer{out, hash}
	var bar *progressbar.ProgressBar
	if f.Progress != nil && resp.ContentLength > 0 {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription("downloading "+filepath.Base(req.Destination)),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetWriter(f.Progress),
			progressbar.OptionClearOnFinish(),
		)
		writers = append(writers, bar)
	}

	written, err := io.Copy(io.MultiWriter(writers...), resp.Body)
	if err != nil {
		return fmt.Errorf("download body: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := checkDigest(hex.EncodeToString(hash.Sum(nil)), req.SHA256); err != nil {
		return err
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(partPath, req.Destination); err != nil {
		return fmt.Errorf("move temp file into destination: %w", err)
	}

	done = true
	f.logger().Info("download finished", zap.String("path", req.Destination), zap.Int64("bytes", written))
	return nil
}

// VerifyFile hashes the file at path against expectedSHA256.
func VerifyFile(path, expectedSHA256 string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file for checksum: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("hash file: %w", err)
	}
	return checkDigest(hex.EncodeToString(hash.Sum(nil)), expectedSHA256)
}

func checkDigest(actual, expected string) error {
	expected = strings.ToLower(strings.TrimSpace(expected))
	if expected == "" || actual == expected {
		return nil
	}
	return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return &http.Client{Timeout: 10 * time.Minute}
	}
	return f.Client
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
