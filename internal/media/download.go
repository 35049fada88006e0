package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/maksimsarychau/mcp-zebrunner/internal/analysis"
)

// Downloader fetches session recordings into per-run scratch directories.
// Each run gets its own directory so concurrent analyses never share
// temporary storage; CleanupVideo removes the whole directory.
type Downloader struct {
	workDir    string
	httpClient *http.Client
	prober     Prober
	logger     *slog.Logger
}

var _ analysis.VideoDownloader = (*Downloader)(nil)

// NewDownloader returns a Downloader writing under workDir. A nil
// httpClient falls back to http.DefaultClient; a nil prober skips
// duration/resolution probing.
func NewDownloader(workDir string, httpClient *http.Client, prober Prober, logger *slog.Logger) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		workDir:    workDir,
		httpClient: httpClient,
		prober:     prober,
		logger:     logger,
	}
}

// DownloadVideo streams the recording at url into local storage. Transport
// and HTTP-status failures are reported inside the result rather than as an
// error, so the caller sees the collaborator's message verbatim.
func (d *Downloader) DownloadVideo(ctx context.Context, url string, testID int, sessionID string) (*analysis.DownloadResult, error) {
	runDir := filepath.Join(d.workDir, fmt.Sprintf("analysis-%d-%s", testID, uuid.NewString()))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	localPath := filepath.Join(runDir, "video.mp4")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		os.RemoveAll(runDir)
		return &analysis.DownloadResult{Success: false, Error: fmt.Sprintf("video download failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.RemoveAll(runDir)
		return &analysis.DownloadResult{
			Success: false,
			Error:   fmt.Sprintf("video download failed: HTTP %d from %s", resp.StatusCode, url),
		}, nil
	}

	out, err := os.Create(localPath)
	if err != nil {
		os.RemoveAll(runDir)
		return nil, fmt.Errorf("create video file: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.RemoveAll(runDir)
		return &analysis.DownloadResult{Success: false, Error: fmt.Sprintf("video download failed: %v", err)}, nil
	}

	d.logger.Info("video downloaded",
		"session", sessionID, "path", localPath, "bytes", written)

	result := &analysis.DownloadResult{Success: true, LocalPath: localPath}
	if d.prober != nil {
		if info, err := d.prober.Probe(ctx, localPath); err != nil {
			d.logger.Warn("video probe failed", "path", localPath, "error", err)
		} else {
			result.DurationSeconds = info.DurationSeconds
			result.Resolution = info.Resolution
		}
	}
	return result, nil
}

// CleanupVideo removes the run directory holding the downloaded video and
// any frames extracted next to it.
func (d *Downloader) CleanupVideo(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(filepath.Dir(path))
}
