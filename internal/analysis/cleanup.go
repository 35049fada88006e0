package analysis

import (
	"log/slog"
	"sync"
)

// cleanupGuard owns the downloaded recording and its extracted frames for
// the duration of one run. It is acquired immediately after a successful
// download and released unconditionally at pipeline exit, so the local
// media is removed exactly once on both the success and the failure path.
type cleanupGuard struct {
	downloader VideoDownloader
	extractor  FrameExtractor
	videoPath  string
	logger     *slog.Logger

	mu     sync.Mutex
	frames []FrameAnalysis
	once   sync.Once
}

func newCleanupGuard(downloader VideoDownloader, extractor FrameExtractor, videoPath string, logger *slog.Logger) *cleanupGuard {
	return &cleanupGuard{
		downloader: downloader,
		extractor:  extractor,
		videoPath:  videoPath,
		logger:     logger,
	}
}

// SetFrames registers extracted frames for removal at release time.
func (g *cleanupGuard) SetFrames(frames []FrameAnalysis) {
	g.mu.Lock()
	g.frames = frames
	g.mu.Unlock()
}

// Release removes the video and any registered frames. Safe to call more
// than once; only the first call cleans up.
func (g *cleanupGuard) Release() {
	g.once.Do(func() {
		g.mu.Lock()
		frames := g.frames
		g.mu.Unlock()

		if len(frames) > 0 {
			if err := g.extractor.CleanupFrames(frames); err != nil {
				g.logger.Warn("frame cleanup failed", "error", err)
			}
		}
		if err := g.downloader.CleanupVideo(g.videoPath); err != nil {
			g.logger.Warn("video cleanup failed", "path", g.videoPath, "error", err)
		}
	})
}
