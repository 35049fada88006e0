package main

import (
	"os"

	"github.com/maksimsarychau/mcp-zebrunner/internal/analysis"
	"github.com/maksimsarychau/mcp-zebrunner/internal/config"
	"github.com/maksimsarychau/mcp-zebrunner/internal/logging"
	"github.com/maksimsarychau/mcp-zebrunner/internal/media"
	"github.com/maksimsarychau/mcp-zebrunner/internal/zebrunner"
)

// loadConfig reads the config file named by --config (or defaults plus
// environment) and initializes logging. Logs go to stderr: stdout belongs
// to the MCP transport.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return cfg, err
	}
	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, os.Stderr)
	return cfg, nil
}

// buildPipeline wires the Zebrunner client and the media collaborators into
// an analyzer. The adapter doubles as the lookup surface for the MCP tools.
func buildPipeline(cfg config.Config) (*analysis.Analyzer, *zebrunner.Adapter, error) {
	client, err := zebrunner.New(cfg.Zebrunner.BaseURL, cfg.Zebrunner.AccessToken,
		zebrunner.WithLogger(logging.New("zebrunner")))
	if err != nil {
		return nil, nil, err
	}
	adapter := zebrunner.NewAdapter(client)

	downloader := media.NewDownloader(cfg.Video.WorkDir, nil, &media.FFProbe{}, logging.New("media"))
	extractor := media.NewExtractor(&media.Tesseract{}, logging.New("media"))

	analyzer := analysis.NewAnalyzer(adapter, adapter, downloader, extractor, logging.New("analysis"))
	return analyzer, adapter, nil
}
