// Package extractor runs yt-dlp as the extraction capability.
package extractor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"cantio/internal/core"
)

const defaultExecutable = "yt-dlp"

// ErrNoOutput is returned when yt-dlp succeeded but printed nothing, e.g. a search without hits.
var ErrNoOutput = errors.New("extractor returned no results")

// Error carries the upstream diagnostic text so it can be classified.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// YtDlp implements core.Extractor and core.MetadataSource on top of the yt-dlp binary.
type YtDlp struct {
	executable  string
	cookiesFile string
	logger      *zap.Logger
}

func New(cfg core.ExtractorConfig, logger *zap.Logger) *YtDlp {
	executable := cfg.Executable
	if executable == "" {
		executable = defaultExecutable
	}
	return &YtDlp{
		executable:  executable,
		cookiesFile: cfg.CookiesFile,
		logger:      logger.Named("extractor"),
	}
}

func (y *YtDlp) newCommand(proxy string) *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		SkipDownload()

	if y.executable != defaultExecutable {
		cmd.SetExecutable(y.executable)
	}
	if proxy != "" {
		cmd.Proxy(proxy)
	}
	if y.cookiesFile != "" {
		if _, err := os.Stat(y.cookiesFile); err == nil {
			cmd.Cookies(y.cookiesFile)
		} else {
			y.logger.Debug("Cookies file not present, continuing without", zap.String("path", y.cookiesFile))
		}
	}
	return cmd
}

// Extract dumps the info JSON for target using the given client profile and proxy.
func (y *YtDlp) Extract(ctx context.Context, target string, profile core.ClientProfile, proxy string) (*core.Extraction, error) {
	args := append(profileArgs(profile), target)

	res, err := y.newCommand(proxy).
		DumpJSON().
		Run(ctx, args...)
	if err != nil {
		return nil, commandError(res, err)
	}

	extraction, err := parseDumpJSON(res.Stdout)
	if err != nil {
		return nil, err
	}

	y.logger.Debug("Extraction finished",
		zap.String("target", target),
		zap.String("extractor", extraction.ExtractorID),
		zap.Int("formats", len(extraction.Formats)))
	return extraction, nil
}

// LookupMetadata is the metadata-only probe: it prints title and uploader without listing formats.
func (y *YtDlp) LookupMetadata(ctx context.Context, rawURL string) (*core.SourceMetadata, error) {
	res, err := y.newCommand("").
		Print("%(title)s\t%(uploader)s").
		Run(ctx, rawURL)
	if err != nil {
		return nil, commandError(res, err)
	}

	return parseMetadataLine(res.Stdout)
}

// profileArgs renders a client profile as yt-dlp flags.
func profileArgs(profile core.ClientProfile) []string {
	var args []string
	if profile.UserAgent != "" {
		args = append(args, "--add-headers", "User-Agent:"+profile.UserAgent)
	}
	if profile.AcceptLanguage != "" {
		args = append(args, "--add-headers", "Accept-Language:"+profile.AcceptLanguage)
	}
	// yt-dlp keeps only the last --extractor-args per extractor, so hints are joined into one value.
	for _, extractor := range slices.Sorted(maps.Keys(profile.ExtractionHints)) {
		hints := profile.ExtractionHints[extractor]
		if len(hints) == 0 {
			continue
		}
		args = append(args, "--extractor-args", extractor+":"+strings.Join(hints, ";"))
	}
	return args
}

func commandError(res *ytdlp.Result, err error) error {
	msg := ""
	if res != nil {
		msg = strings.TrimSpace(res.Stderr)
	}
	if msg == "" {
		msg = err.Error()
	}
	return &Error{Message: msg, Err: err}
}

type dumpFormat struct {
	FormatID string   `json:"format_id"`
	URL      string   `json:"url"`
	Ext      string   `json:"ext"`
	ACodec   string   `json:"acodec"`
	VCodec   string   `json:"vcodec"`
	ABR      *float64 `json:"abr"`
	TBR      *float64 `json:"tbr"`
}

type dumpInfo struct {
	ExtractorKey string       `json:"extractor_key"`
	Extractor    string       `json:"extractor"`
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	Duration     *float64     `json:"duration"`
	Thumbnail    string       `json:"thumbnail"`
	Uploader     string       `json:"uploader"`
	Formats      []dumpFormat `json:"formats"`
}

// parseDumpJSON decodes the first JSON object printed by --dump-json.
func parseDumpJSON(stdout string) (*core.Extraction, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var info dumpInfo
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			return nil, fmt.Errorf("decode extractor output: %w", err)
		}
		return info.toExtraction(), nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read extractor output: %w", err)
	}
	return nil, ErrNoOutput
}

func (info *dumpInfo) toExtraction() *core.Extraction {
	extractorID := info.ExtractorKey
	if extractorID == "" {
		extractorID = info.Extractor
	}

	formats := make([]core.FormatCandidate, 0, len(info.Formats))
	for _, f := range info.Formats {
		formats = append(formats, core.FormatCandidate{
			FormatID:       f.FormatID,
			URL:            f.URL,
			Extension:      f.Ext,
			AudioCodec:     f.ACodec,
			VideoCodec:     f.VCodec,
			AverageBitrate: f.ABR,
			TotalBitrate:   f.TBR,
		})
	}

	return &core.Extraction{
		ResolvedURL: info.URL,
		Formats:     formats,
		ExtractorID: extractorID,
		Title:       info.Title,
		Duration:    info.Duration,
		Thumbnail:   info.Thumbnail,
		Uploader:    info.Uploader,
	}
}

func parseMetadataLine(stdout string) (*core.SourceMetadata, error) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		title, uploader, _ := strings.Cut(line, "\t")
		title = strings.TrimSpace(title)
		if title == "" || title == "NA" {
			continue
		}
		uploader = strings.TrimSpace(uploader)
		if uploader == "NA" {
			uploader = ""
		}
		return &core.SourceMetadata{Title: title, Uploader: uploader}, nil
	}
	return nil, ErrNoOutput
}
