package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// FFmpegService
// Runs ffmpeg/ffprobe as subprocesses. All argument lists are built by pure
// functions of the inputs so the same scene set always produces the same
// command line; the subprocess boundary is the only nondeterminism.
// ---------------------------------------------------------------------------

const videoFPS = 30

// RenderProfile is the encoder configuration for one quality tier.
type RenderProfile struct {
	Width        int
	Height       int
	VideoBitrate string
	Preset       string
	CRF          int
}

// renderProfiles maps each quality tier to its encoder settings. Composition
// always renders the preview profile; export re-encodes at the requested
// tier.
var renderProfiles = map[models.QualityTier]RenderProfile{
	models.QualityPreview:  {Width: 960, Height: 540, VideoBitrate: "2500k", Preset: "medium", CRF: 23},
	models.QualityStandard: {Width: 1920, Height: 1080, VideoBitrate: "5000k", Preset: "medium", CRF: 20},
	models.QualityPremium:  {Width: 3840, Height: 2160, VideoBitrate: "15000k", Preset: "slow", CRF: 18},
}

// ProfileFor returns the encoder settings for tier, defaulting to standard.
func ProfileFor(tier models.QualityTier) RenderProfile {
	if p, ok := renderProfiles[tier]; ok {
		return p
	}
	return renderProfiles[models.QualityStandard]
}

// FFmpegService shells out to ffmpeg and ffprobe.
type FFmpegService struct {
	ffmpegPath    string
	ffprobePath   string
	tempDir       string
	watermarkText string
}

// NewFFmpegService creates the service and its scratch directory.
func NewFFmpegService(ffmpegPath, ffprobePath, tempDir, watermarkText string) (*FFmpegService, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &FFmpegService{
		ffmpegPath:    ffmpegPath,
		ffprobePath:   ffprobePath,
		tempDir:       tempDir,
		watermarkText: watermarkText,
	}, nil
}

// ---------------------------------------------------------------------------
// Scene clips
// ---------------------------------------------------------------------------

// RenderSceneClip turns one scene's visual and audio into a clip of exactly
// the scene's duration. assetPath may be empty for placeholder scenes, which
// render as a solid-color source so the timeline never loses a scene.
func (s *FFmpegService) RenderSceneClip(ctx context.Context, assetPath string, assetType models.AssetType, audioPath, outputPath string, duration float64, profile RenderProfile) error {
	args := sceneClipArgs(assetPath, assetType, audioPath, outputPath, duration, profile)
	return s.runFFmpeg(ctx, "render scene clip", args)
}

// sceneClipArgs builds the full ffmpeg argument list for one scene clip.
func sceneClipArgs(assetPath string, assetType models.AssetType, audioPath, outputPath string, duration float64, profile RenderProfile) []string {
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d",
		profile.Width, profile.Height, profile.Width, profile.Height, videoFPS)

	var args []string
	switch {
	case assetPath == "":
		// Placeholder scene: solid color sized to the profile.
		src := fmt.Sprintf("color=c=0x45B7D1:s=%dx%d:r=%d:d=%.3f",
			profile.Width, profile.Height, videoFPS, duration)
		args = []string{"-f", "lavfi", "-i", src}
	case assetType == models.AssetImage:
		// Loop the still for the scene duration.
		args = []string{"-loop", "1", "-t", fmt.Sprintf("%.3f", duration), "-i", assetPath}
	default:
		// Loop video footage shorter than the scene; -t trims the excess.
		args = []string{"-stream_loop", "-1", "-t", fmt.Sprintf("%.3f", duration), "-i", assetPath}
	}

	args = append(args, "-i", audioPath)

	if assetPath != "" {
		args = append(args, "-vf", scale)
	}

	return append(args,
		"-c:v", "libx264",
		"-preset", profile.Preset,
		"-crf", fmt.Sprintf("%d", profile.CRF),
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-t", fmt.Sprintf("%.3f", duration),
		"-y",
		outputPath,
	)
}

// ---------------------------------------------------------------------------
// Concatenation and watermark
// ---------------------------------------------------------------------------

// ConcatenateClips joins scene clips in order into a single draft video,
// optionally burning the watermark text into the corner.
func (s *FFmpegService) ConcatenateClips(ctx context.Context, clipPaths []string, outputPath string, watermark bool) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := filepath.Join(s.tempDir, fmt.Sprintf("concat-%s.txt", filepath.Base(outputPath)))
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	for _, path := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := concatArgs(listPath, outputPath, watermark, s.watermarkText)
	return s.runFFmpeg(ctx, "concatenate clips", args)
}

func concatArgs(listPath, outputPath string, watermark bool, watermarkText string) []string {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}

	if watermark && watermarkText != "" {
		// Burning text forces a re-encode; without it the streams copy through.
		drawtext := fmt.Sprintf(
			"drawtext=text='%s':fontcolor=white@0.6:fontsize=h/20:x=w-tw-20:y=h-th-20",
			escapeFilterText(watermarkText))
		args = append(args,
			"-vf", drawtext,
			"-c:v", "libx264",
			"-c:a", "copy",
		)
	} else {
		args = append(args, "-c", "copy")
	}

	return append(args, "-y", outputPath)
}

// escapeFilterText escapes characters ffmpeg filter strings treat specially.
func escapeFilterText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ":", "\\:")
	text = strings.ReplaceAll(text, "'", "'\\''")
	return text
}

// ---------------------------------------------------------------------------
// Export encoding
// ---------------------------------------------------------------------------

// Transcode re-encodes the draft at the requested tier and container format.
func (s *FFmpegService) Transcode(ctx context.Context, inputPath, outputPath string, profile RenderProfile, format models.ExportFormat) error {
	args := transcodeArgs(inputPath, outputPath, profile, format)
	return s.runFFmpeg(ctx, "transcode", args)
}

func transcodeArgs(inputPath, outputPath string, profile RenderProfile, format models.ExportFormat) []string {
	args := []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			profile.Width, profile.Height, profile.Width, profile.Height),
		"-c:v", "libx264",
		"-preset", profile.Preset,
		"-crf", fmt.Sprintf("%d", profile.CRF),
		"-b:v", profile.VideoBitrate,
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
	}
	if format == models.FormatMP4 {
		// Move the moov atom up front for progressive playback.
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, "-y", outputPath)
}

// ExtractThumbnail grabs a single frame at the given offset as a JPEG.
func (s *FFmpegService) ExtractThumbnail(ctx context.Context, videoPath, outputPath string, atSeconds float64) error {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", atSeconds),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "3",
		"-y",
		outputPath,
	}
	return s.runFFmpeg(ctx, "extract thumbnail", args)
}

// ---------------------------------------------------------------------------
// Probing
// ---------------------------------------------------------------------------

// ProbeDuration returns the media duration in seconds using ffprobe.
func (s *FFmpegService) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, s.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// ---------------------------------------------------------------------------
// Scratch files and process plumbing
// ---------------------------------------------------------------------------

// CreateTempFile returns a path inside the scratch directory.
func (s *FFmpegService) CreateTempFile(filename string) string {
	return filepath.Join(s.tempDir, filename)
}

// Cleanup removes scratch files. Files already gone are fine; anything else
// is logged and never escalated.
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("failed to remove scratch file")
		}
	}
}

// runFFmpeg executes ffmpeg with stderr captured, so a failed render carries
// the encoder's own diagnostics as the failure reason.
func (s *FFmpegService) runFFmpeg(ctx context.Context, op string, args []string) error {
	log.Debug().Str("op", op).Strs("args", args).Msg("running ffmpeg")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w: %s", op, err, lastStderrLine(&stderr))
	}
	return nil
}

// lastStderrLine trims ffmpeg's chatty stderr down to its final line, which
// is where ffmpeg puts the actual error.
func lastStderrLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
