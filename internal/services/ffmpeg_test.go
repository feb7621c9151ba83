package services

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/pipeline/internal/models"
)

func TestProfileFor(t *testing.T) {
	preview := ProfileFor(models.QualityPreview)
	assert.Equal(t, 960, preview.Width)
	assert.Equal(t, 540, preview.Height)
	assert.Equal(t, 23, preview.CRF)

	premium := ProfileFor(models.QualityPremium)
	assert.Equal(t, 3840, premium.Width)
	assert.Equal(t, "slow", premium.Preset)
	assert.Equal(t, "15000k", premium.VideoBitrate)

	// Unknown tiers fall back to standard.
	fallback := ProfileFor(models.QualityTier("ultra"))
	assert.Equal(t, ProfileFor(models.QualityStandard), fallback)
}

func TestSceneClipArgsImage(t *testing.T) {
	profile := ProfileFor(models.QualityPreview)
	args := sceneClipArgs("/tmp/asset.jpg", models.AssetImage, "/tmp/audio.wav", "/tmp/out.mp4", 4.5, profile)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-loop 1")
	assert.Contains(t, joined, "-t 4.500")
	assert.Contains(t, joined, "scale=960:540")
	assert.Equal(t, "/tmp/out.mp4", args[len(args)-1])
}

func TestSceneClipArgsVideoLoops(t *testing.T) {
	profile := ProfileFor(models.QualityPreview)
	args := sceneClipArgs("/tmp/asset.mp4", models.AssetVideo, "/tmp/audio.wav", "/tmp/out.mp4", 8.0, profile)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-stream_loop -1")
	assert.NotContains(t, joined, "-loop 1")
}

func TestSceneClipArgsPlaceholder(t *testing.T) {
	profile := ProfileFor(models.QualityPreview)
	args := sceneClipArgs("", models.AssetImage, "/tmp/audio.wav", "/tmp/out.mp4", 3.0, profile)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-f lavfi")
	assert.Contains(t, joined, "color=c=0x45B7D1:s=960x540")
	// No scale filter on a source already sized to the profile.
	assert.NotContains(t, joined, "-vf")
}

func TestSceneClipArgsDeterministic(t *testing.T) {
	profile := ProfileFor(models.QualityStandard)
	a := sceneClipArgs("/tmp/x.jpg", models.AssetImage, "/tmp/a.wav", "/tmp/o.mp4", 2.0, profile)
	b := sceneClipArgs("/tmp/x.jpg", models.AssetImage, "/tmp/a.wav", "/tmp/o.mp4", 2.0, profile)
	assert.Equal(t, a, b)
}

func TestConcatArgsWatermark(t *testing.T) {
	args := concatArgs("/tmp/list.txt", "/tmp/out.mp4", true, "ClipForge AI")
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "drawtext=text='ClipForge AI'")
	assert.Contains(t, joined, "-c:v libx264")

	// Without a watermark the streams copy straight through.
	plain := concatArgs("/tmp/list.txt", "/tmp/out.mp4", false, "ClipForge AI")
	assert.Contains(t, strings.Join(plain, " "), "-c copy")
	assert.NotContains(t, strings.Join(plain, " "), "drawtext")
}

func TestTranscodeArgsByTier(t *testing.T) {
	std := transcodeArgs("/tmp/draft.mp4", "/tmp/final.mp4", ProfileFor(models.QualityStandard), models.FormatMP4)
	joined := strings.Join(std, " ")
	assert.Contains(t, joined, "scale=1920:1080")
	assert.Contains(t, joined, "-crf 20")
	assert.Contains(t, joined, "-b:v 5000k")
	assert.Contains(t, joined, "+faststart")

	mov := transcodeArgs("/tmp/draft.mp4", "/tmp/final.mov", ProfileFor(models.QualityPremium), models.FormatMOV)
	joinedMov := strings.Join(mov, " ")
	assert.Contains(t, joinedMov, "-crf 18")
	assert.NotContains(t, joinedMov, "faststart")
}

func TestEscapeFilterText(t *testing.T) {
	require.Equal(t, `a\\b\:c`, escapeFilterText(`a\b:c`))
}

func TestCleanupTolerantOfMissingFiles(t *testing.T) {
	svc, err := NewFFmpegService("ffmpeg", "ffprobe", t.TempDir(), "")
	require.NoError(t, err)

	path := svc.CreateTempFile("scratch.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	svc.Cleanup(path, svc.CreateTempFile("never-created.txt"))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
