package selector

import (
	"testing"

	"github.com/tubegate/tubegate/internal/media"
)

func video(label string, hasAudio bool, bitrate int, length int64) media.Encoding {
	return media.Encoding{
		Kind:          media.KindVideo,
		QualityLabel:  label,
		Container:     "mp4",
		HasVideo:      true,
		HasAudio:      hasAudio,
		Bitrate:       bitrate,
		ContentLength: length,
	}
}

func audio(container string, bitrate int) media.Encoding {
	return media.Encoding{
		Kind:      media.KindAudio,
		Container: container,
		HasAudio:  true,
		Bitrate:   bitrate,
	}
}

func TestSelect_FallbackLadder4K(t *testing.T) {
	// Requesting 4k against {1080p combined, 720p combined} walks
	// 2160p -> 1440p -> 1080p and returns the 1080p combined encoding.
	encodings := []media.Encoding{
		video("720p", true, 0, 0),
		video("1080p", true, 0, 0),
	}
	got := Select(encodings, media.Request{Kind: media.KindVideo, Quality: media.Quality4K})
	if got == nil || got.QualityLabel != "1080p" {
		t.Fatalf("got %+v, want the 1080p encoding", got)
	}
}

func TestSelect_VideoOnlyPreferredAbove720(t *testing.T) {
	encodings := []media.Encoding{
		video("1080p", true, 0, 0),  // combined
		video("1080p", false, 0, 0), // video-only
	}
	got := Select(encodings, media.Request{Kind: media.KindVideo, Quality: media.Quality1080p})
	if got == nil || got.HasAudio {
		t.Fatalf("got %+v, want the video-only 1080p encoding", got)
	}
}

func TestSelect_CombinedPreferredAtLowTiers(t *testing.T) {
	encodings := []media.Encoding{
		video("720p", false, 0, 0),
		video("720p", true, 0, 0),
	}
	got := Select(encodings, media.Request{Kind: media.KindVideo, Quality: media.Quality720p})
	if got == nil || !got.HasAudio {
		t.Fatalf("got %+v, want the combined 720p encoding", got)
	}
}

func TestSelect_LabelVariantsNormalize(t *testing.T) {
	encodings := []media.Encoding{
		video("1080p60", false, 0, 0),
	}
	got := Select(encodings, media.Request{Kind: media.KindVideo, Quality: media.Quality1080p})
	if got == nil || got.QualityLabel != "1080p60" {
		t.Fatalf("got %+v, want the 1080p60 encoding to match the 1080p tier", got)
	}
}

func TestSelect_HighestAndLowest(t *testing.T) {
	encodings := []media.Encoding{
		video("360p", true, 0, 0),
		video("1440p", false, 0, 0),
		video("720p", true, 0, 0),
	}
	got := Select(encodings, media.Request{Kind: media.KindVideo, Quality: media.QualityHighest})
	if got == nil || got.QualityLabel != "1440p" {
		t.Fatalf("highest: got %+v, want 1440p", got)
	}
	got = Select(encodings, media.Request{Kind: media.KindVideo, Quality: media.QualityLowest})
	if got == nil || got.QualityLabel != "360p" {
		t.Fatalf("lowest: got %+v, want 360p", got)
	}
}

func TestSelect_360FallsBackToLowest(t *testing.T) {
	encodings := []media.Encoding{
		video("480p", true, 0, 0),
		video("1080p", true, 0, 0),
	}
	got := Select(encodings, media.Request{Kind: media.KindVideo, Quality: media.Quality360p})
	if got == nil || got.QualityLabel != "480p" {
		t.Fatalf("got %+v, want the lowest (480p) encoding", got)
	}
}

func TestSelect_AudioHighestBitrate(t *testing.T) {
	encodings := []media.Encoding{
		audio("webm", 128000),
		audio("m4a", 256000),
		audio("m4a", 64000),
	}
	got := Select(encodings, media.Request{Kind: media.KindAudio, Quality: media.QualityHighest})
	if got == nil || got.Bitrate != 256000 {
		t.Fatalf("got %+v, want the 256k encoding", got)
	}
}

func TestSelect_AudioNoBitrateTakesFirst(t *testing.T) {
	encodings := []media.Encoding{
		audio("m4a", 0),
		audio("webm", 0),
	}
	got := Select(encodings, media.Request{Kind: media.KindAudio, Quality: media.QualityHighest})
	if got == nil || got.Container != "m4a" {
		t.Fatalf("got %+v, want the first audio-only encoding", got)
	}
}

func TestSelect_AudioContainerPreference(t *testing.T) {
	encodings := []media.Encoding{
		audio("webm", 160000),
		audio("m4a", 128000),
	}
	got := Select(encodings, media.Request{Kind: media.KindAudio, Quality: "m4a"})
	if got == nil || got.Container != "m4a" {
		t.Fatalf("got %+v, want the m4a encoding despite lower bitrate", got)
	}
}

func TestSelect_NeverErrors(t *testing.T) {
	if got := Select(nil, media.Request{Kind: media.KindVideo, Quality: media.Quality1080p}); got != nil {
		t.Fatalf("empty set should return nil, got %+v", got)
	}
	onlyAudio := []media.Encoding{audio("m4a", 128000)}
	if got := Select(onlyAudio, media.Request{Kind: media.KindVideo, Quality: media.Quality1080p}); got != nil {
		t.Fatalf("video request against audio-only set should return nil, got %+v", got)
	}
}

func TestSelect_Deterministic(t *testing.T) {
	encodings := []media.Encoding{
		video("1080p", false, 4_000_000, 0),
		video("1080p", false, 3_000_000, 0),
		video("720p", true, 0, 0),
	}
	req := media.Request{Kind: media.KindVideo, Quality: media.Quality1080p}
	first := Select(encodings, req)
	for i := 0; i < 10; i++ {
		if got := Select(encodings, req); got != first {
			t.Fatal("Select is not deterministic for identical inputs")
		}
	}
}

func TestEstimateSize(t *testing.T) {
	declared := video("1080p", false, 4_000_000, 123456)
	size, estimated := EstimateSize(&declared, 300)
	if size != 123456 || estimated {
		t.Fatalf("declared size: got (%d, %v)", size, estimated)
	}

	undeclared := video("1080p", false, 4_000_000, 0)
	size, estimated = EstimateSize(&undeclared, 300)
	if size != int64(300)*4_000_000/8 || !estimated {
		t.Fatalf("estimated size: got (%d, %v)", size, estimated)
	}
}
