// Package selector picks the best-matching encoding for a quality
// request. Selection is deterministic: the same encoding set and
// request always yield the same descriptor.
package selector

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tubegate/tubegate/internal/media"
)

// fallbackLadders maps a requested video tier to the labels tried, in
// order, when no exact match exists. "highest" and "lowest" are
// resolved against whatever the set contains.
var fallbackLadders = map[string][]string{
	media.Quality4K:    {media.Quality2160p, media.Quality1440p, media.Quality1080p, media.QualityHighest},
	media.Quality2160p: {media.Quality2160p, media.Quality1440p, media.Quality1080p, media.QualityHighest},
	media.Quality1440p: {media.Quality1440p, media.Quality1080p, media.Quality720p, media.QualityHighest},
	media.Quality1080p: {media.Quality1080p, media.Quality720p, media.Quality480p, media.QualityHighest},
	media.Quality720p:  {media.Quality720p, media.Quality480p, media.Quality360p, media.QualityHighest},
	media.Quality480p:  {media.Quality480p, media.Quality360p, media.QualityLowest},
	media.Quality360p:  {media.Quality360p, media.QualityLowest},
}

// muxThreshold is the height above which a separate video-only stream
// is preferred. At or below it a combined stream wins because the relay
// does not mux audio back in for those tiers.
const muxThreshold = 720

// Select returns the best encoding for the request, or nil when nothing
// matches. It never errors; the caller treats nil as NoFormatAvailable.
func Select(encodings []media.Encoding, req media.Request) *media.Encoding {
	if len(encodings) == 0 {
		return nil
	}
	if req.Kind == media.KindAudio {
		return selectAudio(encodings, req.Quality)
	}
	return selectVideo(encodings, req.Quality)
}

// EstimateSize returns the byte size of enc, estimating it from
// duration and bitrate when no length was declared. The second return
// reports whether the value is an estimate.
func EstimateSize(enc *media.Encoding, durationSeconds int) (int64, bool) {
	if enc == nil {
		return 0, false
	}
	if enc.ContentLength > 0 {
		return enc.ContentLength, false
	}
	if durationSeconds > 0 && enc.Bitrate > 0 {
		return int64(durationSeconds) * int64(enc.Bitrate) / 8, true
	}
	return 0, true
}

func selectVideo(encodings []media.Encoding, quality string) *media.Encoding {
	ladder, ok := fallbackLadders[quality]
	if !ok {
		// highest, lowest, or an unknown tier treated as highest.
		ladder = []string{quality}
		if quality != media.QualityLowest {
			ladder = []string{media.QualityHighest}
		}
	}

	for _, tier := range ladder {
		var pick *media.Encoding
		switch tier {
		case media.QualityHighest:
			pick = pickExtreme(encodings, true)
		case media.QualityLowest:
			pick = pickExtreme(encodings, false)
		default:
			pick = pickAtTier(encodings, tier)
		}
		if pick != nil {
			return pick
		}
	}

	// Last resort: any encoding with video, video-only first.
	for i := range encodings {
		if encodings[i].HasVideo && !encodings[i].HasAudio {
			return &encodings[i]
		}
	}
	for i := range encodings {
		if encodings[i].HasVideo {
			return &encodings[i]
		}
	}
	return nil
}

// pickAtTier finds encodings whose label matches the tier and applies
// the video-only/combined preference for that tier's height.
func pickAtTier(encodings []media.Encoding, tier string) *media.Encoding {
	var videoOnly, combined *media.Encoding
	for i := range encodings {
		e := &encodings[i]
		if !e.HasVideo || tierOf(e.QualityLabel) != tier {
			continue
		}
		if e.HasAudio {
			if combined == nil {
				combined = e
			}
		} else if videoOnly == nil {
			videoOnly = e
		}
	}
	return preferForHeight(heightOf(tier), videoOnly, combined)
}

// pickExtreme resolves "highest"/"lowest" against the actual set.
func pickExtreme(encodings []media.Encoding, highest bool) *media.Encoding {
	candidates := make([]media.Encoding, 0, len(encodings))
	for _, e := range encodings {
		if e.HasVideo && heightOf(tierOf(e.QualityLabel)) > 0 {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		hi := heightOf(tierOf(candidates[i].QualityLabel))
		hj := heightOf(tierOf(candidates[j].QualityLabel))
		if highest {
			return hi > hj
		}
		return hi < hj
	})
	top := tierOf(candidates[0].QualityLabel)
	return pickAtTier(encodings, top)
}

// preferForHeight applies the mux rule: above the threshold a video-only
// stream wins, at or below it a combined stream wins when available.
func preferForHeight(height int, videoOnly, combined *media.Encoding) *media.Encoding {
	if height > muxThreshold {
		if videoOnly != nil {
			return videoOnly
		}
		return combined
	}
	if combined != nil {
		return combined
	}
	return videoOnly
}

func selectAudio(encodings []media.Encoding, quality string) *media.Encoding {
	audioOnly := make([]*media.Encoding, 0, len(encodings))
	for i := range encodings {
		if encodings[i].HasAudio && !encodings[i].HasVideo {
			audioOnly = append(audioOnly, &encodings[i])
		}
	}
	if len(audioOnly) == 0 {
		return nil
	}

	// Container preference narrows the pool when it matches anything.
	if quality != "" && quality != media.QualityHighest {
		matched := make([]*media.Encoding, 0, len(audioOnly))
		for _, e := range audioOnly {
			if strings.EqualFold(e.Container, quality) {
				matched = append(matched, e)
			}
		}
		if len(matched) > 0 {
			audioOnly = matched
		}
	}

	best := audioOnly[0]
	anyBitrate := false
	for _, e := range audioOnly {
		if e.Bitrate > 0 {
			anyBitrate = true
			if e.Bitrate > best.Bitrate {
				best = e
			}
		}
	}
	if !anyBitrate {
		return audioOnly[0]
	}
	return best
}

// tierOf normalizes a quality label to its tier: "1080p60" -> "1080p",
// "4k" -> "2160p".
func tierOf(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == media.Quality4K {
		return media.Quality2160p
	}
	i := strings.IndexByte(label, 'p')
	if i <= 0 {
		return label
	}
	if _, err := strconv.Atoi(label[:i]); err != nil {
		return label
	}
	return label[:i+1]
}

func heightOf(tier string) int {
	tier = strings.TrimSuffix(tier, "p")
	h, err := strconv.Atoi(tier)
	if err != nil {
		return 0
	}
	return h
}
