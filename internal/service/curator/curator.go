// Package curator turns the raw format list reported by the extractor into a
// short, deduplicated menu: up to three video entries of distinct heights,
// best first, and at most one audio entry.
package curator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/1rayanharoon/videodl/internal/entity"
)

const (
	MaxVideoEntries = 3

	// bytes per kbps per second (1000 / 8)
	bytesPerKbpsSecond = 125

	resolutionUnknown   = "N/A"
	resolutionBest      = "Best Available"
	resolutionAudioOnly = "Audio Only"

	noteCombined  = "(Video+Audio)"
	noteMerged    = "Auto-merged with audio"
	noteFallback  = "Best Quality (Auto)"
	noteAudioOnly = "Best Quality Audio (MP3)"
)

// Curate builds the video and audio menus for one video. It is total: the
// video menu is never empty and the audio menu holds at most one entry.
func Curate(formats []entity.StreamFormat, durationSeconds float64) ([]entity.CuratedFormat, []entity.CuratedFormat) {
	var combined, videoOnly, audioOnly []entity.StreamFormat

	for _, f := range formats {
		switch {
		case f.HasVideo() && f.HasAudio():
			combined = append(combined, f)
		case f.HasVideo():
			videoOnly = append(videoOnly, f)
		case f.HasAudio():
			audioOnly = append(audioOnly, f)
		}
	}

	slices.SortStableFunc(combined, comparePreference)
	slices.SortStableFunc(videoOnly, comparePreference)

	bestAudio := bestAudioFormat(audioOnly)

	m := &menuBuilder{
		duration:  durationSeconds,
		bestAudio: bestAudio,
	}

	lowerCombined := combined
	switch {
	case len(combined) > 0:
		m.addCombined(&combined[0])
		lowerCombined = combined[1:]
	case len(videoOnly) > 0:
		m.addMerged(&videoOnly[0])
	}

	m.fillLower(lowerCombined, m.addCombined)
	m.fillLower(videoOnly, m.addMerged)

	video := m.entries
	if len(video) == 0 {
		video = []entity.CuratedFormat{fallbackEntry()}
	}

	var audio []entity.CuratedFormat
	if len(audioOnly) > 0 || len(combined) > 0 {
		audio = append(audio, m.audioEntry())
	}

	return video, audio
}

// EstimateSize returns duration × bitrate × 125 bytes, or nil when either
// input is unknown.
func EstimateSize(bitrateKbps, durationSeconds float64) *int64 {
	if bitrateKbps <= 0 || durationSeconds <= 0 {
		return nil
	}

	size := int64(durationSeconds * bitrateKbps * bytesPerKbpsSecond)

	return &size
}

// formatSize prefers the exact size, then the approximate one, then the
// bitrate estimate.
func formatSize(f *entity.StreamFormat, bitrate, durationSeconds float64) *int64 {
	switch {
	case f.FileSize > 0:
		size := f.FileSize
		return &size
	case f.FileSizeApprox > 0:
		size := f.FileSizeApprox
		return &size
	}

	return EstimateSize(bitrate, durationSeconds)
}

// comparePreference orders by (mp4 container, height, bitrate) descending.
func comparePreference(a, b entity.StreamFormat) int {
	if c := cmp.Compare(boolRank(b.Ext == entity.ExtMP4), boolRank(a.Ext == entity.ExtMP4)); c != 0 {
		return c
	}

	if c := cmp.Compare(b.Height, a.Height); c != 0 {
		return c
	}

	return cmp.Compare(b.Bitrate, a.Bitrate)
}

func boolRank(b bool) int {
	if b {
		return 1
	}

	return 0
}

// bestAudioFormat returns the first audio-only format with the highest
// bitrate, or nil.
func bestAudioFormat(audioOnly []entity.StreamFormat) *entity.StreamFormat {
	var best *entity.StreamFormat
	for i := range audioOnly {
		if best == nil || audioOnly[i].Bitrate > best.Bitrate {
			best = &audioOnly[i]
		}
	}

	return best
}

type menuBuilder struct {
	duration  float64
	bestAudio *entity.StreamFormat
	entries   []entity.CuratedFormat
	heights   []int
}

func (m *menuBuilder) full() bool {
	return len(m.entries) >= MaxVideoEntries
}

func (m *menuBuilder) picked(height int) bool {
	return slices.Contains(m.heights, height)
}

// fillLower appends candidates whose height is below the first pick and not
// picked yet, until the menu is full.
func (m *menuBuilder) fillLower(candidates []entity.StreamFormat, add func(*entity.StreamFormat)) {
	if len(m.heights) == 0 {
		return
	}

	top := m.heights[0]
	for i := range candidates {
		if m.full() {
			return
		}

		h := candidates[i].Height
		if h < top && !m.picked(h) {
			add(&candidates[i])
		}
	}
}

func (m *menuBuilder) addCombined(f *entity.StreamFormat) {
	note := strings.TrimSpace(f.Note)
	if note != "" {
		note += " "
	}

	m.heights = append(m.heights, f.Height)
	m.entries = append(m.entries, entity.CuratedFormat{
		FormatID:   f.ID,
		Ext:        f.Ext,
		Resolution: resolution(f),
		Height:     f.Height,
		Size:       formatSize(f, f.Bitrate, m.duration),
		Note:       note + noteCombined,
	})
}

func (m *menuBuilder) addMerged(f *entity.StreamFormat) {
	note := noteMerged
	if f.Height > 0 {
		note = fmt.Sprintf("%dp MP4 (%s)", f.Height, noteMerged)
	}

	size := formatSize(f, f.Bitrate, m.duration)
	if audioSize := m.bestAudioSize(); size != nil && audioSize != nil {
		total := *size + *audioSize
		size = &total
	}

	m.heights = append(m.heights, f.Height)
	m.entries = append(m.entries, entity.CuratedFormat{
		FormatID:   entity.MergedFormatPrefix + f.ID,
		Ext:        f.Ext,
		Resolution: resolution(f),
		Height:     f.Height,
		Size:       size,
		Note:       note,
	})
}

func (m *menuBuilder) bestAudioSize() *int64 {
	if m.bestAudio == nil {
		return nil
	}

	bitrate := m.bestAudio.Bitrate
	if bitrate <= 0 {
		bitrate = m.bestAudio.AudioBitrate
	}

	return formatSize(m.bestAudio, bitrate, m.duration)
}

func (m *menuBuilder) audioEntry() entity.CuratedFormat {
	return entity.CuratedFormat{
		FormatID:   entity.FormatIDAudioOnly,
		Ext:        entity.ExtMP3,
		Resolution: resolutionAudioOnly,
		Size:       m.bestAudioSize(),
		Note:       noteAudioOnly,
	}
}

func fallbackEntry() entity.CuratedFormat {
	return entity.CuratedFormat{
		FormatID:   entity.FormatIDBestMP4,
		Ext:        entity.ExtMP4,
		Resolution: resolutionBest,
		Note:       noteFallback,
	}
}

func resolution(f *entity.StreamFormat) string {
	if f.Resolution == "" {
		return resolutionUnknown
	}

	return f.Resolution
}
