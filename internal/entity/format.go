package entity

const (
	CodecNone = "none"
	ExtMP4    = "mp4"
	ExtMP3    = "mp3"

	// Synthesized menu format ids understood by the downloader.
	FormatIDBestMP4    = "best_mp4"
	FormatIDAudioOnly  = "audio_only"
	MergedFormatPrefix = "merged_"
)

// StreamFormat is one raw format reported by the extractor for a video.
// Zero numeric values mean the extractor did not report the field.
type StreamFormat struct {
	ID             string
	Ext            string
	Resolution     string
	Height         int
	FPS            float64
	Bitrate        float64 // total bitrate, kbps
	AudioBitrate   float64 // kbps
	FileSize       int64
	FileSizeApprox int64
	VideoCodec     string
	AudioCodec     string
	Note           string
}

func (f *StreamFormat) HasVideo() bool {
	return f.VideoCodec != "" && f.VideoCodec != CodecNone
}

func (f *StreamFormat) HasAudio() bool {
	return f.AudioCodec != "" && f.AudioCodec != CodecNone
}

// CuratedFormat is a user-facing menu entry. FormatID may be synthesized
// (merge directive, fallback or audio extraction target).
type CuratedFormat struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Height     int    `json:"height"`
	Size       *int64 `json:"filesize"`
	Note       string `json:"format_note"`
}
