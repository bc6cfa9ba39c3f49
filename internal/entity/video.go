package entity

// VideoInfo is the metadata the extractor returns for a single video.
type VideoInfo struct {
	Title     string
	Thumbnail string
	Duration  float64 // seconds
	Uploader  string
	Formats   []StreamFormat
}

// FormatMenu is the curated answer to an info request.
type FormatMenu struct {
	Title        string          `json:"title"`
	Thumbnail    string          `json:"thumbnail"`
	Duration     float64         `json:"duration"`
	Uploader     string          `json:"uploader"`
	VideoFormats []CuratedFormat `json:"video_formats"`
	AudioFormats []CuratedFormat `json:"audio_formats"`
}
