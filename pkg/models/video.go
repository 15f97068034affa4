package models

// VideoInfo holds metadata about a remote video
type VideoInfo struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	LengthSeconds float64 `json:"length_seconds"`
}
