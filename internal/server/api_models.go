package server

// DownloadRequest is the payload for starting a download resolution.
type DownloadRequest struct {
	URL     string `json:"url" example:"https://www.youtube.com/watch?v=dQw4w9WgXcQ"`
	Kind    string `json:"kind" example:"video"`
	Quality string `json:"quality" example:"1080p"`
}

// DownloadResponse describes a resolved download ready to stream.
type DownloadResponse struct {
	Title       string `json:"title" example:"Never Gonna Give You Up"`
	FileSize    string `json:"fileSize" example:"12.5 MB"`
	Thumbnail   string `json:"thumbnail" example:"https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"`
	DownloadURL string `json:"downloadUrl" example:"/stream/aHR0cHM6Ly8uLi4/Never_Gonna_Give_You_Up_1700000000.mp4"`
	Filename    string `json:"filename" example:"Never_Gonna_Give_You_Up_1700000000.mp4"`
}

// ErrorResponse is a uniform error payload returned by the API.
// RetryAfter is set (in seconds) for rate-limit and block errors.
type ErrorResponse struct {
	Error      string `json:"error" example:"too many requests"`
	RetryAfter int    `json:"retryAfter,omitempty" example:"600"`
}
