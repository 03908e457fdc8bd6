package config

// SiteSettings is the operator-editable configuration stored in the database
// (options table, key="settings"). It is patched as deep-merged JSON through
// the settings module.
type SiteSettings struct {
	Site           SiteOptions           `json:"site"`
	ProblemReports ProblemReportOptions  `json:"problem_reports"`
	Media          MediaOptions          `json:"media"`
	Transcode      TranscodeOptions      `json:"transcode"`
	S3             S3Options             `json:"s3"`
	Discord        DiscordOptions        `json:"discord"`
	AI             AIOptions             `json:"ai"`
}

type SiteOptions struct {
	Name      string `json:"name"`
	PublicURL string `json:"public_url"`
	Timezone  string `json:"timezone"`
}

type ProblemReportOptions struct {
	AllowAnonymous bool `json:"allow_anonymous"`
	// WindowHours/MaxPerWindow bound visitor submissions per IP per instance.
	WindowHours  int `json:"window_hours"`
	MaxPerWindow int `json:"max_per_window"`
}

type MediaOptions struct {
	AllowedPhotoExts []string `json:"allowed_photo_exts"`
	AllowedVideoExts []string `json:"allowed_video_exts"`
	MaxPhotoBytes    int64    `json:"max_photo_bytes"`
	MaxVideoBytes    int64    `json:"max_video_bytes"`
}

// TranscodeOptions configures the video pipeline and the sibling worker
// service that stores finished renditions.
type TranscodeOptions struct {
	FFmpegPath  string   `json:"ffmpeg_path"`
	FFprobePath string   `json:"ffprobe_path"`
	ExtraArgs   []string `json:"extra_args"`
	WorkerURL   string   `json:"worker_url"`
	WorkerToken string   `json:"worker_token"`
}

type S3Options struct {
	Enable          bool   `json:"enable"`
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	PathStyleAccess bool   `json:"path_style_access"`
	CustomDomain    string `json:"custom_domain"`
}

type DiscordOptions struct {
	Enable bool `json:"enable"`
	// PublicKey verifies ed25519 signatures on ingested messages.
	PublicKey string `json:"public_key"`
	// DefaultChannel labels records created from chat.
	DefaultChannel string `json:"default_channel"`
}

type AIOptions struct {
	Enable bool   `json:"enable"`
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// DefaultSiteSettings returns the defaults applied before the first
// operator edit.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		Site: SiteOptions{
			Name:     "The Flip",
			Timezone: "America/Los_Angeles",
		},
		ProblemReports: ProblemReportOptions{
			AllowAnonymous: true,
			WindowHours:    24,
			MaxPerWindow:   3,
		},
		Media: MediaOptions{
			AllowedPhotoExts: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
			AllowedVideoExts: []string{".mp4", ".mov", ".webm", ".mkv"},
			MaxPhotoBytes:    20 << 20,
			MaxVideoBytes:    512 << 20,
		},
		Transcode: TranscodeOptions{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		AI: AIOptions{
			Model: "claude-sonnet-4-5",
		},
	}
}
