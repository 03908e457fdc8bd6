package models

// MediaKind distinguishes photo and video attachments.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// TranscodeStatus is the lifecycle state of a video's processing pipeline.
// Photos are born Ready.
type TranscodeStatus string

const (
	TranscodePending    TranscodeStatus = "pending"
	TranscodeProcessing TranscodeStatus = "processing"
	TranscodeReady      TranscodeStatus = "ready"
	TranscodeFailed     TranscodeStatus = "failed"
)

// MediaRefType names the record a media attachment belongs to.
type MediaRefType string

const (
	MediaRefReport MediaRefType = "report"
	MediaRefLog    MediaRefType = "log"
)

// MediaAttachmentModel is a photo or video attached to a problem report or
// a log entry. Videos carry transcode pipeline state.
type MediaAttachmentModel struct {
	Base
	RefType      MediaRefType    `json:"ref_type"  gorm:"index;not null"`
	RefID        string          `json:"ref_id"    gorm:"index;not null"`
	Kind         MediaKind       `json:"kind"      gorm:"index;not null"`
	FileName     string          `json:"file_name" gorm:"not null"`
	StoredPath   string          `json:"-"         gorm:"not null"`
	ContentType  string          `json:"content_type"`
	SizeBytes    int64           `json:"size_bytes"`
	Duration     float64         `json:"duration,omitempty"`
	PosterPath   string          `json:"-"`
	RemoteURL    string          `json:"remote_url,omitempty"`
	ArchiveURL   string          `json:"archive_url,omitempty"`
	Status       TranscodeStatus `json:"status"    gorm:"index;default:'pending'"`
	FailureCause string          `json:"failure_cause,omitempty" gorm:"type:text"`
	UploaderID   *string         `json:"uploader_id" gorm:"index"`
}

func (MediaAttachmentModel) TableName() string { return "media_attachments" }
