package models

import "time"

type ArtifactKind string

const (
	KindEbook ArtifactKind = "ebook"
	KindVideo ArtifactKind = "video"
)

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobFinished JobStatus = "finished"
	JobError    JobStatus = "error"
)

// ConversionRequest lives for one orchestration call only.
type ConversionRequest struct {
	SourceURL   string `json:"sourceUrl"`
	Filename    string `json:"filename,omitempty"`
	ContentID   string `json:"contentId,omitempty"`
	RequesterID string `json:"requesterId,omitempty"`
	// StoragePath lets a video request point at an object already in storage.
	StoragePath string `json:"storagePath,omitempty"`
}

// ConversionJob is one outstanding call to the document conversion provider.
type ConversionJob struct {
	JobID        string    `json:"jobId"`
	Status       JobStatus `json:"status"`
	ResultURL    string    `json:"resultUrl,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

func (j *ConversionJob) Terminal() bool {
	return j.Status == JobFinished || j.Status == JobError
}

type ConversionResult struct {
	ArtifactURL   string  `json:"artifactUrl"`
	ProviderJobID *string `json:"providerJobId,omitempty"`
	StoragePath   *string `json:"storagePath"`
	Cached        bool    `json:"cached,omitempty"`
}

type VideoResult struct {
	PlaybackID *string `json:"playbackId"`
	AssetID    *string `json:"assetId"`
	Status     *string `json:"status"`
	Cached     bool    `json:"cached,omitempty"`
}

type VideoStatus struct {
	Status     *string `json:"status"`
	PlaybackID *string `json:"playbackId"`
	AssetID    *string `json:"assetId"`
}

// VideoAsset is the transcoder's view of an asset.
type VideoAsset struct {
	ID         string
	Status     string
	PlaybackID string
	CreatedAt  time.Time
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
