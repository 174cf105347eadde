package domain

import "time"

// PhotoRecord - metadata for one photo in a party album
type PhotoRecord struct {
	PartyKey    string    `json:"partyKey" dynamodbav:"partyKey"` // Partition Key
	PhotoKey    string    `json:"photoKey" dynamodbav:"photoKey"` // Sort Key, also the object key
	ContentType string    `json:"contentType,omitempty" dynamodbav:"contentType,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt" dynamodbav:"uploadedAt"`
	Deleted     bool      `json:"deleted,omitempty" dynamodbav:"deleted,omitempty"`
}

// PhotoPage is one raw page read from the photo store, before soft-deleted
// records are filtered out.
type PhotoPage struct {
	Records    []PhotoRecord
	NextCursor *string
}

// Photo is a listed photo annotated with a temporary download URL.
type Photo struct {
	PhotoKey   string    `json:"photoKey"`
	PartyKey   string    `json:"partyKey"`
	UploadedAt time.Time `json:"uploadedAt"`
	URL        string    `json:"url"`
}

type PhotoList struct {
	Photos     []Photo `json:"photos"`
	NextCursor *string `json:"nextCursor"`
}

type ListPhotosQuery struct {
	PartyKey string
	Cursor   string
	Limit    int
}

// FileDescriptor describes one file a guest intends to upload.
type FileDescriptor struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type UploadGrant struct {
	FileName     string    `json:"fileName"`
	PhotoKey     string    `json:"photoKey"`
	UploadedAt   time.Time `json:"uploadedAt"`
	PresignedURL string    `json:"presignedUrl"`
}

type UploadError struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

type BatchUploadRequest struct {
	PartyKey string           `json:"partyKey"`
	Files    []FileDescriptor `json:"files"`
}

// BatchUploadResult holds exactly one outcome per submitted file.
type BatchUploadResult struct {
	Uploads []UploadGrant `json:"uploads"`
	Errors  []UploadError `json:"errors"`
}
