package models

// Entry is one listed or stat'ed storage entry. Directories are synthetic:
// a key ending in "/" or a backend-reported common prefix.
type Entry struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified int64   `json:"lastModified"`
	ETag         *string `json:"etag,omitempty"`
	ContentType  *string `json:"contentType,omitempty"`
	IsDirectory  bool    `json:"isDirectory"`
}

// ListPage is one page of a folder listing. IsTruncated is true iff
// ContinuationToken is set.
type ListPage struct {
	Objects           []Entry  `json:"objects"`
	Prefixes          []string `json:"prefixes"`
	ContinuationToken *string  `json:"continuationToken,omitempty"`
	IsTruncated       bool     `json:"isTruncated"`
}

// ObjectMetadata is the extended head-object view from the administrative client.
type ObjectMetadata struct {
	Key                string            `json:"key"`
	Size               int64             `json:"size"`
	LastModified       *int64            `json:"lastModified,omitempty"`
	ETag               *string           `json:"etag,omitempty"`
	ContentType        *string           `json:"contentType,omitempty"`
	ContentEncoding    *string           `json:"contentEncoding,omitempty"`
	ContentDisposition *string           `json:"contentDisposition,omitempty"`
	ContentLanguage    *string           `json:"contentLanguage,omitempty"`
	CacheControl       *string           `json:"cacheControl,omitempty"`
	StorageClass       *string           `json:"storageClass,omitempty"`
	VersionID          *string           `json:"versionId,omitempty"`
	CustomMetadata     map[string]string `json:"customMetadata"`
}

type BucketInfo struct {
	Name      string  `json:"name"`
	CreatedAt *int64  `json:"createdAt,omitempty"`
	Region    *string `json:"region,omitempty"`
}

// BucketStats is computed by walking every object; it is never an estimate.
type BucketStats struct {
	Name        string `json:"name"`
	ObjectCount int64  `json:"objectCount"`
	TotalSize   int64  `json:"totalSize"`
}

// Progress is a best-effort transfer notification.
type Progress struct {
	Name       string  `json:"name"`
	BytesDone  int64   `json:"bytesDone"`
	BytesTotal int64   `json:"bytesTotal"`
	Percent    float64 `json:"percent"`
}
