package media

import "errors"

var (
	// ErrUploadFailed indicates the asset could not be relayed to object storage.
	ErrUploadFailed = errors.New("media upload failed")
	// ErrUnreadableImage indicates an image upload that could not be decoded.
	ErrUnreadableImage = errors.New("image could not be decoded")
	// ErrProbeUnavailable indicates no duration probe is configured.
	ErrProbeUnavailable = errors.New("duration probe unavailable")
)
