// Package blobstore defines the port interface for image/blob uploads.
package blobstore

import "context"

// Uploader is the port interface for uploading a local file to remote blob
// storage. It returns the public URL of the stored object. Upload may fail
// per-file; callers must enqueue temp-file cleanup on both success and
// failure paths.
type Uploader interface {
	Upload(ctx context.Context, localPath, folder string) (url string, err error)
}
