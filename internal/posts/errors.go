package posts

import "errors"

var (
	ErrNotFound       = errors.New("post not found")
	ErrSlugExists     = errors.New("slug already exists")
	ErrTagExists      = errors.New("tag already exists")
	ErrAuthorNotFound = errors.New("author not found")
	ErrInvalidPost    = errors.New("post rejected by store constraints")

	ErrStorageDisabled  = errors.New("media storage is not configured")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
)
