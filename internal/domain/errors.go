package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNoDocuments         = errors.New("no failed documents found")
	ErrReviewNotFound      = errors.New("review entry not found")
	ErrInvalidTransition   = errors.New("invalid document status transition")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrUploadFailed        = errors.New("upload to processed storage failed")
	ErrDeleteFailed        = errors.New("delete from source storage failed")
	ErrInvalidResult       = errors.New("extraction result does not match expected format")
)
