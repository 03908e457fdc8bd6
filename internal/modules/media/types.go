package media

import "errors"

var (
	ErrAttachmentNotFound = errors.New("media attachment not found")
	ErrOwnerNotFound      = errors.New("attachment owner not found")
	ErrBadRefType         = errors.New("ref_type must be report or log")
	ErrBadExtension       = errors.New("file extension not allowed")
	ErrTooLarge           = errors.New("file exceeds the size limit")
	ErrNoPoster           = errors.New("no poster frame available")
	ErrNotVideo           = errors.New("attachment is not a video")
)
