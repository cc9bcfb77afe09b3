package analysis

import (
	"context"
	"io"
)

// SubmitRequest carries the scan file and the demographics the model needs.
type SubmitRequest struct {
	File     io.Reader
	FileName string
	MimeType string
	Age      int
	Sex      string
}

// Gateway port (interface to the external analysis service)
type Gateway interface {
	Submit(ctx context.Context, req SubmitRequest) (JobID, error)
	Poll(ctx context.Context, id JobID) (JobStatus, error)
}
