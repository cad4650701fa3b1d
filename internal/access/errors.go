package access

import "fmt"

// Error is a flow failure reported to the operator. Code identifies the
// failure kind; errors.Is matches on Code, so wrapped copies made with
// WithError still match the sentinel.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) WithError(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

var (
	ErrCameraNotReady = &Error{
		Code:    "CAMERA_NOT_READY",
		Message: "camera is not ready or not available",
	}

	ErrNoFaceDetected = &Error{
		Code:    "NO_FACE_DETECTED",
		Message: "no face detected; make sure you are well lit and facing the camera",
	}

	ErrEmbeddingFailed = &Error{
		Code:    "EMBEDDING_FAILED",
		Message: "could not extract face features",
	}

	ErrThumbnailFailed = &Error{
		Code:    "THUMBNAIL_FAILED",
		Message: "failed to process the face image",
	}

	ErrPersistenceFailed = &Error{
		Code:    "PERSISTENCE_FAILED",
		Message: "failed to save the user",
	}

	ErrModelUnavailable = &Error{
		Code:    "MODEL_UNAVAILABLE",
		Message: "face models are not loaded; biometric features are disabled",
	}

	ErrInvalidName = &Error{
		Code:    "INVALID_NAME",
		Message: "enter a valid name",
	}
)
