package capture

import (
	"errors"
	"fmt"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o" }
func (timeoutErr) Timeout() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{timeoutErr{}, ErrTimeout},
		{errors.New("open /data: permission denied"), ErrPermissionDenied},
		{errors.New("AccessDenied: 403 Forbidden"), ErrAccessDenied},
		{errors.New("NoSuchKey: the key does not exist"), ErrNotFound},
		{errors.New("write /data: no space left on device"), ErrDiskFull},
		{errors.New("context deadline exceeded"), ErrTimeout},
		{errors.New("SlowDown: please reduce your request rate"), ErrThrottled},
		{errors.New("ExpiredToken: the token has expired"), ErrAuth},
		{errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrNetwork},
		{errors.New("something odd"), ErrStorage},
	}
	for _, tt := range tests {
		if got := classifyError(tt.err); got != tt.want {
			t.Errorf("classifyError(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStorageError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("NoSuchKey")
	err := fmt.Errorf("query: %w", wrap("read", "snapshot/1", cause))

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("errors.Is(err, ErrNotFound) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "read" || se.Path != "snapshot/1" {
		t.Errorf("StorageError = %+v", se)
	}
	if wrap("write", "", nil) != nil {
		t.Error("wrap(nil) should be nil")
	}
}
