package pool

import "testing"

func TestSessionBufferSize(t *testing.T) {
	if SessionBufferSize <= 0 {
		t.Fatalf("SessionBufferSize = %d, want > 0", SessionBufferSize)
	}
	// A session's bufio.Reader must comfortably hold a typical HTTP/1.1
	// request/response header block (a handful of KB) without growing.
	if SessionBufferSize < 4096 {
		t.Fatalf("SessionBufferSize = %d, too small for a framed HTTP header block", SessionBufferSize)
	}
}
