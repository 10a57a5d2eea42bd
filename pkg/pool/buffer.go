package pool

// SessionBufferSize sizes the bufio.Reader wrapping each client/backend
// socket in a Session (pkg/session.New): large enough to hold a typical
// HTTP/1.1 request or response line-and-header block without growing.
//
// The teacher's BufferPool/ByteSlicePool machinery pooled []byte scratch
// buffers for a raw io.CopyBuffer-style relay loop; this design forwards
// framed HTTP/1.1 messages via http.Request.Write/http.Response.Write
// directly onto the socket; net/http does its own internal buffering, so
// there is no raw byte-copy loop left to hand a pooled buffer to, and
// bufio.NewReaderSize always allocates its own backing array rather than
// accepting one — only the size constant survives.
const SessionBufferSize = 32 * 1024
