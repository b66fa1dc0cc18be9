// Package wire implements the binary stream layer spoken between the
// inspection server and the visualization client. All values are
// little-endian; strings are a uint64 byte length followed by UTF-8 bytes.
package wire

import (
	"bufio"
	"bytes"
	"io"
	"net"
)

// Stream is an ordered byte channel to the client. Writes may be buffered
// until Flush, which marks the end of one protocol message.
type Stream interface {
	io.Reader
	io.Writer
	Flush() error
}

// BufferStream is an in-memory Stream, used for tests and for building
// serialized blobs before they are archived or re-sent.
type BufferStream struct {
	buf bytes.Buffer
}

// NewBufferStream creates an empty in-memory stream
func NewBufferStream() *BufferStream {
	return &BufferStream{}
}

func (s *BufferStream) Read(p []byte) (int, error)  { return s.buf.Read(p) }
func (s *BufferStream) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *BufferStream) Flush() error                { return nil }

// Bytes returns the written bytes without consuming them
func (s *BufferStream) Bytes() []byte { return s.buf.Bytes() }

// Len returns the number of unread bytes
func (s *BufferStream) Len() int { return s.buf.Len() }

// SocketStream adapts a net.Conn with buffered reads and writes.
type SocketStream struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// NewSocketStream wraps an accepted connection
func NewSocketStream(conn net.Conn) *SocketStream {
	return &SocketStream{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

func (s *SocketStream) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s *SocketStream) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *SocketStream) Flush() error                { return s.w.Flush() }

// Close flushes pending writes and closes the connection
func (s *SocketStream) Close() error {
	if err := s.w.Flush(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}
