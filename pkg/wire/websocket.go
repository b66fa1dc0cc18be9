package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
)

// WebSocketStream frames the protocol over a websocket connection so
// browser-based clients can speak it. Writes accumulate until Flush, which
// sends one binary message; reads drain sequential binary messages.
type WebSocketStream struct {
	conn *websocket.Conn
	out  bytes.Buffer
	in   bytes.Reader
}

// NewWebSocketStream wraps an upgraded websocket connection
func NewWebSocketStream(conn *websocket.Conn) *WebSocketStream {
	return &WebSocketStream{conn: conn}
}

func (s *WebSocketStream) Read(p []byte) (int, error) {
	for s.in.Len() == 0 {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			// a clean close reads as EOF, matching the TCP transport
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if msgType != websocket.BinaryMessage {
			return 0, fmt.Errorf("wire: unexpected websocket message type %d", msgType)
		}
		s.in.Reset(data)
	}
	return s.in.Read(p)
}

func (s *WebSocketStream) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// Flush sends the buffered bytes as a single binary message
func (s *WebSocketStream) Flush() error {
	if s.out.Len() == 0 {
		return nil
	}
	err := s.conn.WriteMessage(websocket.BinaryMessage, s.out.Bytes())
	s.out.Reset()
	return err
}

// Close flushes pending writes and closes the connection
func (s *WebSocketStream) Close() error {
	if err := s.Flush(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}
