package adminserver

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// watchFrame is one message sent to a /watch client: a newly observed
// (ValueId, bytes) pair from a container's heap-file iterator, or a
// heartbeat keeping the connection alive between polls.
type watchFrame struct {
	Type    string `json:"type"` // "value" or "heartbeat"
	Value   string `json:"value_id,omitempty"`
	Bytes   []byte `json:"bytes,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleWatch streams a tail of container id's heap file: one iterator is
// polled at a fixed interval, and whatever it yields past its previous
// position is pushed to the client as a JSON frame. Values already present
// when the connection opens are sent once, in iteration order, same as any
// other scan. The iterator is never rewound, so a page it has already
// passed is not read again: values inserted later into such a page
// (InsertValue fills the first page with room) are not sent; only values
// on pages the iterator has not yet reached are.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id, err := containerIDParam(r)
	if err != nil {
		http.Error(w, "invalid container id", http.StatusBadRequest)
		return
	}

	iter, err := s.sm.GetIterator(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer iter.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("adminserver: watch upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		advanced := false
		for {
			data, vid, ok := iter.Next()
			if !ok {
				break
			}
			advanced = true
			frame := watchFrame{Type: "value", Value: vid.String(), Bytes: data}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		if !advanced {
			if err := conn.WriteJSON(watchFrame{Type: "heartbeat", Message: "keepalive"}); err != nil {
				return
			}
		}
	}
}
