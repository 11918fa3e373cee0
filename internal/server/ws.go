package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the incoming WebSocket message format.
type wsMessage struct {
	Type string `json:"type"` // "ask" or "silos"
	ID   string `json:"id"`   // echoed back
	askRequest
}

// wsReply is the outgoing WebSocket message format.
type wsReply struct {
	Type   string         `json:"type"` // "answer", "silos" or "error"
	ID     string         `json:"id,omitempty"`
	Answer *askResponse   `json:"answer,omitempty"`
	Silos  any            `json:"silos,omitempty"`
	Error  *errorResponse `json:"error,omitempty"`
}

// handleWebSocket answers asks over one connection, one complete answer per
// message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", "error", err)
			}
			return
		}

		var in wsMessage
		if err := json.Unmarshal(msg, &in); err != nil {
			s.send(conn, wsReply{Type: "error", Error: &errorResponse{Error: "invalid message format"}})
			continue
		}

		switch in.Type {
		case "ask":
			if in.Query == "" {
				s.send(conn, wsReply{Type: "error", ID: in.ID, Error: &errorResponse{Error: "query is required"}})
				continue
			}
			resp, _, errResp := s.ask(r, in.askRequest)
			if errResp != nil {
				s.send(conn, wsReply{Type: "error", ID: in.ID, Error: errResp})
				continue
			}
			s.send(conn, wsReply{Type: "answer", ID: in.ID, Answer: resp})
		case "silos":
			silos, err := s.engine.Silos()
			if err != nil {
				s.send(conn, wsReply{Type: "error", ID: in.ID, Error: &errorResponse{Error: err.Error(), ExitCode: 1}})
				continue
			}
			s.send(conn, wsReply{Type: "silos", ID: in.ID, Silos: silos})
		default:
			s.send(conn, wsReply{Type: "error", ID: in.ID, Error: &errorResponse{Error: "unknown message type: " + in.Type}})
		}
	}
}

func (s *Server) send(conn *websocket.Conn, reply wsReply) {
	if err := conn.WriteJSON(reply); err != nil {
		s.logger.Warn("websocket write", "error", err)
	}
}
