// Command client is a CLI probe for the chess match server: it dials the
// websocket endpoint, requests a match (or watches one) and sends moves
// typed on stdin.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeRequestMatch = 101
	MsgTypeWatchGame    = 102
	MsgTypeMove         = 201

	MsgTypeWaiting          = 301
	MsgTypeRoleAssigned     = 302
	MsgTypeObserverAssigned = 303
	MsgTypeBoardState       = 304
	MsgTypeMoveApplied      = 305
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func describe(msgID uint16) string {
	switch msgID {
	case MsgTypeWaiting:
		return "WAITING"
	case MsgTypeRoleAssigned:
		return "ROLE"
	case MsgTypeObserverAssigned:
		return "OBSERVER"
	case MsgTypeBoardState:
		return "BOARD"
	case MsgTypeMoveApplied:
		return "MOVE"
	default:
		return "UNKNOWN"
	}
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:3000", Path: "/ws"}
	if len(os.Args) > 1 {
		u.Host = os.Args[1]
	}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- %s: %s", describe(msgID), string(data))
		}
	}()

	log.Println("Commands: 'match', 'watch [game-id]', 'move <from> <to> [promotion]'")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) == 0 {
				continue
			}

			switch fields[0] {
			case "match":
				if err := send(c, MsgTypeRequestMatch, []byte{}); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Println("-> SENT: match request")
			case "watch":
				req := map[string]string{}
				if len(fields) > 1 {
					req["game_id"] = fields[1]
				}
				data, _ := json.Marshal(req)
				if err := send(c, MsgTypeWatchGame, data); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Println("-> SENT: watch request")
			case "move":
				if len(fields) < 3 {
					log.Println("Usage: move <from> <to> [promotion]")
					continue
				}
				mv := map[string]string{"from": fields[1], "to": fields[2]}
				if len(fields) > 3 {
					mv["promotion"] = fields[3]
				}
				data, _ := json.Marshal(mv)
				if err := send(c, MsgTypeMove, data); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Printf("-> SENT: move %s %s", fields[1], fields[2])
			default:
				log.Printf("Unknown command %q", fields[0])
			}
		}
	}
}
