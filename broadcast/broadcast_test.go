package broadcast

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/anshtutorial/chess-game/game"
	"github.com/anshtutorial/chess-game/network"
	"github.com/anshtutorial/chess-game/rules"
	"github.com/anshtutorial/chess-game/session"
)

// MockConnection records writes; Send can be scripted to fail.
type MockConnection struct {
	mutex sync.Mutex
	sent  []uint16
	fail  bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.fail {
		return errors.New("connection gone")
	}
	m.sent = append(m.sent, msgID)
	return nil
}

func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func (m *MockConnection) sentCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.sent)
}

type noopOracle struct{}

func (noopOracle) InitialPosition() rules.Position { return "start" }
func (noopOracle) ValidateAndApply(pos rules.Position, mv rules.Move) (rules.Position, error) {
	return pos, nil
}
func (noopOracle) LegalMoves(pos rules.Position) []rules.Move { return nil }
func (noopOracle) IsTerminal(pos rules.Position) bool         { return false }

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToGame(gameID string, msgID uint16, data []byte) error { return nil }
func (noopBroadcaster) SendToSession(sessionID string, msgID uint16, data []byte) error {
	return nil
}

// staticResolver serves a fixed game.
type staticResolver struct {
	g *game.Game
}

func (r *staticResolver) GameByID(gameID string) (*game.Game, bool) {
	if r.g != nil && r.g.ID == gameID {
		return r.g, true
	}
	return nil, false
}

func TestGameBroadcaster_BroadcastToGame(t *testing.T) {
	manager := session.NewManager()
	whiteConn := &MockConnection{}
	blackConn := &MockConnection{}
	manager.Add(session.NewSession("white_conn", whiteConn))
	manager.Add(session.NewSession("black_conn", blackConn))

	g := game.NewGame("game_1", "white_conn", "black_conn", noopOracle{}, noopBroadcaster{})
	b := NewGameBroadcaster(manager)
	b.SetResolver(&staticResolver{g: g})

	if err := b.BroadcastToGame("game_1", network.MsgTypeBoardState, []byte("{}")); err != nil {
		t.Fatalf("BroadcastToGame returned error: %v", err)
	}
	if whiteConn.sentCount() != 1 || blackConn.sentCount() != 1 {
		t.Errorf("Expected both seats to receive the broadcast, got %d / %d",
			whiteConn.sentCount(), blackConn.sentCount())
	}

	if err := b.BroadcastToGame("missing", network.MsgTypeBoardState, nil); err != ErrGameNotFound {
		t.Errorf("Expected ErrGameNotFound, got %v", err)
	}
}

func TestGameBroadcaster_SkipsFailedMembers(t *testing.T) {
	manager := session.NewManager()
	whiteConn := &MockConnection{fail: true}
	blackConn := &MockConnection{}
	manager.Add(session.NewSession("white_conn", whiteConn))
	manager.Add(session.NewSession("black_conn", blackConn))

	g := game.NewGame("game_1", "white_conn", "black_conn", noopOracle{}, noopBroadcaster{})
	b := NewGameBroadcaster(manager)
	b.SetResolver(&staticResolver{g: g})

	// A dead member never blocks delivery to the rest.
	if err := b.BroadcastToGame("game_1", network.MsgTypeBoardState, []byte("{}")); err != nil {
		t.Fatalf("BroadcastToGame returned error: %v", err)
	}
	if blackConn.sentCount() != 1 {
		t.Errorf("Expected the healthy member to receive the broadcast, got %d", blackConn.sentCount())
	}
}

func TestGameBroadcaster_SendToSession(t *testing.T) {
	manager := session.NewManager()
	conn := &MockConnection{}
	manager.Add(session.NewSession("conn_x", conn))

	b := NewGameBroadcaster(manager)

	if err := b.SendToSession("conn_x", network.MsgTypeWaiting, nil); err != nil {
		t.Fatalf("SendToSession returned error: %v", err)
	}
	if conn.sentCount() != 1 {
		t.Errorf("Expected 1 send, got %d", conn.sentCount())
	}
	if err := b.SendToSession("missing", network.MsgTypeWaiting, nil); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}
