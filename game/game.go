// game/game.go
package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/anshtutorial/chess-game/models"
	"github.com/anshtutorial/chess-game/network"
	"github.com/anshtutorial/chess-game/rules"
)

// Role is one of the two turn-taking seats. White moves first.
type Role string

const (
	RoleWhite Role = "w"
	RoleBlack Role = "b"
)

func (r Role) Other() Role {
	if r == RoleWhite {
		return RoleBlack
	}
	return RoleWhite
}

// Status is the seat occupancy of a game.
type Status int

const (
	StatusActive   Status = iota // both seats bound
	StatusDegraded               // one seat vacated by a disconnect
	StatusVacant                 // both seats gone
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDegraded:
		return "degraded"
	default:
		return "vacant"
	}
}

// Outcome classifies one SubmitMove call. Everything except Applied is a
// silent drop on the wire; the distinction exists for tests and metrics.
type Outcome int

const (
	Applied Outcome = iota
	RejectedUnbound
	RejectedTurn
	RejectedByRules
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case RejectedUnbound:
		return "rejected_unbound"
	case RejectedTurn:
		return "rejected_turn"
	default:
		return "rejected_rules"
	}
}

// Game is one paired match: two seats with a fixed role binding, any
// number of observers, and the authoritative position. Seats hold session
// ids only, never sessions; membership is always resolved by lookup.
//
// stateMutex serializes the check-apply-flip move path and owns position,
// turn and the accepted-move history. memberMutex owns seats and
// observers, so broadcast fan-out can read membership while a move is in
// flight. Lock order is always stateMutex before memberMutex.
type Game struct {
	ID        string
	CreatedAt time.Time

	stateMutex sync.Mutex
	position   rules.Position
	turn       Role
	moves      []rules.Move

	memberMutex sync.RWMutex
	seats       map[Role]string // role -> session id, "" once vacated
	observers   map[string]struct{}

	oracle      rules.Oracle
	broadcaster Broadcaster
}

// NewGame binds white and black, seeds the position from the oracle and
// gives white the first turn.
func NewGame(id, whiteID, blackID string, oracle rules.Oracle, broadcaster Broadcaster) *Game {
	return &Game{
		ID:        id,
		CreatedAt: time.Now(),
		seats: map[Role]string{
			RoleWhite: whiteID,
			RoleBlack: blackID,
		},
		observers:   make(map[string]struct{}),
		position:    oracle.InitialPosition(),
		turn:        RoleWhite,
		oracle:      oracle,
		broadcaster: broadcaster,
	}
}

// SubmitMove runs the whole check-apply-flip sequence under stateMutex so
// two concurrent moves can never both pass the turn check. The broadcast
// happens inside the critical section too, keeping fan-out order
// identical to acceptance order.
func (g *Game) SubmitMove(sessionID string, mv rules.Move) Outcome {
	g.stateMutex.Lock()
	defer g.stateMutex.Unlock()

	role, bound := g.roleOf(sessionID)
	if !bound {
		return RejectedUnbound
	}
	if role != g.turn {
		return RejectedTurn
	}

	next, err := g.oracle.ValidateAndApply(g.position, mv)
	if err != nil {
		return RejectedByRules
	}

	g.position = next
	g.moves = append(g.moves, mv)
	g.turn = g.turn.Other()

	moveData, _ := json.Marshal(mv)
	g.broadcaster.BroadcastToGame(g.ID, network.MsgTypeMoveApplied, moveData)
	g.broadcaster.BroadcastToGame(g.ID, network.MsgTypeBoardState, g.stateLocked())

	return Applied
}

// AddObserver attaches a watcher and immediately sends it the live
// position. Turn state is untouched.
func (g *Game) AddObserver(sessionID string) {
	g.memberMutex.Lock()
	g.observers[sessionID] = struct{}{}
	g.memberMutex.Unlock()

	g.stateMutex.Lock()
	state := g.stateLocked()
	g.stateMutex.Unlock()

	assigned, _ := json.Marshal(ObserverPayload{GameID: g.ID})
	g.broadcaster.SendToSession(sessionID, network.MsgTypeObserverAssigned, assigned)
	g.broadcaster.SendToSession(sessionID, network.MsgTypeBoardState, state)
}

// BroadcastState pushes the current position to every attached connection.
func (g *Game) BroadcastState() {
	g.stateMutex.Lock()
	state := g.stateLocked()
	g.stateMutex.Unlock()
	g.broadcaster.BroadcastToGame(g.ID, network.MsgTypeBoardState, state)
}

// HandleDisconnect vacates the seat or drops the observer belonging to
// sessionID. It reports whether the game has no attached connections
// left; a degraded game stays addressable and the remaining seat keeps
// moving.
func (g *Game) HandleDisconnect(sessionID string) bool {
	g.memberMutex.Lock()
	defer g.memberMutex.Unlock()

	for role, id := range g.seats {
		if id != "" && id == sessionID {
			g.seats[role] = ""
		}
	}
	delete(g.observers, sessionID)

	return g.seats[RoleWhite] == "" && g.seats[RoleBlack] == "" && len(g.observers) == 0
}

// MemberIDs returns every attached session id, seats first.
func (g *Game) MemberIDs() []string {
	g.memberMutex.RLock()
	defer g.memberMutex.RUnlock()

	ids := make([]string, 0, 2+len(g.observers))
	for _, role := range []Role{RoleWhite, RoleBlack} {
		if id := g.seats[role]; id != "" {
			ids = append(ids, id)
		}
	}
	for id := range g.observers {
		ids = append(ids, id)
	}
	return ids
}

func (g *Game) Position() rules.Position {
	g.stateMutex.Lock()
	defer g.stateMutex.Unlock()
	return g.position
}

func (g *Game) Turn() Role {
	g.stateMutex.Lock()
	defer g.stateMutex.Unlock()
	return g.turn
}

// Moves returns a copy of the accepted-move history.
func (g *Game) Moves() []rules.Move {
	g.stateMutex.Lock()
	defer g.stateMutex.Unlock()
	out := make([]rules.Move, len(g.moves))
	copy(out, g.moves)
	return out
}

func (g *Game) Status() Status {
	g.memberMutex.RLock()
	defer g.memberMutex.RUnlock()

	bound := 0
	for _, id := range g.seats {
		if id != "" {
			bound++
		}
	}
	switch bound {
	case 2:
		return StatusActive
	case 1:
		return StatusDegraded
	default:
		return StatusVacant
	}
}

// Summary snapshots the game for the admin surface.
func (g *Game) Summary() models.GameSummary {
	status := g.Status()

	g.memberMutex.RLock()
	observers := len(g.observers)
	g.memberMutex.RUnlock()

	g.stateMutex.Lock()
	defer g.stateMutex.Unlock()
	return models.GameSummary{
		GameID:    g.ID,
		Status:    status.String(),
		Turn:      string(g.turn),
		MoveCount: len(g.moves),
		Observers: observers,
		CreatedAt: g.CreatedAt,
	}
}

// Record snapshots the game for the archive.
func (g *Game) Record() *models.GameRecord {
	g.stateMutex.Lock()
	defer g.stateMutex.Unlock()

	moves := make([]rules.Move, len(g.moves))
	copy(moves, g.moves)
	return &models.GameRecord{
		GameID:        g.ID,
		Moves:         moves,
		FinalPosition: string(g.position),
		MoveCount:     len(g.moves),
		StartedAt:     g.CreatedAt,
		EndedAt:       time.Now(),
	}
}

func (g *Game) roleOf(sessionID string) (Role, bool) {
	g.memberMutex.RLock()
	defer g.memberMutex.RUnlock()

	for _, role := range []Role{RoleWhite, RoleBlack} {
		if id := g.seats[role]; id != "" && id == sessionID {
			return role, true
		}
	}
	return "", false
}

// stateLocked marshals the board-state payload; callers hold stateMutex.
func (g *Game) stateLocked() []byte {
	data, _ := json.Marshal(StatePayload{
		GameID:   g.ID,
		Position: string(g.position),
		Turn:     string(g.turn),
	})
	return data
}
