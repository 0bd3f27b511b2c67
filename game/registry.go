// game/registry.go
package game

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/anshtutorial/chess-game/network"
	"github.com/anshtutorial/chess-game/rules"
)

var (
	// ErrAlreadyRouted means the session is queued or attached to a game.
	ErrAlreadyRouted = errors.New("session already queued or in a game")
	// ErrNoGame means a watch request could not be resolved to a live game.
	ErrNoGame = errors.New("no such game")
)

// Registry owns matchmaking and event routing: the FIFO waiting queue,
// the id -> game map for every attached session (seats and observers
// alike), and the set of live games. One coarse mutex guards queue and
// maps; it is held for enqueue/pair/deregister only, never for move
// processing.
type Registry struct {
	mutex    sync.Mutex
	games    map[string]*Game
	byMember map[string]*Game
	queue    []string // waiting session ids, oldest first

	oracle      rules.Oracle
	broadcaster Broadcaster
	archiver    Archiver
}

func NewRegistry(oracle rules.Oracle, broadcaster Broadcaster) *Registry {
	return &Registry{
		games:       make(map[string]*Game),
		byMember:    make(map[string]*Game),
		oracle:      oracle,
		broadcaster: broadcaster,
	}
}

// SetArchiver installs the sink reaped games are recorded to.
func (r *Registry) SetArchiver(a Archiver) {
	r.archiver = a
}

// RequestPairing queues the session or, when someone is already waiting,
// pairs it with the oldest waiter. The waiter takes white, the requester
// black. Fails if the session is already queued or attached.
func (r *Registry) RequestPairing(sessionID string) error {
	r.mutex.Lock()

	if r.routedLocked(sessionID) {
		r.mutex.Unlock()
		return ErrAlreadyRouted
	}

	if len(r.queue) == 0 {
		r.queue = append(r.queue, sessionID)
		r.mutex.Unlock()

		data, _ := json.Marshal(WaitingPayload{Message: "Waiting for another player..."})
		r.broadcaster.SendToSession(sessionID, network.MsgTypeWaiting, data)
		return nil
	}

	opponent := r.queue[0]
	r.queue = r.queue[1:]

	g := NewGame(uuid.New().String(), opponent, sessionID, r.oracle, r.broadcaster)
	r.games[g.ID] = g
	r.byMember[opponent] = g
	r.byMember[sessionID] = g
	r.mutex.Unlock()

	whiteData, _ := json.Marshal(RolePayload{Role: string(RoleWhite), GameID: g.ID})
	blackData, _ := json.Marshal(RolePayload{Role: string(RoleBlack), GameID: g.ID})
	r.broadcaster.SendToSession(opponent, network.MsgTypeRoleAssigned, whiteData)
	r.broadcaster.SendToSession(sessionID, network.MsgTypeRoleAssigned, blackData)
	g.BroadcastState()

	return nil
}

// RouteMove forwards a move to the owning game. A session with no game is
// a routing miss: the event is dropped and routed is false.
func (r *Registry) RouteMove(sessionID string, mv rules.Move) (outcome Outcome, routed bool) {
	r.mutex.Lock()
	g := r.byMember[sessionID]
	r.mutex.Unlock()

	if g == nil {
		return 0, false
	}
	return g.SubmitMove(sessionID, mv), true
}

// Watch attaches the session as an observer of gameID, or of the oldest
// live game when gameID is empty.
func (r *Registry) Watch(sessionID, gameID string) error {
	r.mutex.Lock()

	if r.routedLocked(sessionID) {
		r.mutex.Unlock()
		return ErrAlreadyRouted
	}

	var g *Game
	if gameID != "" {
		g = r.games[gameID]
	} else {
		for _, candidate := range r.games {
			if g == nil || candidate.CreatedAt.Before(g.CreatedAt) {
				g = candidate
			}
		}
	}
	if g == nil {
		r.mutex.Unlock()
		return ErrNoGame
	}

	r.byMember[sessionID] = g
	r.mutex.Unlock()

	g.AddObserver(sessionID)
	return nil
}

// HandleDisconnect is the single exit path: it drops the session from the
// queue, detaches it from its game and reaps the game once nothing is
// attached to it anymore.
func (r *Registry) HandleDisconnect(sessionID string) {
	r.mutex.Lock()
	for i, id := range r.queue {
		if id == sessionID {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			break
		}
	}
	g := r.byMember[sessionID]
	delete(r.byMember, sessionID)
	r.mutex.Unlock()

	if g == nil {
		return
	}
	if empty := g.HandleDisconnect(sessionID); empty {
		r.remove(g)
	}
}

// Reap removes games with no attached connections. Safety net behind the
// disconnect path; driven by the server's housekeeping timer.
func (r *Registry) Reap() int {
	r.mutex.Lock()
	var vacant []*Game
	for _, g := range r.games {
		if len(g.MemberIDs()) == 0 {
			vacant = append(vacant, g)
		}
	}
	r.mutex.Unlock()

	for _, g := range vacant {
		r.remove(g)
	}
	return len(vacant)
}

// Counts reports live games and queued sessions, for gauges.
func (r *Registry) Counts() (games, waiting int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.games), len(r.queue)
}

// GameFor returns the game the session is attached to, seat or observer.
func (r *Registry) GameFor(sessionID string) (*Game, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	g := r.byMember[sessionID]
	return g, g != nil
}

// GameByID looks up a live game.
func (r *Registry) GameByID(gameID string) (*Game, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	g, exists := r.games[gameID]
	return g, exists
}

// LiveGames snapshots the live game set.
func (r *Registry) LiveGames() []*Game {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]*Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	return out
}

func (r *Registry) routedLocked(sessionID string) bool {
	if _, attached := r.byMember[sessionID]; attached {
		return true
	}
	for _, id := range r.queue {
		if id == sessionID {
			return true
		}
	}
	return false
}

func (r *Registry) remove(g *Game) {
	r.mutex.Lock()
	if _, exists := r.games[g.ID]; !exists {
		r.mutex.Unlock()
		return
	}
	delete(r.games, g.ID)
	r.mutex.Unlock()

	if r.archiver != nil {
		// Best effort; the archiver logs its own failures.
		_ = r.archiver.ArchiveGame(g.Record())
	}
}
