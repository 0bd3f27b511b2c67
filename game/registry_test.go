package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/anshtutorial/chess-game/models"
	"github.com/anshtutorial/chess-game/network"
	"github.com/anshtutorial/chess-game/rules"
)

// fakeArchiver records what was archived.
type fakeArchiver struct {
	mutex   sync.Mutex
	records []*models.GameRecord
}

func (a *fakeArchiver) ArchiveGame(record *models.GameRecord) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.records = append(a.records, record)
	return nil
}

func newTestRegistry() (*Registry, *recordingBroadcaster) {
	b := &recordingBroadcaster{}
	return NewRegistry(fakeOracle{}, b), b
}

func TestRegistry_FirstRequestWaits(t *testing.T) {
	r, b := newTestRegistry()

	if err := r.RequestPairing("conn_x"); err != nil {
		t.Fatalf("RequestPairing returned error: %v", err)
	}

	if got := b.directTo("conn_x", network.MsgTypeWaiting); got != 1 {
		t.Errorf("Expected 1 Waiting notification, got %d", got)
	}
	games, waiting := r.Counts()
	if games != 0 || waiting != 1 {
		t.Errorf("Expected 0 games / 1 waiting, got %d / %d", games, waiting)
	}
}

func TestRegistry_PairsFIFO(t *testing.T) {
	r, b := newTestRegistry()

	if err := r.RequestPairing("conn_x"); err != nil {
		t.Fatalf("First RequestPairing failed: %v", err)
	}
	if err := r.RequestPairing("conn_y"); err != nil {
		t.Fatalf("Second RequestPairing failed: %v", err)
	}

	games, waiting := r.Counts()
	if games != 1 || waiting != 0 {
		t.Fatalf("Expected 1 game / 0 waiting, got %d / %d", games, waiting)
	}

	// The earlier arrival takes the first-moving role.
	roleOf := func(sessionID string) string {
		b.mutex.Lock()
		defer b.mutex.Unlock()
		for _, m := range b.direct {
			if m.Target == sessionID && m.MsgID == network.MsgTypeRoleAssigned {
				var payload RolePayload
				if err := json.Unmarshal(m.Data, &payload); err != nil {
					t.Fatalf("Bad RolePayload: %v", err)
				}
				return payload.Role
			}
		}
		return ""
	}
	if got := roleOf("conn_x"); got != "w" {
		t.Errorf("Expected conn_x to be white, got %q", got)
	}
	if got := roleOf("conn_y"); got != "b" {
		t.Errorf("Expected conn_y to be black, got %q", got)
	}

	if got := b.broadcastCount(network.MsgTypeBoardState); got != 1 {
		t.Errorf("Expected 1 initial BoardState broadcast, got %d", got)
	}
}

func TestRegistry_PairsInArrivalOrder(t *testing.T) {
	r, _ := newTestRegistry()

	for _, id := range []string{"conn_a", "conn_b", "conn_c", "conn_d"} {
		if err := r.RequestPairing(id); err != nil {
			t.Fatalf("RequestPairing(%s) failed: %v", id, err)
		}
	}

	gameAB := r.byMember["conn_a"]
	gameCD := r.byMember["conn_c"]
	if gameAB == nil || gameCD == nil {
		t.Fatal("All four sessions should be routed to a game")
	}
	if gameAB != r.byMember["conn_b"] {
		t.Error("conn_a and conn_b should share a game")
	}
	if gameCD != r.byMember["conn_d"] {
		t.Error("conn_c and conn_d should share a game")
	}
	if gameAB == gameCD {
		t.Error("The two pairs must land in different games")
	}
	if gameAB.seats[RoleWhite] != "conn_a" || gameAB.seats[RoleBlack] != "conn_b" {
		t.Errorf("FIFO order violated in first game: %v", gameAB.seats)
	}
	if gameCD.seats[RoleWhite] != "conn_c" || gameCD.seats[RoleBlack] != "conn_d" {
		t.Errorf("FIFO order violated in second game: %v", gameCD.seats)
	}
}

func TestRegistry_DuplicateRequest(t *testing.T) {
	r, _ := newTestRegistry()

	r.RequestPairing("conn_x")
	if err := r.RequestPairing("conn_x"); err != ErrAlreadyRouted {
		t.Errorf("Expected ErrAlreadyRouted while queued, got %v", err)
	}

	r.RequestPairing("conn_y")
	if err := r.RequestPairing("conn_x"); err != ErrAlreadyRouted {
		t.Errorf("Expected ErrAlreadyRouted while playing, got %v", err)
	}
}

func TestRegistry_DisconnectWhileWaiting(t *testing.T) {
	r, _ := newTestRegistry()

	r.RequestPairing("conn_x")
	r.HandleDisconnect("conn_x")

	// conn_x's disconnect is processed; it must never be paired afterwards.
	if err := r.RequestPairing("conn_y"); err != nil {
		t.Fatalf("RequestPairing failed: %v", err)
	}
	games, waiting := r.Counts()
	if games != 0 || waiting != 1 {
		t.Errorf("Expected 0 games / 1 waiting, got %d / %d", games, waiting)
	}
}

func TestRegistry_RouteMove(t *testing.T) {
	r, _ := newTestRegistry()

	if _, routed := r.RouteMove("conn_x", rules.Move{From: "e2", To: "e4"}); routed {
		t.Error("Moves from unrouted sessions must be dropped")
	}

	r.RequestPairing("conn_x")
	if _, routed := r.RouteMove("conn_x", rules.Move{From: "e2", To: "e4"}); routed {
		t.Error("Moves from queued sessions must be dropped")
	}

	r.RequestPairing("conn_y")
	outcome, routed := r.RouteMove("conn_x", rules.Move{From: "e2", To: "e4"})
	if !routed || outcome != Applied {
		t.Errorf("Expected routed Applied, got routed=%v outcome=%s", routed, outcome)
	}
}

func TestRegistry_ObserverLifecycle(t *testing.T) {
	r, b := newTestRegistry()
	archiver := &fakeArchiver{}
	r.SetArchiver(archiver)

	r.RequestPairing("conn_x")
	r.RequestPairing("conn_y")

	if err := r.Watch("conn_z", ""); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if got := b.directTo("conn_z", network.MsgTypeObserverAssigned); got != 1 {
		t.Errorf("Expected ObserverAssigned for conn_z, got %d", got)
	}
	if got := b.directTo("conn_z", network.MsgTypeBoardState); got != 1 {
		t.Errorf("Expected the live position for conn_z, got %d", got)
	}

	// Observer moves route but die unbound, silently.
	outcome, routed := r.RouteMove("conn_z", rules.Move{From: "e2", To: "e4"})
	if !routed || outcome != RejectedUnbound {
		t.Errorf("Expected routed RejectedUnbound, got routed=%v outcome=%s", routed, outcome)
	}

	r.RouteMove("conn_x", rules.Move{From: "e2", To: "e4"})

	// Observer disconnect only drops the routing entry.
	r.HandleDisconnect("conn_z")
	if _, routed := r.RouteMove("conn_z", rules.Move{From: "e2", To: "e4"}); routed {
		t.Error("A disconnected observer must not route anymore")
	}
	if games, _ := r.Counts(); games != 1 {
		t.Error("Observer disconnect must not tear down the game")
	}

	// One seat leaving degrades the game but the other keeps playing.
	r.HandleDisconnect("conn_x")
	if games, _ := r.Counts(); games != 1 {
		t.Fatal("Game must survive one participant disconnect")
	}
	outcome, routed = r.RouteMove("conn_y", rules.Move{From: "e7", To: "e5"})
	if !routed || outcome != Applied {
		t.Errorf("Remaining seat must keep moving, got routed=%v outcome=%s", routed, outcome)
	}

	// Last connection gone: the game is reaped and archived.
	r.HandleDisconnect("conn_y")
	if games, _ := r.Counts(); games != 0 {
		t.Error("Game must be reaped once nothing is attached")
	}
	archiver.mutex.Lock()
	defer archiver.mutex.Unlock()
	if len(archiver.records) != 1 {
		t.Fatalf("Expected 1 archived record, got %d", len(archiver.records))
	}
	if archiver.records[0].MoveCount != 2 {
		t.Errorf("Expected 2 archived moves, got %d", archiver.records[0].MoveCount)
	}
}

func TestRegistry_WatchNamedGame(t *testing.T) {
	r, _ := newTestRegistry()

	if err := r.Watch("conn_z", ""); err != ErrNoGame {
		t.Errorf("Expected ErrNoGame with no live games, got %v", err)
	}

	r.RequestPairing("conn_x")
	r.RequestPairing("conn_y")
	g := r.byMember["conn_x"]

	if err := r.Watch("conn_z", "missing"); err != ErrNoGame {
		t.Errorf("Expected ErrNoGame for unknown id, got %v", err)
	}
	if err := r.Watch("conn_z", g.ID); err != nil {
		t.Errorf("Watch by id failed: %v", err)
	}
	if err := r.Watch("conn_x", g.ID); err != ErrAlreadyRouted {
		t.Errorf("A seated player must not become an observer, got %v", err)
	}
}

func TestRegistry_Reap(t *testing.T) {
	r, _ := newTestRegistry()

	r.RequestPairing("conn_x")
	r.RequestPairing("conn_y")
	g := r.byMember["conn_x"]

	if reaped := r.Reap(); reaped != 0 {
		t.Fatalf("Nothing should be reaped while seats are bound, got %d", reaped)
	}

	// Vacate both seats behind the registry's back; the sweep catches it.
	g.HandleDisconnect("conn_x")
	g.HandleDisconnect("conn_y")
	if reaped := r.Reap(); reaped != 1 {
		t.Fatalf("Expected 1 reaped game, got %d", reaped)
	}
	if games, _ := r.Counts(); games != 0 {
		t.Error("Reaped game still registered")
	}
}

func TestRegistry_ConcurrentPairing(t *testing.T) {
	r, _ := newTestRegistry()

	const n = 40
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if err := r.RequestPairing(fmt.Sprintf("conn_%d", i)); err != nil {
				t.Errorf("RequestPairing failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	games, waiting := r.Counts()
	if games*2+waiting != n {
		t.Fatalf("Sessions lost or duplicated: %d games, %d waiting, %d total", games, waiting, n)
	}

	// Every game holds two distinct sessions and no session sits in two
	// games or in both the queue and a game.
	seen := make(map[string]string)
	for _, g := range r.LiveGames() {
		white, black := g.seats[RoleWhite], g.seats[RoleBlack]
		if white == "" || black == "" || white == black {
			t.Fatalf("Malformed seat table in game %s: %v", g.ID, g.seats)
		}
		for _, id := range []string{white, black} {
			if prev, dup := seen[id]; dup {
				t.Fatalf("Session %s in games %s and %s", id, prev, g.ID)
			}
			seen[id] = g.ID
		}
	}
	r.mutex.Lock()
	for _, id := range r.queue {
		if gameID, dup := seen[id]; dup {
			t.Fatalf("Session %s both queued and in game %s", id, gameID)
		}
	}
	r.mutex.Unlock()
}
