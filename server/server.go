package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/anshtutorial/chess-game/broadcast"
	"github.com/anshtutorial/chess-game/config"
	"github.com/anshtutorial/chess-game/game"
	"github.com/anshtutorial/chess-game/logger"
	"github.com/anshtutorial/chess-game/monitor"
	"github.com/anshtutorial/chess-game/network"
	"github.com/anshtutorial/chess-game/persistence"
	chessrpc "github.com/anshtutorial/chess-game/rpc"
	"github.com/anshtutorial/chess-game/rules"
	"github.com/anshtutorial/chess-game/services"
	"github.com/anshtutorial/chess-game/session"
	"github.com/anshtutorial/chess-game/timer"
)

// GameServer is the connection gateway: it upgrades websockets, runs one
// read loop per connection and feeds inbound events to the registry. All
// outbound traffic goes back through the broadcaster.
type GameServer struct {
	addr           string
	metricsAddr    string
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	registry       *game.Registry
	recordService  *services.RecordService
	rpcServer      *chessrpc.Server
	mon            *monitor.Monitor
	timers         *timer.Manager
	shutdownChan   chan struct{}
}

// NewGameServer wires the whole stack. db may be nil; the archive is then
// disabled and reaped games are discarded.
func NewGameServer(cfg *config.Config, oracle rules.Oracle, db persistence.Database) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		metricsAddr:    cfg.Server.MetricsAddress,
		sessionManager: session.NewManager(),
		mon:            monitor.NewMonitor("chess"),
		timers:         timer.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	broadcaster := broadcast.NewGameBroadcaster(s.sessionManager)
	s.registry = game.NewRegistry(oracle, broadcaster)
	broadcaster.SetResolver(s.registry)

	if db != nil {
		s.recordService = services.NewRecordService(db)
		s.registry.SetArchiver(s.recordService)
	}

	rpcServer, err := chessrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(chessrpc.NewAdminService(s.registry, s.recordService))

	// Housekeeping: refresh gauges and reap games nobody is attached to.
	// Never on the move path; no behavior depends on when it fires.
	s.timers.AddTimer(10*time.Second, 10*time.Second, s.housekeeping)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.mon.StartServer(s.metricsAddr)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

// Registry exposes the registry for the admin surface and tests.
func (s *GameServer) Registry() *game.Registry {
	return s.registry
}

func (s *GameServer) housekeeping() {
	if reaped := s.registry.Reap(); reaped > 0 {
		logger.Log.Infof("Reaped %d vacant games", reaped)
	}
	games, waiting := s.registry.Counts()
	s.mon.SetActiveGames(games)
	s.mon.SetWaitingPlayers(waiting)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.mon.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.registry.HandleDisconnect(sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.mon.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.mon.IncMessagesReceived()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeRequestMatch:
		s.handleRequestMatch(sess)
	case network.MsgTypeWatchGame:
		s.handleWatchGame(sess, packet)
	case network.MsgTypeMove:
		s.handleMove(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}

	s.mon.ObserveMessageLatency(time.Since(start))
}

func (s *GameServer) handleRequestMatch(sess *session.Session) {
	if err := s.registry.RequestPairing(sess.GetID()); err != nil {
		// Already queued or playing; nothing goes back to the sender.
		logger.Log.Debugf("Pairing refused for session %s: %v", sess.GetID(), err)
		return
	}
	if g, ok := s.registry.GameFor(sess.GetID()); ok {
		// Pairing succeeded; stamp the back-reference on both seats.
		for _, id := range g.MemberIDs() {
			if member, exists := s.sessionManager.Get(id); exists {
				member.GameID = g.ID
			}
		}
	}
	games, waiting := s.registry.Counts()
	s.mon.SetActiveGames(games)
	s.mon.SetWaitingPlayers(waiting)
}

func (s *GameServer) handleWatchGame(sess *session.Session, packet *network.Packet) {
	var req game.WatchRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return
		}
	}
	if err := s.registry.Watch(sess.GetID(), req.GameID); err != nil {
		logger.Log.Debugf("Watch refused for session %s: %v", sess.GetID(), err)
		return
	}
	if g, ok := s.registry.GameFor(sess.GetID()); ok {
		sess.GameID = g.ID
	}
}

func (s *GameServer) handleMove(sess *session.Session, packet *network.Packet) {
	var mv rules.Move
	if err := json.Unmarshal(packet.Data, &mv); err != nil {
		return
	}

	// Every non-applied outcome is a silent drop on the wire; only the
	// metrics label tells them apart.
	outcome, routed := s.registry.RouteMove(sess.GetID(), mv)
	if !routed {
		return
	}
	s.mon.IncMove(outcome.String())
}
