package rpc

import (
	"net"
	"net/rpc"

	"github.com/anshtutorial/chess-game/game"
	"github.com/anshtutorial/chess-game/logger"
	"github.com/anshtutorial/chess-game/models"
	"github.com/anshtutorial/chess-game/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes live and archived game state over net/rpc.
type AdminService struct {
	registry *game.Registry
	records  *services.RecordService // nil when no archive is configured
}

func NewAdminService(registry *game.Registry, records *services.RecordService) *AdminService {
	return &AdminService{registry: registry, records: records}
}

type ListGamesArgs struct{}

type ListGamesReply struct {
	Games []models.GameSummary
}

// ListGames returns a summary of every live game.
func (a *AdminService) ListGames(args *ListGamesArgs, reply *ListGamesReply) error {
	for _, g := range a.registry.LiveGames() {
		reply.Games = append(reply.Games, g.Summary())
	}
	return nil
}

type GetRecordArgs struct {
	GameID string
}

type GetRecordReply struct {
	Record *models.GameRecord
}

// GetRecord fetches one archived game.
func (a *AdminService) GetRecord(args *GetRecordArgs, reply *GetRecordReply) error {
	if a.records == nil {
		return nil
	}
	record, err := a.records.GetRecord(args.GameID)
	if err != nil {
		return err
	}
	reply.Record = record
	return nil
}

type RecentRecordsArgs struct {
	Limit int
}

type RecentRecordsReply struct {
	Records []*models.GameRecord
}

// RecentRecords fetches the latest archived games.
func (a *AdminService) RecentRecords(args *RecentRecordsArgs, reply *RecentRecordsReply) error {
	if a.records == nil {
		return nil
	}
	records, err := a.records.RecentRecords(args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}
