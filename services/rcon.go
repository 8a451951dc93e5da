package services

import (
	"time"

	"github.com/gorcon/rcon"
	"github.com/rumblefrog/go-a2s"
	"go.uber.org/zap"

	"github.com/Qwizi/cs2-battle-bot/models"
)

// ServerGateway talks to game servers. Failures surface as-is; retrying is
// the caller's business.
type ServerGateway interface {
	IsOnline(server *models.Server) bool
	SendCommand(server *models.Server, command string, args ...string) (string, error)
}

// RconGateway probes servers over A2S and issues commands over RCON.
type RconGateway struct {
	logger  *zap.Logger
	timeout time.Duration
}

func NewRconGateway(logger *zap.Logger) *RconGateway {
	return &RconGateway{logger: logger, timeout: 10 * time.Second}
}

func (g *RconGateway) IsOnline(server *models.Server) bool {
	client, err := a2s.NewClient(server.Address(), a2s.TimeoutOption(g.timeout))
	if err != nil {
		return false
	}
	defer client.Close()
	if _, err := client.QueryInfo(); err != nil {
		g.logger.Warn("server did not answer A2S info query",
			zap.String("server", server.Address()),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (g *RconGateway) SendCommand(server *models.Server, command string, args ...string) (string, error) {
	conn, err := rcon.Dial(server.Address(), server.RconPassword, rcon.SetDialTimeout(g.timeout))
	if err != nil {
		return "", UpstreamError("failed to connect to server %s: %v", server.Address(), err)
	}
	defer conn.Close()

	full := command
	for _, arg := range args {
		full += " " + arg
	}
	response, err := conn.Execute(full)
	if err != nil {
		return "", UpstreamError("rcon command %q failed on %s: %v", command, server.Address(), err)
	}
	g.logger.Info("sent rcon command",
		zap.String("server", server.Address()),
		zap.String("command", command),
	)
	return response, nil
}
