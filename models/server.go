package models

import "fmt"

// Server is a game server a match can be loaded onto. A server may only be
// held by one STARTED/LIVE match at a time.
type Server struct {
	ID           string  `json:"id" gorm:"primaryKey"`
	Name         string  `json:"name"`
	IP           string  `json:"ip" gorm:"not null"`
	Port         uint    `json:"port" gorm:"not null"`
	Password     string  `json:"-"`
	RconPassword string  `json:"-"`
	IsPublic     bool    `json:"is_public" gorm:"default:false"`
	GuildID      *string `json:"guild_id,omitempty" gorm:"index"`

	Timestamps
}

// Address returns host:port.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.IP, s.Port)
}

// ConnectString is the console command players paste to join.
func (s *Server) ConnectString() string {
	return fmt.Sprintf("connect %s:%d; password %s;", s.IP, s.Port, s.Password)
}

// JoinLink is the one-click steam connect URL.
func (s *Server) JoinLink() string {
	return fmt.Sprintf("steam://connect/%s:%d/%s", s.IP, s.Port, s.Password)
}
