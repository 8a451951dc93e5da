package models

// DiscordUser is the Discord identity a player acts through.
type DiscordUser struct {
	ID       string `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"uniqueIndex;not null"`
	Username string `json:"username"`

	Timestamps
}

// SteamUser holds the Steam identity required to put a player on a server.
type SteamUser struct {
	ID         string `json:"id" gorm:"primaryKey"`
	Username   string `json:"username"`
	SteamID64  string `json:"steamid64"`
	SteamID32  string `json:"steamid32,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Avatar     string `json:"avatar,omitempty"`

	Timestamps
}

// Player links a Discord identity to an optional Steam identity.
type Player struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	DiscordUserID string      `json:"discord_user_id" gorm:"index;not null"`
	DiscordUser   DiscordUser `json:"discord_user" gorm:"foreignKey:DiscordUserID"`
	SteamUserID   *string     `json:"steam_user_id,omitempty"`
	SteamUser     *SteamUser  `json:"steam_user,omitempty" gorm:"foreignKey:SteamUserID"`

	Timestamps
}

// DisplayName is the name used for team naming and rosters. Steam name wins
// because that is what the game server shows.
func (p *Player) DisplayName() string {
	if p.SteamUser != nil && p.SteamUser.Username != "" {
		return p.SteamUser.Username
	}
	return p.DiscordUser.Username
}

// Team is one side of a match. Leader is the captain; only the leader may
// ban or pick maps.
type Team struct {
	ID       string   `json:"id" gorm:"primaryKey"`
	Name     string   `json:"name" gorm:"not null"`
	Players  []Player `json:"players" gorm:"many2many:team_players"`
	LeaderID *string  `json:"leader_id,omitempty" gorm:"index"`
	Leader   *Player  `json:"leader,omitempty" gorm:"foreignKey:LeaderID"`

	Timestamps
}

// HasPlayer reports whether a player is on the roster.
func (t *Team) HasPlayer(playerID string) bool {
	for _, p := range t.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// HasDiscordUser reports whether a player with the given Discord user id is
// on the roster.
func (t *Team) HasDiscordUser(userID string) bool {
	for _, p := range t.Players {
		if p.DiscordUser.UserID == userID {
			return true
		}
	}
	return false
}

// RemovePlayer drops a player from the roster. Removing the leader clears
// the captain slot as well, the leader must always be a member.
func (t *Team) RemovePlayer(playerID string) {
	for i, p := range t.Players {
		if p.ID == playerID {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			if t.LeaderID != nil && *t.LeaderID == playerID {
				t.LeaderID = nil
				t.Leader = nil
			}
			return
		}
	}
}

// SetLeader assigns the captain. The player must already be a member.
func (t *Team) SetLeader(p *Player) {
	id := p.ID
	t.LeaderID = &id
	t.Leader = p
}

// PlayersDict maps steamid64 to player name, the roster shape matchzy expects.
func (t *Team) PlayersDict() map[string]string {
	players := make(map[string]string, len(t.Players))
	for _, p := range t.Players {
		if p.SteamUser == nil {
			continue
		}
		players[p.SteamUser.SteamID64] = p.SteamUser.Username
	}
	return players
}
