package models

import (
	"math"
	"math/rand"

	"github.com/gosimple/slug"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusCreated        MatchStatus = "CREATED"
	MatchStatusCaptainsSelect MatchStatus = "CAPTAINS_SELECT"
	MatchStatusMapVeto        MatchStatus = "MAP_VETO"
	MatchStatusReadyToLoad    MatchStatus = "READY_TO_LOAD"
	MatchStatusLoaded         MatchStatus = "LOADED"
	MatchStatusStarted        MatchStatus = "STARTED"
	MatchStatusLive           MatchStatus = "LIVE"
	MatchStatusFinished       MatchStatus = "FINISHED"
	MatchStatusCancelled      MatchStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusFinished || s == MatchStatusCancelled
}

// MatchType is the best-of-N format.
type MatchType string

const (
	MatchTypeBO1 MatchType = "BO1"
	MatchTypeBO3 MatchType = "BO3"
	MatchTypeBO5 MatchType = "BO5"
)

// GameMode selects the server game mode.
type GameMode string

const (
	GameModeCompetitive GameMode = "COMPETITIVE"
	GameModeWingman     GameMode = "WINGMAN"
	GameModeAim         GameMode = "AIM"
)

// Team slot identifiers accepted by join/captain operations.
const (
	TeamSlot1 = "team1"
	TeamSlot2 = "team2"
)

// Commands and headers the game server plugin understands.
const (
	APIKeyHeader         = "Authorization"
	LoadMatchCommandName = "matchzy_loadmatch_url"
	EndMatchCommandName  = "css_endmatch"
)

// MapBan records one team banning one map. Append-only.
type MapBan struct {
	ID      string `json:"id" gorm:"primaryKey"`
	MatchID string `json:"match_id" gorm:"index;not null"`
	TeamID  string `json:"team_id" gorm:"not null"`
	Team    Team   `json:"team" gorm:"foreignKey:TeamID"`
	MapID   string `json:"map_id" gorm:"not null"`
	Map     Map    `json:"map" gorm:"foreignKey:MapID"`

	Timestamps
}

// MapPick records one team picking one map to be played. Append-only.
type MapPick struct {
	ID      string `json:"id" gorm:"primaryKey"`
	MatchID string `json:"match_id" gorm:"index;not null"`
	TeamID  string `json:"team_id" gorm:"not null"`
	Team    Team   `json:"team" gorm:"foreignKey:TeamID"`
	MapID   string `json:"map_id" gorm:"not null"`
	Map     Map    `json:"map" gorm:"foreignKey:MapID"`

	Timestamps
}

// Match is the aggregate root. All state transitions go through its methods;
// the methods mutate in memory only and the caller persists the result.
// Guards are evaluated before any method is called, see services.
type Match struct {
	ID           string            `json:"id" gorm:"primaryKey"`
	Status       MatchStatus       `json:"status" gorm:"type:varchar(32);default:'CREATED'"`
	ConfigID     string            `json:"config_id" gorm:"not null"`
	Config       MatchConfig       `json:"config" gorm:"foreignKey:ConfigID"`
	Team1ID      string            `json:"team1_id"`
	Team1        *Team             `json:"team1" gorm:"foreignKey:Team1ID"`
	Team2ID      string            `json:"team2_id"`
	Team2        *Team             `json:"team2" gorm:"foreignKey:Team2ID"`
	WinnerTeamID *string           `json:"winner_team_id,omitempty"`
	WinnerTeam   *Team             `json:"winner_team,omitempty" gorm:"foreignKey:WinnerTeamID"`
	MapBans      []MapBan          `json:"map_bans" gorm:"foreignKey:MatchID"`
	MapPicks     []MapPick         `json:"map_picks" gorm:"foreignKey:MatchID"`
	LastMapBanID *string           `json:"last_map_ban_id,omitempty"`
	LastMapBan   *MapBan           `json:"last_map_ban,omitempty" gorm:"foreignKey:LastMapBanID"`
	LastPickID   *string           `json:"last_map_pick_id,omitempty"`
	LastMapPick  *MapPick          `json:"last_map_pick,omitempty" gorm:"foreignKey:LastPickID"`
	Maplist      []string          `json:"maplist" gorm:"serializer:json"`
	Cvars        map[string]string `json:"cvars,omitempty" gorm:"serializer:json"`
	MessageID    string            `json:"message_id,omitempty"`
	AuthorID     string            `json:"author_id" gorm:"not null"`
	Author       DiscordUser       `json:"author" gorm:"foreignKey:AuthorID"`
	ServerID     *string           `json:"server_id,omitempty"`
	Server       *Server           `json:"server,omitempty" gorm:"foreignKey:ServerID"`
	GuildID      *string           `json:"guild_id,omitempty" gorm:"index"`
	Guild        *Guild            `json:"guild,omitempty" gorm:"foreignKey:GuildID"`

	Timestamps
}

// PlayerCount is the number of players joined across both teams.
func (m *Match) PlayerCount() int {
	return len(m.Team1.Players) + len(m.Team2.Players)
}

// RosterFull reports whether the match reached max players.
func (m *Match) RosterFull() bool {
	return m.PlayerCount() >= int(m.Config.MaxPlayers)
}

// TeamBySlot resolves "team1"/"team2" to the team.
func (m *Match) TeamBySlot(slot string) *Team {
	switch slot {
	case TeamSlot1:
		return m.Team1
	case TeamSlot2:
		return m.Team2
	}
	return nil
}

// TeamByDiscordUser returns the team the user plays on, or nil.
func (m *Match) TeamByDiscordUser(userID string) *Team {
	if m.Team1.HasDiscordUser(userID) {
		return m.Team1
	}
	if m.Team2.HasDiscordUser(userID) {
		return m.Team2
	}
	return nil
}

// PlayerByDiscordUser returns the joined player with the given Discord user
// id, or nil.
func (m *Match) PlayerByDiscordUser(userID string) *Player {
	for _, t := range []*Team{m.Team1, m.Team2} {
		for i := range t.Players {
			if t.Players[i].DiscordUser.UserID == userID {
				return &t.Players[i]
			}
		}
	}
	return nil
}

// AddPlayer puts a player on a team. An explicit slot is honored (moving the
// player off the other team if needed); otherwise the smaller team gets the
// player, ties favor team1.
func (m *Match) AddPlayer(p *Player, slot string) {
	switch slot {
	case TeamSlot1:
		m.Team2.RemovePlayer(p.ID)
		m.Team1.Players = append(m.Team1.Players, *p)
	case TeamSlot2:
		m.Team1.RemovePlayer(p.ID)
		m.Team2.Players = append(m.Team2.Players, *p)
	default:
		if len(m.Team2.Players) < len(m.Team1.Players) {
			m.Team2.Players = append(m.Team2.Players, *p)
		} else {
			m.Team1.Players = append(m.Team1.Players, *p)
		}
	}
}

// RemovePlayer takes a player off whichever team they are on.
func (m *Match) RemovePlayer(playerID string) {
	m.Team1.RemovePlayer(playerID)
	m.Team2.RemovePlayer(playerID)
}

// Start moves a full match out of CREATED. With shuffle_teams the rosters
// are repartitioned, captains auto-assigned and the veto starts immediately;
// otherwise captains must be chosen first. A lobby shuffle may have assigned
// both captains already, in which case there is nothing left to select and
// the veto starts directly.
func (m *Match) Start() {
	if m.Config.ShuffleTeams {
		m.ShufflePlayers()
		m.RenameTeams()
		m.Status = MatchStatusMapVeto
		return
	}
	if m.Team1.Leader != nil && m.Team2.Leader != nil {
		m.RenameTeams()
		m.Status = MatchStatusMapVeto
		return
	}
	m.Status = MatchStatusCaptainsSelect
}

// ShufflePlayers randomly repartitions the combined roster in half and makes
// the first player of each half the captain. Team1 gets the smaller half
// when the count is odd.
func (m *Match) ShufflePlayers() {
	players := append([]Player{}, m.Team1.Players...)
	players = append(players, m.Team2.Players...)
	rand.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})
	middle := len(players) / 2
	m.Team1.Players = players[:middle]
	m.Team2.Players = players[middle:]
	if len(m.Team1.Players) > 0 {
		m.Team1.SetLeader(&m.Team1.Players[0])
	}
	if len(m.Team2.Players) > 0 {
		m.Team2.SetLeader(&m.Team2.Players[0])
	}
}

// RenameTeams derives each team name from its captain.
func (m *Match) RenameTeams() {
	if m.Team1.Leader != nil {
		m.Team1.Name = "team_" + slug.Make(m.Team1.Leader.DisplayName())
	}
	if m.Team2.Leader != nil {
		m.Team2.Name = "team_" + slug.Make(m.Team2.Leader.DisplayName())
	}
}

// SetTeamCaptain assigns a captain. Once both teams have one the veto starts
// and the teams take their captains' names.
func (m *Match) SetTeamCaptain(p *Player, slot string) {
	if team := m.TeamBySlot(slot); team != nil {
		team.SetLeader(p)
	}
	if m.Team1.Leader != nil && m.Team2.Leader != nil {
		m.Status = MatchStatusMapVeto
		m.RenameTeams()
	}
}

// IsBanned reports whether the tag appears in the ban history.
func (m *Match) IsBanned(tag string) bool {
	for _, b := range m.MapBans {
		if b.Map.Tag == tag {
			return true
		}
	}
	return false
}

// IsPicked reports whether the tag appears in the pick history.
func (m *Match) IsPicked(tag string) bool {
	for _, p := range m.MapPicks {
		if p.Map.Tag == tag {
			return true
		}
	}
	return false
}

// MapsLeft lists the pool tags still eligible for ban/pick, in pool order.
// A finished BO1 veto has nothing left by definition.
func (m *Match) MapsLeft() []string {
	left := make([]string, 0, m.Config.PoolSize())
	for _, mp := range m.Config.MapPool.Maps {
		if !m.IsBanned(mp.Tag) && !m.IsPicked(mp.Tag) {
			left = append(left, mp.Tag)
		}
	}
	if m.Config.Type == MatchTypeBO1 && len(left) == 1 {
		return []string{}
	}
	return left
}

// remainingMap returns the single surviving pool map. Only meaningful when
// exactly one map is neither banned nor picked.
func (m *Match) remainingMap() *Map {
	for i := range m.Config.MapPool.Maps {
		mp := &m.Config.MapPool.Maps[i]
		if !m.IsBanned(mp.Tag) && !m.IsPicked(mp.Tag) {
			return mp
		}
	}
	return nil
}

// NextBanTeam is the team that bans next under strict alternation. Team1
// always opens the veto.
func (m *Match) NextBanTeam() *Team {
	if m.LastMapBan == nil || m.LastMapBan.TeamID == m.Team2.ID {
		return m.Team1
	}
	return m.Team2
}

// NextPickTeam is the team that picks next. Team1 always picks first.
func (m *Match) NextPickTeam() *Team {
	if m.LastMapPick == nil || m.LastMapPick.TeamID == m.Team2.ID {
		return m.Team1
	}
	return m.Team2
}

// BanMap records a ban and finishes the veto once the required ban count is
// reached: pool-1 bans for BO1, pool-3 for BO3 (the two picks in between
// account for the rest). The surviving map becomes the (last) maplist entry
// and the match is ready to load.
func (m *Match) BanMap(team *Team, mp *Map) {
	ban := MapBan{
		ID:      NewID("map_ban"),
		MatchID: m.ID,
		TeamID:  team.ID,
		Team:    *team,
		MapID:   mp.ID,
		Map:     *mp,
	}
	m.MapBans = append(m.MapBans, ban)
	m.LastMapBan = &m.MapBans[len(m.MapBans)-1]
	m.LastMapBanID = &m.LastMapBan.ID

	switch m.Config.Type {
	case MatchTypeBO1:
		if len(m.MapBans) == m.Config.PoolSize()-1 {
			m.Maplist = []string{m.remainingMap().Tag}
			m.Status = MatchStatusReadyToLoad
		}
	case MatchTypeBO3:
		m.finishVetoIfDecided()
	}
}

// PickMap records a pick and appends the map to the maplist in play order.
func (m *Match) PickMap(team *Team, mp *Map) {
	pick := MapPick{
		ID:      NewID("map_pick"),
		MatchID: m.ID,
		TeamID:  team.ID,
		Team:    *team,
		MapID:   mp.ID,
		Map:     *mp,
	}
	m.MapPicks = append(m.MapPicks, pick)
	m.LastMapPick = &m.MapPicks[len(m.MapPicks)-1]
	m.LastPickID = &m.LastMapPick.ID
	m.Maplist = append(m.Maplist, mp.Tag)
	m.finishVetoIfDecided()
}

// finishVetoIfDecided closes a BO3 veto once a single map survives: it is
// appended as the decider and the match becomes ready to load.
func (m *Match) finishVetoIfDecided() {
	if len(m.MapBans)+len(m.MapPicks) == m.Config.PoolSize()-1 {
		m.Maplist = append(m.Maplist, m.remainingMap().Tag)
		m.Status = MatchStatusReadyToLoad
	}
}

// MatchzyConfig materializes the server config published to the game server
// plugin. Pure derivation from current match state; match cvars override
// config cvars on collision.
func (m *Match) MatchzyConfig() map[string]interface{} {
	playersPerTeam := int(math.Ceil(float64(m.PlayerCount()) / 2))
	cfg := map[string]interface{}{
		"matchid": m.ID,
		"team1": map[string]interface{}{
			"name":    m.Team1.Name,
			"players": m.Team1.PlayersDict(),
		},
		"team2": map[string]interface{}{
			"name":    m.Team2.Name,
			"players": m.Team2.PlayersDict(),
		},
		"num_maps":         m.Config.NumMaps(),
		"maplist":          m.Maplist,
		"map_sides":        m.Config.MapSides,
		"clinch_series":    m.Config.ClinchSeries,
		"players_per_team": playersPerTeam,
	}
	if len(m.Cvars) > 0 || len(m.Config.Cvars) > 0 {
		cvars := make(map[string]string, len(m.Cvars)+len(m.Config.Cvars))
		for k, v := range m.Config.Cvars {
			cvars[k] = v
		}
		for k, v := range m.Cvars {
			cvars[k] = v
		}
		cfg["cvars"] = cvars
	}
	if m.Config.GameMode == GameModeWingman {
		cfg["wingman"] = true
	}
	return cfg
}

// WebhookCvars are the cvars pointing the game server plugin back at this
// API so it can report match events.
func (m *Match) WebhookCvars(webhookURL, apiKey string) map[string]string {
	return map[string]string{
		"matchzy_remote_log_url":          webhookURL,
		"matchzy_remote_log_header_key":   APIKeyHeader,
		"matchzy_remote_log_header_value": "Bearer " + apiKey,
	}
}

// ConnectCommand is the console command to join the assigned server.
func (m *Match) ConnectCommand() string {
	if m.Server == nil {
		return ""
	}
	return m.Server.ConnectString()
}
