package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlayer(n int) Player {
	return Player{
		ID: fmt.Sprintf("player_%d", n),
		DiscordUser: DiscordUser{
			ID:       fmt.Sprintf("discord_user_%d", n),
			UserID:   fmt.Sprintf("%d", 1000+n),
			Username: fmt.Sprintf("player%d", n),
		},
		SteamUser: &SteamUser{
			ID:        fmt.Sprintf("steam_user_%d", n),
			Username:  fmt.Sprintf("steam%d", n),
			SteamID64: fmt.Sprintf("7656119%d", n),
		},
	}
}

func testPool(tags ...string) *MapPool {
	pool := &MapPool{ID: "map_pool_1", Name: "active duty"}
	for i, tag := range tags {
		pool.Maps = append(pool.Maps, Map{
			ID:   fmt.Sprintf("map_%d", i),
			Name: tag,
			Tag:  tag,
		})
	}
	return pool
}

var activeDuty = []string{
	"de_mirage", "de_inferno", "de_nuke", "de_vertigo",
	"de_ancient", "de_anubis", "de_dust2",
}

// testMatch builds a match mid-veto: full rosters, captains set, MAP_VETO.
func testMatch(matchType MatchType, poolTags ...string) *Match {
	if len(poolTags) == 0 {
		poolTags = activeDuty
	}
	team1 := &Team{ID: "team_1", Name: "Team 1"}
	team2 := &Team{ID: "team_2", Name: "Team 2"}
	for i := 0; i < 5; i++ {
		team1.Players = append(team1.Players, testPlayer(i))
		team2.Players = append(team2.Players, testPlayer(5+i))
	}
	team1.SetLeader(&team1.Players[0])
	team2.SetLeader(&team2.Players[0])

	return &Match{
		ID:     "match_1",
		Status: MatchStatusMapVeto,
		Config: MatchConfig{
			ID:         "match_config_1",
			Name:       "default",
			Type:       matchType,
			GameMode:   GameModeCompetitive,
			MapPool:    testPool(poolTags...),
			MapSides:   []string{"knife", "knife", "knife"},
			MaxPlayers: 10,
		},
		Team1ID:  team1.ID,
		Team1:    team1,
		Team2ID:  team2.ID,
		Team2:    team2,
		AuthorID: team1.Players[0].DiscordUser.ID,
		Author:   team1.Players[0].DiscordUser,
	}
}

func mapByTag(t *testing.T, m *Match, tag string) *Map {
	t.Helper()
	mp := m.Config.MapPool.MapByTag(tag)
	require.NotNil(t, mp, "map %s not in pool", tag)
	return mp
}

func TestBO1VetoBansDownToOneMap(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	teams := []*Team{m.Team1, m.Team2}

	for i := 0; i < 6; i++ {
		assert.Equal(t, teams[i%2].ID, m.NextBanTeam().ID)
		m.BanMap(teams[i%2], mapByTag(t, m, activeDuty[i]))
	}

	assert.Equal(t, MatchStatusReadyToLoad, m.Status)
	assert.Equal(t, []string{"de_dust2"}, m.Maplist)
	assert.Len(t, m.MapBans, 6)
	assert.Empty(t, m.MapsLeft())
}

func TestBO1VetoBeforeLastBan(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	teams := []*Team{m.Team1, m.Team2}

	for i := 0; i < 5; i++ {
		m.BanMap(teams[i%2], mapByTag(t, m, activeDuty[i]))
	}

	assert.Equal(t, MatchStatusMapVeto, m.Status)
	assert.Empty(t, m.Maplist)
	assert.Equal(t, []string{"de_anubis", "de_dust2"}, m.MapsLeft())
}

func TestBO3VetoProducesThreeMapMaplist(t *testing.T) {
	m := testMatch(MatchTypeBO3)

	m.BanMap(m.Team1, mapByTag(t, m, "de_mirage"))
	m.BanMap(m.Team2, mapByTag(t, m, "de_inferno"))
	m.PickMap(m.Team1, mapByTag(t, m, "de_nuke"))
	m.PickMap(m.Team2, mapByTag(t, m, "de_vertigo"))
	assert.Equal(t, MatchStatusMapVeto, m.Status)

	m.BanMap(m.Team1, mapByTag(t, m, "de_ancient"))
	assert.Equal(t, MatchStatusMapVeto, m.Status)
	m.BanMap(m.Team2, mapByTag(t, m, "de_anubis"))

	assert.Equal(t, MatchStatusReadyToLoad, m.Status)
	assert.Equal(t, []string{"de_nuke", "de_vertigo", "de_dust2"}, m.Maplist)
	assert.Len(t, m.MapBans, 4)
	assert.Len(t, m.MapPicks, 2)
}

func TestBO3VetoFiveMapPool(t *testing.T) {
	m := testMatch(MatchTypeBO3, "de_mirage", "de_inferno", "de_nuke", "de_vertigo", "de_ancient")

	m.BanMap(m.Team1, mapByTag(t, m, "de_mirage"))
	m.BanMap(m.Team2, mapByTag(t, m, "de_inferno"))
	m.PickMap(m.Team1, mapByTag(t, m, "de_nuke"))
	assert.Equal(t, MatchStatusMapVeto, m.Status)
	m.PickMap(m.Team2, mapByTag(t, m, "de_vertigo"))

	assert.Equal(t, MatchStatusReadyToLoad, m.Status)
	assert.Equal(t, []string{"de_nuke", "de_vertigo", "de_ancient"}, m.Maplist)
}

func TestMapsLeftKeepsPoolOrder(t *testing.T) {
	m := testMatch(MatchTypeBO3)

	m.BanMap(m.Team1, mapByTag(t, m, "de_dust2"))
	m.BanMap(m.Team2, mapByTag(t, m, "de_inferno"))
	m.PickMap(m.Team1, mapByTag(t, m, "de_ancient"))

	assert.Equal(t, []string{"de_mirage", "de_nuke", "de_vertigo", "de_anubis"}, m.MapsLeft())
}

func TestNextBanTeamAlternates(t *testing.T) {
	m := testMatch(MatchTypeBO1)

	assert.Equal(t, m.Team1.ID, m.NextBanTeam().ID)
	m.BanMap(m.Team1, mapByTag(t, m, "de_mirage"))
	assert.Equal(t, m.Team2.ID, m.NextBanTeam().ID)
	m.BanMap(m.Team2, mapByTag(t, m, "de_inferno"))
	assert.Equal(t, m.Team1.ID, m.NextBanTeam().ID)
}

func TestNextPickTeamAlternates(t *testing.T) {
	m := testMatch(MatchTypeBO3)
	m.BanMap(m.Team1, mapByTag(t, m, "de_mirage"))
	m.BanMap(m.Team2, mapByTag(t, m, "de_inferno"))

	assert.Equal(t, m.Team1.ID, m.NextPickTeam().ID)
	m.PickMap(m.Team1, mapByTag(t, m, "de_nuke"))
	assert.Equal(t, m.Team2.ID, m.NextPickTeam().ID)
}

func TestBansAndPicksStayDisjoint(t *testing.T) {
	m := testMatch(MatchTypeBO3)

	m.BanMap(m.Team1, mapByTag(t, m, "de_mirage"))
	m.BanMap(m.Team2, mapByTag(t, m, "de_inferno"))
	m.PickMap(m.Team1, mapByTag(t, m, "de_nuke"))

	assert.True(t, m.IsBanned("de_mirage"))
	assert.False(t, m.IsPicked("de_mirage"))
	assert.True(t, m.IsPicked("de_nuke"))
	assert.False(t, m.IsBanned("de_nuke"))
}

func TestAddPlayerDefaultsToSmallerTeam(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Team1.Players = m.Team1.Players[:2]
	m.Team2.Players = m.Team2.Players[:1]

	p := testPlayer(20)
	m.AddPlayer(&p, "")
	assert.Len(t, m.Team2.Players, 2)

	// tie goes to team1
	q := testPlayer(21)
	m.AddPlayer(&q, "")
	assert.Len(t, m.Team1.Players, 3)
}

func TestAddPlayerExplicitSlotMovesPlayer(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	p := m.Team1.Players[1]

	m.AddPlayer(&p, TeamSlot2)

	assert.False(t, m.Team1.HasPlayer(p.ID))
	assert.True(t, m.Team2.HasPlayer(p.ID))
	assert.Equal(t, 10, m.PlayerCount())
}

func TestRemovePlayerClearsLeader(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	leaderID := m.Team1.Leader.ID

	m.RemovePlayer(leaderID)

	assert.False(t, m.Team1.HasPlayer(leaderID))
	assert.Nil(t, m.Team1.Leader)
	assert.Nil(t, m.Team1.LeaderID)
}

func TestShufflePlayersPartitionsEvenly(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	before := make(map[string]bool)
	for _, p := range append(append([]Player{}, m.Team1.Players...), m.Team2.Players...) {
		before[p.ID] = true
	}

	m.ShufflePlayers()

	assert.Len(t, m.Team1.Players, 5)
	assert.Len(t, m.Team2.Players, 5)
	after := make(map[string]bool)
	for _, p := range append(append([]Player{}, m.Team1.Players...), m.Team2.Players...) {
		after[p.ID] = true
	}
	assert.Equal(t, before, after)
	require.NotNil(t, m.Team1.Leader)
	require.NotNil(t, m.Team2.Leader)
	assert.Equal(t, m.Team1.Players[0].ID, m.Team1.Leader.ID)
	assert.Equal(t, m.Team2.Players[0].ID, m.Team2.Leader.ID)
}

func TestShufflePlayersOddCountFavorsTeam2(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Team2.Players = m.Team2.Players[:4]

	m.ShufflePlayers()

	assert.Len(t, m.Team1.Players, 4)
	assert.Len(t, m.Team2.Players, 5)
}

func TestStartWithShuffleTeamsSkipsCaptainSelect(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Status = MatchStatusCreated
	m.Config.ShuffleTeams = true

	m.Start()

	assert.Equal(t, MatchStatusMapVeto, m.Status)
	assert.NotNil(t, m.Team1.Leader)
	assert.NotNil(t, m.Team2.Leader)
}

func TestStartAfterLobbyShuffleSkipsCaptainSelect(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Status = MatchStatusCreated
	m.Team1.Leader = nil
	m.Team1.LeaderID = nil
	m.Team2.Leader = nil
	m.Team2.LeaderID = nil

	// author shuffles the lobby, which assigns both captains
	m.ShufflePlayers()
	require.NotNil(t, m.Team1.Leader)
	require.NotNil(t, m.Team2.Leader)

	m.Start()

	// CAPTAINS_SELECT would be a dead end here: every SelectCaptain call
	// fails once both captains exist
	assert.Equal(t, MatchStatusMapVeto, m.Status)
	assert.True(t, len(m.Team1.Name) > len("team_"))
	assert.True(t, len(m.Team2.Name) > len("team_"))
}

func TestStartWithoutShuffleWaitsForCaptains(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Status = MatchStatusCreated
	m.Team1.Leader = nil
	m.Team1.LeaderID = nil
	m.Team2.Leader = nil
	m.Team2.LeaderID = nil

	m.Start()

	assert.Equal(t, MatchStatusCaptainsSelect, m.Status)
}

func TestSetTeamCaptainStartsVetoWhenBothSet(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Status = MatchStatusCaptainsSelect
	m.Team1.Leader = nil
	m.Team1.LeaderID = nil
	m.Team2.Leader = nil
	m.Team2.LeaderID = nil

	m.SetTeamCaptain(&m.Team1.Players[0], TeamSlot1)
	assert.Equal(t, MatchStatusCaptainsSelect, m.Status)

	m.SetTeamCaptain(&m.Team2.Players[0], TeamSlot2)
	assert.Equal(t, MatchStatusMapVeto, m.Status)
	assert.Equal(t, "team_steam0", m.Team1.Name)
	assert.Equal(t, "team_steam5", m.Team2.Name)
}

func TestMatchzyConfigShape(t *testing.T) {
	m := testMatch(MatchTypeBO3)
	m.Maplist = []string{"de_nuke", "de_vertigo", "de_dust2"}

	cfg := m.MatchzyConfig()

	assert.Equal(t, m.ID, cfg["matchid"])
	assert.Equal(t, 3, cfg["num_maps"])
	assert.Equal(t, []string{"de_nuke", "de_vertigo", "de_dust2"}, cfg["maplist"])
	assert.Equal(t, 5, cfg["players_per_team"])
	assert.NotContains(t, cfg, "wingman")

	team1 := cfg["team1"].(map[string]interface{})
	players := team1["players"].(map[string]string)
	assert.Len(t, players, 5)
	assert.Equal(t, "steam0", players["76561190"])
}

func TestMatchzyConfigPlayersPerTeamRoundsUp(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Team2.Players = m.Team2.Players[:4]

	cfg := m.MatchzyConfig()

	assert.Equal(t, 5, cfg["players_per_team"])
}

func TestMatchzyConfigMatchCvarsOverrideConfigCvars(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Config.Cvars = map[string]string{"mp_freezetime": "10", "hostname": "cfg"}
	m.Cvars = map[string]string{"hostname": "match"}

	cvars := m.MatchzyConfig()["cvars"].(map[string]string)

	assert.Equal(t, "match", cvars["hostname"])
	assert.Equal(t, "10", cvars["mp_freezetime"])
}

func TestMatchzyConfigWingman(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Config.GameMode = GameModeWingman

	assert.Equal(t, true, m.MatchzyConfig()["wingman"])
}

func TestMatchzyConfigIsIdempotent(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	m.Maplist = []string{"de_dust2"}

	assert.Equal(t, m.MatchzyConfig(), m.MatchzyConfig())
}

func TestWebhookCvars(t *testing.T) {
	m := testMatch(MatchTypeBO1)

	cvars := m.WebhookCvars("https://bot.example.com/api/matches/match_1/webhook", "secret")

	assert.Equal(t, "https://bot.example.com/api/matches/match_1/webhook", cvars["matchzy_remote_log_url"])
	assert.Equal(t, "Authorization", cvars["matchzy_remote_log_header_key"])
	assert.Equal(t, "Bearer secret", cvars["matchzy_remote_log_header_value"])
}

func TestConnectCommandUsesAssignedServer(t *testing.T) {
	m := testMatch(MatchTypeBO1)
	assert.Equal(t, "", m.ConnectCommand())

	m.Server = &Server{
		ID:       "server_1",
		IP:       "10.0.0.1",
		Port:     27015,
		Password: "hunter2",
	}

	assert.Equal(t, "connect 10.0.0.1:27015; password hunter2;", m.ConnectCommand())
	assert.Equal(t, "steam://connect/10.0.0.1:27015/hunter2", m.Server.JoinLink())
}

func TestMapPoolHasTag(t *testing.T) {
	pool := testPool("de_mirage", "de_nuke")

	assert.True(t, pool.HasTag("de_nuke"))
	assert.False(t, pool.HasTag("de_train"))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, MatchStatusFinished.IsTerminal())
	assert.True(t, MatchStatusCancelled.IsTerminal())
	assert.False(t, MatchStatusCreated.IsTerminal())
	assert.False(t, MatchStatusLive.IsTerminal())
}
