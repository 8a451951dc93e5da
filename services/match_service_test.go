package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Qwizi/cs2-battle-bot/models"
)

func TestCloneTeamResetsCaptain(t *testing.T) {
	src := &models.Team{ID: "team_1", Name: "team_steam0"}
	for i := 0; i < 5; i++ {
		src.Players = append(src.Players, newTestPlayer(i))
	}
	src.SetLeader(&src.Players[0])

	clone := cloneTeam(src)

	// a recreated match starts over at captain selection
	assert.Nil(t, clone.LeaderID)
	assert.Nil(t, clone.Leader)
	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, src.Name, clone.Name)
	assert.Len(t, clone.Players, 5)
}

func TestCloneTeamCopiesRosterNotSlice(t *testing.T) {
	src := &models.Team{ID: "team_1", Name: "Team 1"}
	src.Players = append(src.Players, newTestPlayer(0))

	clone := cloneTeam(src)
	clone.Players[0].ID = "player_other"

	assert.Equal(t, "player_0", src.Players[0].ID)
}
