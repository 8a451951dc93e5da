package services

import "github.com/Qwizi/cs2-battle-bot/models"

// Guard checks for roster and captain operations. Mirrors the veto guards:
// fully evaluated before any mutation, typed kinds, no partial transitions.

func validTeamSlot(slot string) bool {
	return slot == "" || slot == models.TeamSlot1 || slot == models.TeamSlot2
}

func validateJoin(match *models.Match, userID, teamSlot string) error {
	if match.Status != models.MatchStatusCreated {
		return InvalidStateError("Match is not in CREATED status")
	}
	if !validTeamSlot(teamSlot) {
		return ValidationError("Team must be one of team1, team2")
	}
	if match.TeamByDiscordUser(userID) != nil {
		return ConflictError("DiscordUser @<%s> is already in this match", userID)
	}
	if match.RosterFull() {
		return ConflictError("Match is full")
	}
	half := int(match.Config.MaxPlayers) / 2
	if teamSlot == models.TeamSlot1 && len(match.Team1.Players) >= half {
		return ConflictError("Team1 is full")
	}
	if teamSlot == models.TeamSlot2 && len(match.Team2.Players) >= half {
		return ConflictError("Team2 is full")
	}
	return nil
}

func validateLeave(match *models.Match, userID string) error {
	if match.Status != models.MatchStatusCreated {
		return InvalidStateError("Match is not in CREATED status")
	}
	if match.Author.UserID == userID {
		return PermissionError("DiscordUser @<%s> is author of the match and cannot leave", userID)
	}
	if match.TeamByDiscordUser(userID) == nil {
		return ValidationError("DiscordUser @<%s> is not in this match", userID)
	}
	return nil
}

func validateSelectCaptain(match *models.Match, userID, teamSlot string) error {
	if match.Status != models.MatchStatusCaptainsSelect {
		return InvalidStateError("Match is not in CAPTAINS_SELECT status")
	}
	team := match.TeamBySlot(teamSlot)
	if team == nil {
		return ValidationError("Team must be one of team1, team2")
	}
	if !team.HasDiscordUser(userID) {
		return ValidationError("DiscordUser @<%s> is not in %s", userID, teamSlot)
	}
	if team.Leader != nil {
		return ConflictError("%s already has a captain", team.Name)
	}
	return nil
}

// validateShuffle rejects shuffling once the veto has recorded an action:
// the recorded bans and picks would belong to captains that no longer lead.
func validateShuffle(match *models.Match, requesterID string) error {
	if match.Author.UserID != requesterID {
		return PermissionError("Only the author of the match can shuffle the teams")
	}
	switch match.Status {
	case models.MatchStatusCreated, models.MatchStatusCaptainsSelect:
		return nil
	case models.MatchStatusMapVeto:
		if len(match.MapBans) > 0 || len(match.MapPicks) > 0 {
			return InvalidStateError("Teams cannot be shuffled after the veto has started")
		}
		return nil
	}
	return InvalidStateError("Match is not in a shuffleable status")
}
