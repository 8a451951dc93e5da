package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Qwizi/cs2-battle-bot/models"
)

// MapBanResult is returned to the bot after a successful ban.
type MapBanResult struct {
	BannedMap    models.Map    `json:"banned_map"`
	NextBanTeam  *models.Team  `json:"next_ban_team"`
	MapsLeft     []string      `json:"maps_left"`
	MapBansCount int           `json:"map_bans_count"`
	Match        *models.Match `json:"match"`
}

// MapPickResult is returned to the bot after a successful pick.
type MapPickResult struct {
	PickedMap     models.Map    `json:"picked_map"`
	NextPickTeam  *models.Team  `json:"next_pick_team"`
	MapsLeft      []string      `json:"maps_left"`
	MapPicksCount int           `json:"map_picks_count"`
	Match         *models.Match `json:"match"`
}

// vetoActor resolves the acting user to their team and checks captaincy.
// Every veto action is captain-only.
func vetoActor(match *models.Match, userID string) (*models.Team, error) {
	team := match.TeamByDiscordUser(userID)
	if team == nil {
		return nil, ValidationError("DiscordUser @<%s> is not in this match", userID)
	}
	if team.Leader == nil || team.Leader.DiscordUser.UserID != userID {
		return nil, PermissionError("DiscordUser @<%s> is not the leader of team %s", userID, team.Name)
	}
	return team, nil
}

// vetoMap checks the tag against the config's map pool.
func vetoMap(match *models.Match, tag string) (*models.Map, error) {
	mp := match.Config.MapPool.MapByTag(tag)
	if mp == nil {
		return nil, ValidationError("Map %s is not in the map pool", tag)
	}
	return mp, nil
}

// validateBan runs every ban guard and resolves the acting team and map.
// Nothing is mutated until all guards pass.
func validateBan(match *models.Match, userID, tag string) (*models.Team, *models.Map, error) {
	if match.Status != models.MatchStatusMapVeto {
		return nil, nil, InvalidStateError("Match is not in MAP_VETO status")
	}
	if match.Config.Type == models.MatchTypeBO5 {
		return nil, nil, ValidationError("BO5 veto is not supported")
	}
	team, err := vetoActor(match, userID)
	if err != nil {
		return nil, nil, err
	}
	mp, err := vetoMap(match, tag)
	if err != nil {
		return nil, nil, err
	}
	if match.IsBanned(tag) {
		return nil, nil, ConflictError("Map %s is already banned", tag)
	}
	if match.IsPicked(tag) {
		return nil, nil, ConflictError("Map %s cannot be banned. It was already picked", tag)
	}
	if match.LastMapBan != nil && match.LastMapBan.TeamID == team.ID {
		return nil, nil, ConflictError("You already banned a map. Wait for the other team to ban a map")
	}
	if len(match.MapBans) == 0 && team.ID == match.Team2.ID {
		return nil, nil, ConflictError("Team 1 has to ban first")
	}

	poolSize := match.Config.PoolSize()
	switch match.Config.Type {
	case models.MatchTypeBO1:
		if len(match.MapBans) >= poolSize-1 {
			return nil, nil, ConflictError("Only one map left. You can't ban more maps")
		}
	case models.MatchTypeBO3:
		if len(match.MapBans) >= poolSize-3 {
			return nil, nil, ConflictError("No maps left to ban")
		}
		if len(match.MapBans) == 2 && len(match.MapPicks) < 2 {
			return nil, nil, ConflictError("Both teams already banned 2 maps. Wait for both teams to pick a map")
		}
	}
	return team, mp, nil
}

// validatePick runs every pick guard. Picks only exist in the BO3 protocol,
// sandwiched between the opening and closing ban phases.
func validatePick(match *models.Match, userID, tag string) (*models.Team, *models.Map, error) {
	if match.Status != models.MatchStatusMapVeto {
		return nil, nil, InvalidStateError("Match is not in MAP_VETO status")
	}
	if match.Config.Type == models.MatchTypeBO1 {
		return nil, nil, ValidationError("Cannot pick a map in a BO1 match")
	}
	if match.Config.Type == models.MatchTypeBO5 {
		return nil, nil, ValidationError("BO5 veto is not supported")
	}
	team, err := vetoActor(match, userID)
	if err != nil {
		return nil, nil, err
	}
	mp, err := vetoMap(match, tag)
	if err != nil {
		return nil, nil, err
	}
	if match.IsPicked(tag) {
		return nil, nil, ConflictError("Map %s is already picked", tag)
	}
	if match.IsBanned(tag) {
		return nil, nil, ConflictError("Map %s cannot be picked. It was already banned", tag)
	}
	if len(match.MapBans) < 2 {
		return nil, nil, ConflictError("Both teams have to ban 1 map before picking a map")
	}
	if len(match.MapPicks) >= 2 {
		return nil, nil, ConflictError("Both teams already picked a map")
	}
	if match.LastMapPick != nil && match.LastMapPick.TeamID == team.ID {
		return nil, nil, ConflictError("You already picked a map. Wait for the other team to pick a map")
	}
	if len(match.MapPicks) == 0 && team.ID == match.Team2.ID {
		return nil, nil, ConflictError("Team 1 has to pick first")
	}
	return team, mp, nil
}

// BanMap removes a map from the pool on behalf of the acting captain's team.
func (s *MatchService) BanMap(ctx context.Context, matchID, userID, mapTag string) (*MapBanResult, error) {
	var result MapBanResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		team, mp, err := validateBan(match, userID, mapTag)
		if err != nil {
			return err
		}

		match.BanMap(team, mp)
		ban := match.LastMapBan
		if err := tx.Omit("Team", "Map").Create(ban).Error; err != nil {
			return err
		}
		if err := saveMatchState(tx, match); err != nil {
			return err
		}

		result = MapBanResult{
			BannedMap:    *mp,
			NextBanTeam:  match.NextBanTeam(),
			MapsLeft:     match.MapsLeft(),
			MapBansCount: len(match.MapBans),
			Match:        match,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishVetoEvent(ctx, result.Match, MatchEventMapVetoed, map[string]interface{}{
		"match_id":  result.Match.ID,
		"team":      result.Match.LastMapBan.Team.Name,
		"map_tag":   result.BannedMap.Tag,
		"maps_left": result.MapsLeft,
	})
	s.Logger.Info("map banned",
		zap.String("match_id", matchID),
		zap.String("map", result.BannedMap.Tag),
		zap.Int("bans", result.MapBansCount),
		zap.String("status", string(result.Match.Status)),
	)
	return &result, nil
}

// PickMap adds a map to the maplist on behalf of the acting captain's team.
func (s *MatchService) PickMap(ctx context.Context, matchID, userID, mapTag string) (*MapPickResult, error) {
	var result MapPickResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		team, mp, err := validatePick(match, userID, mapTag)
		if err != nil {
			return err
		}

		match.PickMap(team, mp)
		pick := match.LastMapPick
		if err := tx.Omit("Team", "Map").Create(pick).Error; err != nil {
			return err
		}
		if err := saveMatchState(tx, match); err != nil {
			return err
		}

		result = MapPickResult{
			PickedMap:     *mp,
			NextPickTeam:  match.NextPickTeam(),
			MapsLeft:      match.MapsLeft(),
			MapPicksCount: len(match.MapPicks),
			Match:         match,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishVetoEvent(ctx, result.Match, MatchEventMapPicked, map[string]interface{}{
		"match_id":  result.Match.ID,
		"map_tag":   result.PickedMap.Tag,
		"maplist":   result.Match.Maplist,
		"maps_left": result.MapsLeft,
	})
	s.Logger.Info("map picked",
		zap.String("match_id", matchID),
		zap.String("map", result.PickedMap.Tag),
		zap.Int("picks", result.MapPicksCount),
	)
	return &result, nil
}

// publishVetoEvent fans a veto progress event out to the guild channel.
// Publish failures are logged, never returned; the transition already
// committed.
func (s *MatchService) publishVetoEvent(ctx context.Context, match *models.Match, event MatchEvent, payload map[string]interface{}) {
	if match.Guild == nil {
		return
	}
	channel := EventChannel(match.Guild.GuildID, event)
	if err := s.Events.Publish(ctx, channel, payload); err != nil {
		s.Logger.Warn("failed to publish veto event",
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}
