package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Qwizi/cs2-battle-bot/models"
)

// MatchEvent is the closed set of events the game server plugin reports.
type MatchEvent string

const (
	MatchEventSeriesStart MatchEvent = "series_start"
	MatchEventSeriesEnd   MatchEvent = "series_end"
	MatchEventMapResult   MatchEvent = "map_result"
	MatchEventSidePicked  MatchEvent = "side_picked"
	MatchEventMapPicked   MatchEvent = "map_picked"
	MatchEventMapVetoed   MatchEvent = "map_vetoed"
	MatchEventGoingLive   MatchEvent = "going_live"
	MatchEventRoundEnd    MatchEvent = "round_end"
)

// BaseEvent is the envelope every webhook body carries.
type BaseEvent struct {
	MatchID string     `json:"matchid"`
	Event   MatchEvent `json:"event"`
}

// EventTeam is the team wrapper the plugin sends on series events.
type EventTeam struct {
	Name string `json:"name"`
}

// EventPlayer is a per-player stat line on map_result events.
type EventPlayer struct {
	SteamID string                 `json:"steamid"`
	Name    string                 `json:"name"`
	Stats   map[string]interface{} `json:"stats"`
}

// MapResultTeam is a team's line on a map_result event.
type MapResultTeam struct {
	Name        string        `json:"name"`
	SeriesScore int           `json:"series_score"`
	Score       int           `json:"score"`
	ScoreCT     int           `json:"score_ct"`
	ScoreT      int           `json:"score_t"`
	Players     []EventPlayer `json:"players"`
}

// SeriesStartEvent announces the series beginning on the server.
type SeriesStartEvent struct {
	BaseEvent
	NumMaps int       `json:"num_maps"`
	Team1   EventTeam `json:"team1"`
	Team2   EventTeam `json:"team2"`
}

// SeriesEndEvent carries the final series score.
type SeriesEndEvent struct {
	BaseEvent
	Team1SeriesScore int `json:"team1_series_score"`
	Team2SeriesScore int `json:"team2_series_score"`
	TimeUntilRestore int `json:"time_until_restore"`
}

// GoingLiveEvent fires when a map goes live after warmup.
type GoingLiveEvent struct {
	BaseEvent
	MapNumber int `json:"map_number"`
}

// MapResultEvent carries one finished map's score lines.
type MapResultEvent struct {
	BaseEvent
	MapNumber int           `json:"map_number"`
	Team1     MapResultTeam `json:"team1"`
	Team2     MapResultTeam `json:"team2"`
	Winner    struct {
		Side string `json:"side"`
		Team string `json:"team"`
	} `json:"winner"`
}

// WebhookResult reports what was applied and where it was fanned out.
type WebhookResult struct {
	Event   MatchEvent  `json:"event"`
	Channel string      `json:"channel"`
	Payload interface{} `json:"data"`
}

// eventSpec validates one event kind's payload and applies its status
// transition. decode returning the typed payload keeps per-kind shape
// validation next to the transition it gates.
type eventSpec struct {
	decode func(raw []byte) (interface{}, error)
	apply  func(match *models.Match, payload interface{})
}

func decodeInto[T any](raw []byte) (interface{}, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ValidationError("invalid payload: %v", err)
	}
	return payload, nil
}

func passthrough(raw []byte) (interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ValidationError("invalid payload: %v", err)
	}
	return payload, nil
}

// eventSpecs is the dispatch table over the closed event enum.
var eventSpecs = map[MatchEvent]eventSpec{
	MatchEventSeriesStart: {
		decode: decodeInto[SeriesStartEvent],
		apply: func(match *models.Match, _ interface{}) {
			match.Status = models.MatchStatusStarted
		},
	},
	MatchEventSeriesEnd: {
		decode: decodeInto[SeriesEndEvent],
		apply: func(match *models.Match, payload interface{}) {
			match.Status = models.MatchStatusFinished
			event := payload.(SeriesEndEvent)
			switch {
			case event.Team1SeriesScore > event.Team2SeriesScore:
				match.WinnerTeamID = &match.Team1ID
				match.WinnerTeam = match.Team1
			case event.Team2SeriesScore > event.Team1SeriesScore:
				match.WinnerTeamID = &match.Team2ID
				match.WinnerTeam = match.Team2
			}
		},
	},
	MatchEventGoingLive: {
		decode: decodeInto[GoingLiveEvent],
		apply: func(match *models.Match, _ interface{}) {
			match.Status = models.MatchStatusLive
		},
	},
	MatchEventMapResult: {decode: decodeInto[MapResultEvent]},
	MatchEventSidePicked: {decode: passthrough},
	MatchEventMapPicked:  {decode: passthrough},
	MatchEventMapVetoed:  {decode: passthrough},
	MatchEventRoundEnd:   {decode: passthrough},
}

// ApplyWebhookEvent ingests one game-server event for a match: validates the
// payload shape for its kind, applies the status transition if the kind has
// one, and fans the event out on the guild channel.
func (s *MatchService) ApplyWebhookEvent(ctx context.Context, matchID string, raw []byte) (*WebhookResult, error) {
	var base BaseEvent
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, ValidationError("invalid event body: %v", err)
	}
	if base.MatchID != matchID {
		return nil, ValidationError("Match ID in the request does not match the URL")
	}
	spec, ok := eventSpecs[base.Event]
	if !ok {
		return nil, ValidationError("Unknown event %s", base.Event)
	}
	payload, err := spec.decode(raw)
	if err != nil {
		return nil, err
	}

	var guildID string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		if spec.apply != nil {
			spec.apply(match, payload)
			if err := saveMatchState(tx, match); err != nil {
				return err
			}
		}
		if match.Guild != nil {
			guildID = match.Guild.GuildID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{Event: base.Event, Payload: payload}
	if guildID != "" {
		result.Channel = EventChannel(guildID, base.Event)
		if err := s.Events.Publish(ctx, result.Channel, payload); err != nil {
			s.Logger.Warn("failed to publish match event",
				zap.String("channel", result.Channel),
				zap.Error(err),
			)
		}
	}
	s.Logger.Info("processed match event",
		zap.String("match_id", matchID),
		zap.String("event", string(base.Event)),
	)
	return result, nil
}
