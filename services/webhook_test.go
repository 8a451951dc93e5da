package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qwizi/cs2-battle-bot/models"
)

func applyEvent(t *testing.T, m *models.Match, event MatchEvent, raw string) interface{} {
	t.Helper()
	spec, ok := eventSpecs[event]
	require.True(t, ok)
	payload, err := spec.decode([]byte(raw))
	require.NoError(t, err)
	if spec.apply != nil {
		spec.apply(m, payload)
	}
	return payload
}

func TestSeriesStartMovesMatchToStarted(t *testing.T) {
	m := newVetoMatch(models.MatchTypeBO1)
	m.Status = models.MatchStatusLoaded

	applyEvent(t, m, MatchEventSeriesStart,
		`{"matchid":"match_1","event":"series_start","num_maps":1,"team1":{"name":"team_a"},"team2":{"name":"team_b"}}`)

	assert.Equal(t, models.MatchStatusStarted, m.Status)
}

func TestGoingLiveMovesMatchToLive(t *testing.T) {
	m := newVetoMatch(models.MatchTypeBO1)
	m.Status = models.MatchStatusStarted

	applyEvent(t, m, MatchEventGoingLive,
		`{"matchid":"match_1","event":"going_live","map_number":0}`)

	assert.Equal(t, models.MatchStatusLive, m.Status)
}

func TestSeriesEndSetsWinnerFromScores(t *testing.T) {
	m := newVetoMatch(models.MatchTypeBO1)
	m.Status = models.MatchStatusLive

	applyEvent(t, m, MatchEventSeriesEnd,
		`{"matchid":"match_1","event":"series_end","team1_series_score":0,"team2_series_score":1,"time_until_restore":45}`)

	assert.Equal(t, models.MatchStatusFinished, m.Status)
	require.NotNil(t, m.WinnerTeamID)
	assert.Equal(t, m.Team2ID, *m.WinnerTeamID)
}

func TestSeriesEndDrawLeavesNoWinner(t *testing.T) {
	m := newVetoMatch(models.MatchTypeBO1)
	m.Status = models.MatchStatusLive

	applyEvent(t, m, MatchEventSeriesEnd,
		`{"matchid":"match_1","event":"series_end","team1_series_score":0,"team2_series_score":0,"time_until_restore":45}`)

	assert.Equal(t, models.MatchStatusFinished, m.Status)
	assert.Nil(t, m.WinnerTeamID)
}

func TestMapResultDecodesWithoutTransition(t *testing.T) {
	m := newVetoMatch(models.MatchTypeBO1)
	m.Status = models.MatchStatusLive

	payload := applyEvent(t, m, MatchEventMapResult,
		`{"matchid":"match_1","event":"map_result","map_number":0,
		  "team1":{"name":"team_a","series_score":1,"score":13,"score_ct":7,"score_t":6,"players":[]},
		  "team2":{"name":"team_b","series_score":0,"score":9,"score_ct":4,"score_t":5,"players":[]},
		  "winner":{"side":"ct","team":"team1"}}`)

	assert.Equal(t, models.MatchStatusLive, m.Status)
	event := payload.(MapResultEvent)
	assert.Equal(t, 13, event.Team1.Score)
	assert.Equal(t, "team1", event.Winner.Team)
}

func TestEveryEventHasASpec(t *testing.T) {
	for _, event := range []MatchEvent{
		MatchEventSeriesStart, MatchEventSeriesEnd, MatchEventMapResult,
		MatchEventSidePicked, MatchEventMapPicked, MatchEventMapVetoed,
		MatchEventGoingLive, MatchEventRoundEnd,
	} {
		_, ok := eventSpecs[event]
		assert.True(t, ok, "event %s has no spec", event)
	}
}

func TestApplyWebhookEventRejectsUnknownEvent(t *testing.T) {
	s := &MatchService{}

	_, err := s.ApplyWebhookEvent(context.Background(), "match_1",
		[]byte(`{"matchid":"match_1","event":"demo_upload_ended"}`))

	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestApplyWebhookEventRejectsMatchIDMismatch(t *testing.T) {
	s := &MatchService{}

	_, err := s.ApplyWebhookEvent(context.Background(), "match_1",
		[]byte(`{"matchid":"match_2","event":"series_start"}`))

	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestApplyWebhookEventRejectsInvalidBody(t *testing.T) {
	s := &MatchService{}

	_, err := s.ApplyWebhookEvent(context.Background(), "match_1", []byte(`not json`))

	assert.Equal(t, KindValidation, KindOf(err))
}

func TestEventChannelFormat(t *testing.T) {
	assert.Equal(t, "event.123456.series_start",
		EventChannel("123456", MatchEventSeriesStart))
}
