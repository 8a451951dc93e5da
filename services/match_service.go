package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Qwizi/cs2-battle-bot/models"
)

// MatchService runs the match lifecycle: one synchronous state transition
// per call over one match aggregate, loaded and written back inside a
// row-locked transaction so two racing requests cannot both succeed.
type MatchService struct {
	DB         *gorm.DB
	Logger     *zap.Logger
	Events     EventPublisher
	Gateway    ServerGateway
	WebhookURL string // base URL the game server reports events back to
	APIKey     string // bearer token for those reports
}

func NewMatchService(db *gorm.DB, logger *zap.Logger, events EventPublisher, gateway ServerGateway, webhookURL, apiKey string) *MatchService {
	return &MatchService{
		DB:         db,
		Logger:     logger,
		Events:     events,
		Gateway:    gateway,
		WebhookURL: webhookURL,
		APIKey:     apiKey,
	}
}

// CreateMatchRequest carries the slash-command arguments for /match create.
type CreateMatchRequest struct {
	ConfigName string `json:"config_name"`
	AuthorID   string `json:"author_id"`
	GuildID    string `json:"guild_id"`
	ServerID   string `json:"server_id,omitempty"`
}

// loadMatch fetches the full aggregate. With forUpdate the match row is
// locked until the surrounding transaction commits, serializing writers.
func loadMatch(tx *gorm.DB, matchID string, forUpdate bool) (*models.Match, error) {
	q := tx.
		Preload("Config.MapPool.Maps").
		Preload("Team1.Players.DiscordUser").
		Preload("Team1.Players.SteamUser").
		Preload("Team1.Leader.DiscordUser").
		Preload("Team1.Leader.SteamUser").
		Preload("Team2.Players.DiscordUser").
		Preload("Team2.Players.SteamUser").
		Preload("Team2.Leader.DiscordUser").
		Preload("Team2.Leader.SteamUser").
		Preload("MapBans.Map").
		Preload("MapBans.Team").
		Preload("MapPicks.Map").
		Preload("MapPicks.Team").
		Preload("LastMapBan.Map").
		Preload("LastMapPick.Map").
		Preload("Author").
		Preload("Server").
		Preload("Guild")
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var match models.Match
	if err := q.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Match %s does not exist", matchID)
		}
		return nil, err
	}
	return &match, nil
}

// findPlayer resolves a Discord user id to the connected player.
func findPlayer(tx *gorm.DB, userID string) (*models.Player, error) {
	var discordUser models.DiscordUser
	if err := tx.First(&discordUser, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("DiscordUser @<%s> does not exist", userID)
		}
		return nil, err
	}
	var player models.Player
	err := tx.Preload("DiscordUser").Preload("SteamUser").
		First(&player, "discord_user_id = ?", discordUser.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Discord user %s has no connected player", discordUser.Username)
		}
		return nil, err
	}
	return &player, nil
}

// saveRoster writes a team's scalar fields and replaces its player set.
func saveRoster(tx *gorm.DB, team *models.Team) error {
	if err := tx.Omit("Players", "Leader").Save(team).Error; err != nil {
		return err
	}
	return tx.Model(team).Association("Players").Replace(team.Players)
}

// saveMatchState writes the match's own row, without touching associations.
func saveMatchState(tx *gorm.DB, match *models.Match) error {
	return tx.Omit(clause.Associations).Save(match).Error
}

// ServerIsAvailable reports whether no running match currently holds the
// server. excludeMatchID skips a match (e.g. the one being recreated).
func (s *MatchService) ServerIsAvailable(tx *gorm.DB, server *models.Server, excludeMatchID string) (bool, error) {
	var count int64
	q := tx.Model(&models.Match{}).
		Where("server_id = ?", server.ID).
		Where("status IN ?", []models.MatchStatus{models.MatchStatusLive, models.MatchStatusStarted})
	if excludeMatchID != "" {
		q = q.Where("id <> ?", excludeMatchID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// CreateMatch builds a fresh CREATED match: resolves the config, author,
// guild and optional server, creates the two default teams synchronously
// and auto-joins the author to team1.
func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest) (*models.Match, error) {
	var matchID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var config models.MatchConfig
		err := tx.Preload("MapPool.Maps").First(&config, "name = ?", req.ConfigName).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("MatchConfig with name %s does not exist", req.ConfigName)
			}
			return err
		}
		if config.PoolSize() == 0 {
			return ValidationError("MatchConfig %s has no map pool attached", config.Name)
		}

		authorPlayer, err := findPlayer(tx, req.AuthorID)
		if err != nil {
			return err
		}

		var guild models.Guild
		if err := tx.First(&guild, "guild_id = ?", req.GuildID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("Guild %s does not exist", req.GuildID)
			}
			return err
		}

		var server *models.Server
		if req.ServerID != "" {
			server = &models.Server{}
			if err := tx.First(server, "id = ?", req.ServerID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return NotFoundError("Server %s does not exist", req.ServerID)
				}
				return err
			}
			if !s.Gateway.IsOnline(server) {
				return UpstreamError("Server is not online. Cannot create match")
			}
			available, err := s.ServerIsAvailable(tx, server, "")
			if err != nil {
				return err
			}
			if !available {
				return ConflictError("Server is not available for a match. Another match is already running")
			}
		}

		team1 := &models.Team{
			ID:      models.NewID("team"),
			Name:    "Team 1",
			Players: []models.Player{*authorPlayer},
		}
		team2 := &models.Team{
			ID:   models.NewID("team"),
			Name: "Team 2",
		}
		if err := tx.Omit("Players.*").Create(team1).Error; err != nil {
			return err
		}
		if err := tx.Create(team2).Error; err != nil {
			return err
		}

		match := &models.Match{
			ID:       models.NewID("match"),
			Status:   models.MatchStatusCreated,
			ConfigID: config.ID,
			Team1ID:  team1.ID,
			Team2ID:  team2.ID,
			AuthorID: authorPlayer.DiscordUserID,
			GuildID:  &guild.ID,
			Maplist:  []string{},
		}
		if server != nil {
			match.ServerID = &server.ID
		}
		webhookURL := fmt.Sprintf("%s/api/matches/%s/webhook", s.WebhookURL, match.ID)
		match.Cvars = match.WebhookCvars(webhookURL, s.APIKey)

		if err := tx.Omit(clause.Associations).Create(match).Error; err != nil {
			return err
		}
		matchID = match.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	match, err := loadMatch(s.DB.WithContext(ctx), matchID, false)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("match created",
		zap.String("match_id", match.ID),
		zap.String("config", match.Config.Name),
		zap.String("author", match.Author.Username),
	)
	return match, nil
}

// GetMatch returns the aggregate read-only.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	return loadMatch(s.DB.WithContext(ctx), matchID, false)
}

// SetMessageID stores the Discord message the bot renders the match in, so
// later events can update the same embed.
func (s *MatchService) SetMessageID(ctx context.Context, matchID, messageID string) (*models.Match, error) {
	if messageID == "" {
		return nil, ValidationError("message_id is required")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		match.MessageID = messageID
		return saveMatchState(tx, match)
	})
	if err != nil {
		return nil, err
	}
	return loadMatch(s.DB.WithContext(ctx), matchID, false)
}

// ListMatches returns all matches, newest first.
func (s *MatchService) ListMatches(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	err := s.DB.WithContext(ctx).
		Preload("Config").
		Preload("Team1").
		Preload("Team2").
		Preload("Author").
		Order("created_at DESC").
		Find(&matches).Error
	return matches, err
}

// Join adds a player to the match. Hitting max players auto-starts it.
func (s *MatchService) Join(ctx context.Context, matchID, userID, teamSlot string) (*models.Match, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		player, err := findPlayer(tx, userID)
		if err != nil {
			return err
		}
		if err := validateJoin(match, userID, teamSlot); err != nil {
			return err
		}

		match.AddPlayer(player, teamSlot)
		if match.RosterFull() {
			match.Start()
		}

		if err := saveRoster(tx, match.Team1); err != nil {
			return err
		}
		if err := saveRoster(tx, match.Team2); err != nil {
			return err
		}
		return saveMatchState(tx, match)
	})
	if err != nil {
		return nil, err
	}

	match, err := loadMatch(s.DB.WithContext(ctx), matchID, false)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("player joined match",
		zap.String("match_id", matchID),
		zap.String("user_id", userID),
		zap.String("status", string(match.Status)),
		zap.Int("players", match.PlayerCount()),
	)
	return match, nil
}

// Leave removes a player from a CREATED match. The author cannot leave.
func (s *MatchService) Leave(ctx context.Context, matchID, userID string) (*models.Match, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		if err := validateLeave(match, userID); err != nil {
			return err
		}
		player := match.PlayerByDiscordUser(userID)
		match.RemovePlayer(player.ID)

		if err := saveRoster(tx, match.Team1); err != nil {
			return err
		}
		return saveRoster(tx, match.Team2)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("player left match",
		zap.String("match_id", matchID),
		zap.String("user_id", userID),
	)
	return loadMatch(s.DB.WithContext(ctx), matchID, false)
}

// StartMatch moves a full CREATED match into captain selection, or straight
// into the veto when the config shuffles teams.
func (s *MatchService) StartMatch(ctx context.Context, matchID string) (*models.Match, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusCreated {
			return InvalidStateError("Match is not in CREATED status")
		}
		if !match.RosterFull() {
			return ConflictError("Match is not full yet")
		}
		match.Start()

		if err := saveRoster(tx, match.Team1); err != nil {
			return err
		}
		if err := saveRoster(tx, match.Team2); err != nil {
			return err
		}
		return saveMatchState(tx, match)
	})
	if err != nil {
		return nil, err
	}
	match, err := loadMatch(s.DB.WithContext(ctx), matchID, false)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("match started",
		zap.String("match_id", matchID),
		zap.String("status", string(match.Status)),
	)
	return match, nil
}

// SelectCaptain sets a team's captain; with both captains set the veto begins.
func (s *MatchService) SelectCaptain(ctx context.Context, matchID, userID, teamSlot string) (*models.Match, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		if err := validateSelectCaptain(match, userID, teamSlot); err != nil {
			return err
		}
		player := match.PlayerByDiscordUser(userID)
		match.SetTeamCaptain(player, teamSlot)

		if err := saveRoster(tx, match.Team1); err != nil {
			return err
		}
		if err := saveRoster(tx, match.Team2); err != nil {
			return err
		}
		return saveMatchState(tx, match)
	})
	if err != nil {
		return nil, err
	}
	return loadMatch(s.DB.WithContext(ctx), matchID, false)
}

// Shuffle repartitions the rosters. Author-only, and only before the veto
// has recorded any action; a shuffle after that would orphan bans and picks
// made by the previous captains.
func (s *MatchService) Shuffle(ctx context.Context, matchID, requesterID string) (*models.Match, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		if err := validateShuffle(match, requesterID); err != nil {
			return err
		}
		match.ShufflePlayers()
		match.RenameTeams()
		// the shuffle just assigned both captains, so captain selection
		// has nothing left to do
		if match.Status == models.MatchStatusCaptainsSelect {
			match.Status = models.MatchStatusMapVeto
		}

		if err := saveRoster(tx, match.Team1); err != nil {
			return err
		}
		if err := saveRoster(tx, match.Team2); err != nil {
			return err
		}
		return saveMatchState(tx, match)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("teams shuffled",
		zap.String("match_id", matchID),
	)
	return loadMatch(s.DB.WithContext(ctx), matchID, false)
}

// Cancel aborts a non-terminal match. Author-only.
func (s *MatchService) Cancel(ctx context.Context, matchID, requesterID string) (*models.Match, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		if match.Author.UserID != requesterID {
			return PermissionError("Only the author of the match can cancel the match")
		}
		if match.Status.IsTerminal() {
			return InvalidStateError("Match is already %s", match.Status)
		}
		match.Status = models.MatchStatusCancelled
		return saveMatchState(tx, match)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("match cancelled",
		zap.String("match_id", matchID),
		zap.String("requested_by", requesterID),
	)
	return loadMatch(s.DB.WithContext(ctx), matchID, false)
}

// Recreate clones a match's teams and config into a fresh CREATED match.
// Author-only. Used after a botched load or a server swap.
func (s *MatchService) Recreate(ctx context.Context, matchID, requesterID string) (*models.Match, error) {
	var newID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		if match.Author.UserID != requesterID {
			return PermissionError("Only the author of the match can recreate the match")
		}

		team1 := cloneTeam(match.Team1)
		team2 := cloneTeam(match.Team2)
		if err := tx.Omit("Players.*").Create(team1).Error; err != nil {
			return err
		}
		if err := tx.Omit("Players.*").Create(team2).Error; err != nil {
			return err
		}

		clone := &models.Match{
			ID:       models.NewID("match"),
			Status:   models.MatchStatusCreated,
			ConfigID: match.ConfigID,
			Team1ID:  team1.ID,
			Team2ID:  team2.ID,
			AuthorID: match.AuthorID,
			GuildID:  match.GuildID,
			ServerID: match.ServerID,
			Maplist:  []string{},
		}
		webhookURL := fmt.Sprintf("%s/api/matches/%s/webhook", s.WebhookURL, clone.ID)
		clone.Cvars = clone.WebhookCvars(webhookURL, s.APIKey)

		if err := tx.Omit(clause.Associations).Create(clone).Error; err != nil {
			return err
		}
		newID = clone.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("match recreated",
		zap.String("source_match_id", matchID),
		zap.String("match_id", newID),
	)
	return loadMatch(s.DB.WithContext(ctx), newID, false)
}

// cloneTeam copies a roster without its captain: a recreated match starts
// over at captain selection.
func cloneTeam(src *models.Team) *models.Team {
	return &models.Team{
		ID:      models.NewID("team"),
		Name:    src.Name,
		Players: append([]models.Player{}, src.Players...),
	}
}

// LoadMatchResult carries everything the bot posts after a load: the match
// plus the connect command and steam link players use to get on the server.
type LoadMatchResult struct {
	Match          *models.Match `json:"match"`
	ConnectCommand string        `json:"connect_command"`
	JoinLink       string        `json:"join_link"`
}

// LoadMatch pushes the finished veto's config onto the assigned game server:
// ends any leftover match on it, then points the plugin at our config URL.
func (s *MatchService) LoadMatch(ctx context.Context, matchID string) (*LoadMatchResult, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		match, err := loadMatch(tx, matchID, true)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusReadyToLoad {
			return InvalidStateError("Match is not in READY_TO_LOAD status")
		}
		if match.Server == nil {
			return ValidationError("Match has no server assigned. Cannot load match")
		}

		if _, err := s.Gateway.SendCommand(match.Server, models.EndMatchCommandName); err != nil {
			return err
		}
		configURL := fmt.Sprintf("%s/api/matches/%s/config", s.WebhookURL, match.ID)
		_, err = s.Gateway.SendCommand(match.Server, models.LoadMatchCommandName,
			configURL, models.APIKeyHeader, "Bearer "+s.APIKey)
		if err != nil {
			return err
		}

		match.Status = models.MatchStatusLoaded
		return saveMatchState(tx, match)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("match loaded onto server",
		zap.String("match_id", matchID),
	)
	match, err := loadMatch(s.DB.WithContext(ctx), matchID, false)
	if err != nil {
		return nil, err
	}
	return &LoadMatchResult{
		Match:          match,
		ConnectCommand: match.ConnectCommand(),
		JoinLink:       match.Server.JoinLink(),
	}, nil
}
