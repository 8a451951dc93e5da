package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Qwizi/cs2-battle-bot/models"
)

// PlayerService is the player directory: Discord identities, their Steam
// identities and the players joining the two.
type PlayerService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewPlayerService(db *gorm.DB, logger *zap.Logger) *PlayerService {
	return &PlayerService{DB: db, Logger: logger}
}

// RegisterPlayerRequest links a Discord user to a Steam identity.
type RegisterPlayerRequest struct {
	DiscordUserID   string `json:"discord_user_id"`
	DiscordUsername string `json:"discord_username"`
	SteamID64       string `json:"steamid64,omitempty"`
	SteamUsername   string `json:"steam_username,omitempty"`
}

func (s *PlayerService) ListPlayers(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	err := s.DB.WithContext(ctx).
		Preload("DiscordUser").
		Preload("SteamUser").
		Order("created_at ASC").
		Find(&players).Error
	return players, err
}

// FindByDiscordID resolves an external Discord user id to the player.
func (s *PlayerService) FindByDiscordID(ctx context.Context, userID string) (*models.Player, error) {
	return findPlayer(s.DB.WithContext(ctx), userID)
}

// RegisterPlayer upserts the Discord identity and creates the player record
// if the user has none yet.
func (s *PlayerService) RegisterPlayer(ctx context.Context, req RegisterPlayerRequest) (*models.Player, error) {
	if req.DiscordUserID == "" {
		return nil, ValidationError("discord_user_id is required")
	}

	var player *models.Player
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var discordUser models.DiscordUser
		err := tx.First(&discordUser, "user_id = ?", req.DiscordUserID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			discordUser = models.DiscordUser{
				ID:       models.NewID("dc_user"),
				UserID:   req.DiscordUserID,
				Username: req.DiscordUsername,
			}
			if err := tx.Create(&discordUser).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		var existing models.Player
		err = tx.First(&existing, "discord_user_id = ?", discordUser.ID).Error
		if err == nil {
			return ConflictError("DiscordUser @<%s> already has a player", req.DiscordUserID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		player = &models.Player{
			ID:            models.NewID("player"),
			DiscordUserID: discordUser.ID,
			DiscordUser:   discordUser,
		}
		if req.SteamID64 != "" {
			steamUser := models.SteamUser{
				ID:        models.NewID("steam_user"),
				Username:  req.SteamUsername,
				SteamID64: req.SteamID64,
			}
			if err := tx.Create(&steamUser).Error; err != nil {
				return err
			}
			player.SteamUserID = &steamUser.ID
			player.SteamUser = &steamUser
		}
		return tx.Omit("DiscordUser", "SteamUser").Create(player).Error
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("player registered",
		zap.String("discord_user_id", req.DiscordUserID),
		zap.String("player_id", player.ID),
	)
	return player, nil
}
