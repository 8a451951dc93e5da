package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Qwizi/cs2-battle-bot/models"
)

// ConfigService manages the reference data matches are built from: maps,
// map pools and match configs.
type ConfigService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewConfigService(db *gorm.DB, logger *zap.Logger) *ConfigService {
	return &ConfigService{DB: db, Logger: logger}
}

// CreateMapRequest registers a playable map.
type CreateMapRequest struct {
	Name    string `json:"name"`
	Tag     string `json:"tag"`
	GuildID string `json:"guild_id,omitempty"`
}

// CreateMapPoolRequest names an ordered set of existing map tags.
type CreateMapPoolRequest struct {
	Name    string   `json:"name"`
	MapTags []string `json:"map_tags"`
	GuildID string   `json:"guild_id,omitempty"`
}

// CreateConfigRequest is the admin shape for a new match template.
type CreateConfigRequest struct {
	Name         string            `json:"name"`
	GameMode     models.GameMode   `json:"game_mode"`
	Type         models.MatchType  `json:"type"`
	MapPoolName  string            `json:"map_pool_name"`
	MapSides     []string          `json:"map_sides"`
	ClinchSeries bool              `json:"clinch_series"`
	MaxPlayers   uint              `json:"max_players"`
	Cvars        map[string]string `json:"cvars,omitempty"`
	ShuffleTeams bool              `json:"shuffle_teams"`
	GuildID      string            `json:"guild_id,omitempty"`
}

func (s *ConfigService) ListMaps(ctx context.Context) ([]models.Map, error) {
	var maps []models.Map
	err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&maps).Error
	return maps, err
}

func (s *ConfigService) CreateMap(ctx context.Context, req CreateMapRequest) (*models.Map, error) {
	if req.Name == "" || req.Tag == "" {
		return nil, ValidationError("name and tag are required")
	}
	var existing models.Map
	err := s.DB.WithContext(ctx).First(&existing, "tag = ?", req.Tag).Error
	if err == nil {
		return nil, ConflictError("Map with tag %s already exists", req.Tag)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m := &models.Map{
		ID:   models.NewID("map"),
		Name: req.Name,
		Tag:  req.Tag,
	}
	if req.GuildID != "" {
		m.GuildID = &req.GuildID
	}
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("map created", zap.String("tag", m.Tag))
	return m, nil
}

func (s *ConfigService) ListMapPools(ctx context.Context) ([]models.MapPool, error) {
	var pools []models.MapPool
	err := s.DB.WithContext(ctx).Preload("Maps").Order("created_at ASC").Find(&pools).Error
	return pools, err
}

func (s *ConfigService) CreateMapPool(ctx context.Context, req CreateMapPoolRequest) (*models.MapPool, error) {
	if req.Name == "" {
		return nil, ValidationError("name is required")
	}
	if len(req.MapTags) == 0 {
		return nil, ValidationError("a map pool needs at least one map")
	}

	pool := &models.MapPool{
		ID:   models.NewID("map_pool"),
		Name: req.Name,
		Maps: make([]models.Map, 0, len(req.MapTags)),
	}
	for _, tag := range req.MapTags {
		if pool.HasTag(tag) {
			return nil, ValidationError("Map %s appears more than once in the pool", tag)
		}
		var m models.Map
		if err := s.DB.WithContext(ctx).First(&m, "tag = ?", tag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFoundError("Map %s does not exist", tag)
			}
			return nil, err
		}
		pool.Maps = append(pool.Maps, m)
	}
	if req.GuildID != "" {
		pool.GuildID = &req.GuildID
	}
	if err := s.DB.WithContext(ctx).Omit("Maps.*").Create(pool).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("map pool created",
		zap.String("name", pool.Name),
		zap.Int("maps", len(pool.Maps)),
	)
	return pool, nil
}

// validatePoolSize rejects pools the veto protocol cannot finish on. A BO1
// veto bans down to one map, so it needs two; a BO3 veto spends two bans and
// two picks before the closing bans, so anything under five maps stalls
// between the phases.
func validatePoolSize(matchType models.MatchType, poolSize int) error {
	switch matchType {
	case models.MatchTypeBO1:
		if poolSize < 2 {
			return ValidationError("A BO1 veto needs at least 2 maps in the pool")
		}
	case models.MatchTypeBO3:
		if poolSize < 5 {
			return ValidationError("A BO3 veto needs at least 5 maps in the pool")
		}
	}
	return nil
}

func (s *ConfigService) ListConfigs(ctx context.Context) ([]models.MatchConfig, error) {
	var configs []models.MatchConfig
	err := s.DB.WithContext(ctx).Preload("MapPool.Maps").Order("created_at ASC").Find(&configs).Error
	return configs, err
}

func (s *ConfigService) GetConfigByName(ctx context.Context, name string) (*models.MatchConfig, error) {
	var config models.MatchConfig
	err := s.DB.WithContext(ctx).Preload("MapPool.Maps").First(&config, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("MatchConfig with name %s does not exist", name)
		}
		return nil, err
	}
	return &config, nil
}

func (s *ConfigService) CreateConfig(ctx context.Context, req CreateConfigRequest) (*models.MatchConfig, error) {
	if req.Name == "" {
		return nil, ValidationError("name is required")
	}
	switch req.Type {
	case models.MatchTypeBO1, models.MatchTypeBO3, models.MatchTypeBO5:
	default:
		return nil, ValidationError("type must be one of BO1, BO3, BO5")
	}
	switch req.GameMode {
	case models.GameModeCompetitive, models.GameModeWingman, models.GameModeAim:
	default:
		return nil, ValidationError("game_mode must be one of COMPETITIVE, WINGMAN, AIM")
	}

	var pool models.MapPool
	err := s.DB.WithContext(ctx).Preload("Maps").First(&pool, "name = ?", req.MapPoolName).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("MapPool with name %s does not exist", req.MapPoolName)
		}
		return nil, err
	}
	if err := validatePoolSize(req.Type, len(pool.Maps)); err != nil {
		return nil, err
	}

	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = 10
	}
	config := &models.MatchConfig{
		ID:           models.NewID("match_config"),
		Name:         req.Name,
		GameMode:     req.GameMode,
		Type:         req.Type,
		MapPoolID:    &pool.ID,
		MapSides:     req.MapSides,
		ClinchSeries: req.ClinchSeries,
		MaxPlayers:   maxPlayers,
		Cvars:        req.Cvars,
		ShuffleTeams: req.ShuffleTeams,
	}
	if req.GuildID != "" {
		config.GuildID = &req.GuildID
	}
	if err := s.DB.WithContext(ctx).Omit("MapPool").Create(config).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("match config created",
		zap.String("name", config.Name),
		zap.String("type", string(config.Type)),
	)
	return config, nil
}
