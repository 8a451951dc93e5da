package models

// MatchConfig is an immutable template a match is created from. It is
// referenced by matches, never copied, and must not change while a live
// match points at it.
type MatchConfig struct {
	ID           string            `json:"id" gorm:"primaryKey"`
	Name         string            `json:"name" gorm:"uniqueIndex;not null"`
	GameMode     GameMode          `json:"game_mode" gorm:"type:varchar(32);default:'COMPETITIVE'"`
	Type         MatchType         `json:"type" gorm:"type:varchar(8);default:'BO1'"`
	MapPoolID    *string           `json:"map_pool_id,omitempty"`
	MapPool      *MapPool          `json:"map_pool,omitempty" gorm:"foreignKey:MapPoolID"`
	MapSides     []string          `json:"map_sides" gorm:"serializer:json"`
	ClinchSeries bool              `json:"clinch_series" gorm:"default:false"`
	MaxPlayers   uint              `json:"max_players" gorm:"default:10"`
	Cvars        map[string]string `json:"cvars,omitempty" gorm:"serializer:json"`
	GuildID      *string           `json:"guild_id,omitempty" gorm:"index"`
	ShuffleTeams bool              `json:"shuffle_teams" gorm:"default:false"`

	Timestamps
}

// PoolSize is the number of maps available to the veto.
func (c *MatchConfig) PoolSize() int {
	if c.MapPool == nil {
		return 0
	}
	return len(c.MapPool.Maps)
}

// NumMaps is how many maps end up on the final maplist.
func (c *MatchConfig) NumMaps() int {
	if c.Type == MatchTypeBO1 {
		return 1
	}
	return 3
}
