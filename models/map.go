package models

// Map is immutable reference data identifying a playable map. Tag is the
// identifier the game server understands (e.g. "de_mirage").
type Map struct {
	ID      string  `json:"id" gorm:"primaryKey"`
	Name    string  `json:"name" gorm:"uniqueIndex;not null"`
	Tag     string  `json:"tag" gorm:"uniqueIndex;not null"`
	GuildID *string `json:"guild_id,omitempty" gorm:"index"`

	Timestamps
}

// MapPool is an ordered, named collection of maps a match config vetoes from.
type MapPool struct {
	ID      string  `json:"id" gorm:"primaryKey"`
	Name    string  `json:"name" gorm:"uniqueIndex;not null"`
	Maps    []Map   `json:"maps" gorm:"many2many:map_pool_maps"`
	GuildID *string `json:"guild_id,omitempty" gorm:"index"`

	Timestamps
}

// HasTag reports whether the pool contains a map with the given tag.
func (mp *MapPool) HasTag(tag string) bool {
	return mp.MapByTag(tag) != nil
}

// MapByTag returns the pool map with the given tag, or nil.
func (mp *MapPool) MapByTag(tag string) *Map {
	for i := range mp.Maps {
		if mp.Maps[i].Tag == tag {
			return &mp.Maps[i]
		}
	}
	return nil
}
