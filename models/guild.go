package models

// Guild is a Discord guild the bot operates in. Maps, map pools, configs
// and servers can be scoped to a guild; events are published per guild.
type Guild struct {
	ID      string `json:"id" gorm:"primaryKey"`
	GuildID string `json:"guild_id" gorm:"uniqueIndex;not null"`
	Name    string `json:"name"`

	Timestamps
}
