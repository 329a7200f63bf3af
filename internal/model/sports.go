package model

// SportsUpdate is one game summary in the sports tab. It is sourced from
// the sports endpoints, never from the poll store.
type SportsUpdate struct {
	ID     string `json:"id"`
	Home   string `json:"home"`
	Away   string `json:"away"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// GameData is the minimal payload used to pre-fill a poll from a game.
type GameData struct {
	Away     string `json:"away"`
	Home     string `json:"home"`
	Category string `json:"category"`
}

type TeamInfo struct {
	Name       string `json:"name"`
	City       string `json:"city"`
	Conference string `json:"conference"`
}

type PlayerLine struct {
	Player   string `json:"player"`
	Points   int    `json:"points"`
	Rebounds int    `json:"rebounds"`
	Assists  int    `json:"assists"`
}

type GameStats struct {
	AwayPlayers []PlayerLine `json:"away_players"`
	HomePlayers []PlayerLine `json:"home_players"`
}

type GameDetails struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	Status       string    `json:"status"`
	HomeTeam     TeamInfo  `json:"home_team"`
	VisitorTeam  TeamInfo  `json:"visitor_team"`
	HomeScore    *int      `json:"home_score"`
	VisitorScore *int      `json:"visitor_score"`
	Season       string    `json:"season"`
	Postseason   bool      `json:"postseason"`
	Stats        GameStats `json:"stats"`
}
