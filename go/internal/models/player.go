package models

// Player is a seated participant of a room. Handle is the id of the live
// connection that joined; it is not stable across reconnects.
type Player struct {
	Handle   string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// LeaderboardEntry is one row of a round or game leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}
