package entity

// Player is a room roster entry. The entry is keyed by the stable user ID
// and survives reconnects: rejoining only swaps the connection ID.
type Player struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar"`
	ConnectionID string `json:"connectionId"`
	Ready        bool   `json:"ready"`
}
