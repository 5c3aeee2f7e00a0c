package entity

// User is a stable identity supplied by the auth layer. It outlives any
// single connection.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
