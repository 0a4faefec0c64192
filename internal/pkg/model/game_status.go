package model

type GameStatus string

const (
	GameOpen      GameStatus = "OPEN"
	GameAccepted  GameStatus = "ACCEPTED"
	GameResolved  GameStatus = "RESOLVED"
	GameCancelled GameStatus = "CANCELLED"
)

// Terminal reports whether no further transition can leave the status.
func (s GameStatus) Terminal() bool {
	return s == GameResolved || s == GameCancelled
}

// Active reports whether the game still holds escrow.
func (s GameStatus) Active() bool {
	return s == GameOpen || s == GameAccepted
}

type GameKind string

const (
	KindDeathroll GameKind = "deathroll"
)
