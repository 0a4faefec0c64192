package game

type CreateGameRequest struct {
	Wager int64 `json:"wager" binding:"required,min=1,max=4611686018427387903"`
}
