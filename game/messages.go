package game

// Wire payloads. Every outbound message body is one of these marshalled as
// JSON; moves travel as rules.Move directly.

type WaitingPayload struct {
	Message string `json:"message"`
}

type RolePayload struct {
	Role   string `json:"role"`
	GameID string `json:"game_id"`
}

type ObserverPayload struct {
	GameID string `json:"game_id"`
}

type StatePayload struct {
	GameID   string `json:"game_id"`
	Position string `json:"position"`
	Turn     string `json:"turn"`
}

type WatchRequest struct {
	GameID string `json:"game_id,omitempty"`
}
