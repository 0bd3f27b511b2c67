package network

// Inbound message types.
const (
	MsgTypeHeartbeat    = 1
	MsgTypeRequestMatch = 101
	MsgTypeWatchGame    = 102
	MsgTypeMove         = 201
)

// Outbound message types.
const (
	MsgTypeWaiting          = 301
	MsgTypeRoleAssigned     = 302
	MsgTypeObserverAssigned = 303
	MsgTypeBoardState       = 304
	MsgTypeMoveApplied      = 305
)
