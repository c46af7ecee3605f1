package handler

type ContextKey string

var (
	RoleCtxKey    ContextKey = "role"
	SubCtxKey     ContextKey = "sub"
	MyInfoCtx     ContextKey = "myInfo"
	BrokerInfoCtx ContextKey = "brokerInfo"
	LocationCtx   ContextKey = "location"
	AssignmentCtx ContextKey = "assignment"
)
