package handler

type ContextKey string

var (
	UserInfoCtx        ContextKey = "userInfo"
	MeetingCtx         ContextKey = "meeting"
	OptimizationRunCtx ContextKey = "optimizationRun"
)
