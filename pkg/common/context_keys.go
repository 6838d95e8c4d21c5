package common

type contextKey string

const WsSemaphoreContextKey contextKey = "ws_semaphore"
