package core

// Logger interface for renderer and inspector logging
type Logger interface {
	Printf(format string, args ...interface{})
}
