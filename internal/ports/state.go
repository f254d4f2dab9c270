package ports

// StatePort is the durable key/value record of completed steps and cached
// facts. Every mutation is persisted before it returns.
type StatePort interface {
	Get(key string) (any, bool)
	GetString(key string) (string, bool)
	Contains(key string) bool
	Set(key string, value any) error
	Delete(key string) error
	Keys() []string
}
