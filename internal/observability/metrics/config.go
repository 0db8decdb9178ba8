package metrics

// Config labels emitted metrics with service identity.
type Config struct {
	ServiceName string
	Environment string
}
