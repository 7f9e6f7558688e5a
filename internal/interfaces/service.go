package interfaces

// Service is implemented by every interface exposing the daemon's
// functionalities.
type Service interface {
	Start() error
	Stop()
}
