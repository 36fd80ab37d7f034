package errcode

// Error code convention:
// - 0: no error
// - 4xxx: business outcomes the client can act on (rejected documents, degraded delivery)
// - 5xxx: system errors that abort the pipeline
const (
	OK               = 0
	InvalidDocuments = 4001
	EmailFailed      = 4002
	SystemError      = 5000
)
