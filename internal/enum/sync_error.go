package enum

type SyncErrorKind string

const (
	SyncErrorAuthentication SyncErrorKind = "authentication"
	SyncErrorConnection     SyncErrorKind = "connection"
	SyncErrorTimeout        SyncErrorKind = "timeout"
	SyncErrorPermission     SyncErrorKind = "permission"
	SyncErrorServer         SyncErrorKind = "server"
	SyncErrorUnknown        SyncErrorKind = "unknown"
)

func (k SyncErrorKind) String() string {
	return string(k)
}

type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthWarning HealthStatus = "warning"
	HealthError   HealthStatus = "error"
)

func (h HealthStatus) String() string {
	return string(h)
}

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

func (s SyncStatus) String() string {
	return string(s)
}
