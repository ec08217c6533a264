package lease

import "errors"

// Ошибки реестра leases.
var (
	// ErrLeaseNotFound — запись lease отсутствует в store.
	ErrLeaseNotFound = errors.New("worker lease not found")
)
