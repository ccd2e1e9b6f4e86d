package backup

import (
	"errors"

	"github.com/Dicklesworthstone/siliconvault/internal/bundle"
)

var (
	// ErrInvalidBundle is returned when an archive has no readable meta.json.
	ErrInvalidBundle = bundle.ErrInvalidBundle

	// ErrSessionExpired is returned by Import for an unknown, consumed or
	// vanished scan session.
	ErrSessionExpired = errors.New("scan session expired")

	// ErrAssetIO marks a per-asset copy or read failure. It never aborts an
	// operation; affected assets are dropped and counted.
	ErrAssetIO = errors.New("asset I/O failure")

	// ErrStoreTransaction wraps a failed import transaction. Nothing from
	// the import was committed.
	ErrStoreTransaction = errors.New("store transaction failed")
)
