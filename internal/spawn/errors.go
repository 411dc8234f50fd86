package spawn

import "errors"

var (
	// ErrConcurrencyLimitReached is returned when the live population has
	// hit the adaptive ceiling or the burst cap.
	ErrConcurrencyLimitReached = errors.New("concurrency limit reached")

	// ErrPointUnavailable is returned when a spawn point cannot produce
	// right now, or when no valid point exists for a selection.
	ErrPointUnavailable = errors.New("spawn point unavailable")

	// ErrNoValidPlacement is returned when every placement try was rejected.
	ErrNoValidPlacement = errors.New("no valid placement")

	// ErrNotReady is returned by Point.Produce when its gates fail.
	ErrNotReady = errors.New("spawn point not ready")

	// ErrNoResources is returned by Activate when no spawn points are
	// registered; the dispatcher enters StateError.
	ErrNoResources = errors.New("no spawn points registered")

	// ErrNotActive is returned when the dispatcher is not accepting
	// production (inactive, paused or failed).
	ErrNotActive = errors.New("dispatcher not active")

	// ErrGlobalCooldown is returned when the global cooldown since the
	// last successful production has not elapsed.
	ErrGlobalCooldown = errors.New("global cooldown active")

	// ErrDuplicatePoint is returned by RegisterPoint for a known ID.
	ErrDuplicatePoint = errors.New("duplicate spawn point")
)
