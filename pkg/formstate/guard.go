package formstate

// GuardKey identifies the (entity, mode) pair an initialization guard belongs to.
// An empty EntityID stands for "no entity" (create mode).
type GuardKey struct {
	EntityID string `json:"entity_id"`
	Mode     Mode   `json:"mode"`
}

// Guard records whether initial values were already applied for Key.
// It is a value: callers thread it through calls instead of mutating shared state.
type Guard struct {
	Key     GuardKey `json:"key"`
	Applied bool     `json:"applied"`
}

// ResolveGuard returns prev untouched when (entityID, mode) matches its key,
// otherwise a fresh, not-applied guard for the new key.
func ResolveGuard(entityID string, mode Mode, prev Guard) Guard {
	key := GuardKey{EntityID: entityID, Mode: mode}
	if prev.Key == key {
		return prev
	}
	return Guard{Key: key, Applied: false}
}

// MarkApplied must be called after a successful projection for g.Key.
func MarkApplied(g Guard) Guard {
	g.Applied = true
	return g
}

// NeedsProjection reports whether initial values still have to be applied.
func (g Guard) NeedsProjection() bool {
	return !g.Applied
}
