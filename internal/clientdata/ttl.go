package clientdata

import "time"

// TTL constants, added to now when storing.
const (
	TTLScenarioTicks = 7 * 24 * time.Hour // history rarely rewrites itself
	TTLScenarioTime  = time.Hour          // the scenario clock moves
)
