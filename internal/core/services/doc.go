// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The answer pipeline is:
//
//	QueryValidator -> admission (bots, challenge, per-IP limit)
//	  -> ResponseCache.Lookup -> global limit -> ChatClient -> ResponseCache.Store
//
// Services are pure Go with no CGO.
package services
