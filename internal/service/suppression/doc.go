// Package suppression implements the advertiser suppression list service.
//
// This is the single source of truth for which advertisers have suppressed
// a given user identifier. Lists flow in from list management calls and bulk
// imports and are consulted on every ad decision.
//
// The service layer contains pure business logic (identifier validation,
// normalization, hashing, dedup) and depends on the Store interface defined
// in repository.go. It never imports net/http or database/sql directly.
package suppression
