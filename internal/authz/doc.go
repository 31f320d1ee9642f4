// Package authz implements the role and permission model.
//
// A user holds at most one role; roles and permissions are many-to-many, and
// permissions can additionally be held by individual users through a pivot.
// Check results are mirrored into a per-user session cache (Redis in
// production) keyed by the typed Key builder. The cache is lazily built on
// the first check and explicitly refreshed after every grant, revoke or role
// change; the relational tables remain the single source of truth.
package authz
