// Package account implements the credential and account-lifecycle engine for
// a web application: registration, email activation, login, password reset,
// lockout, and profile search over a shared relational store.
//
// Credential tokens:
//   - Activation and password-reset secrets are generated with 256 bits of
//     entropy and persisted only as SHA-256 digests. A token is usable while
//     it is unconsumed and unexpired; consumption is a compare-and-set soft
//     delete so a secret can never be redeemed twice, even under concurrent
//     validation.
//
// Login decision procedure:
//   - Auther.Login looks up exactly one alive account, verifies the password
//     with bcrypt, gates on the active flag and the lockout state, and only
//     then resets the failure counter and issues a grant. Not-found and
//     wrong-password are deliberately indistinguishable to callers.
//
// Lockout:
//   - Failed attempts are tallied per account with a single atomic upsert.
//     Once the tally reaches the configured maximum the account is locked and
//     stays locked until an administrative unlock; a correct password does
//     not clear it.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter used by Auther and the
//     lifecycle handlers for login, activation, reset, and anomaly events.
//     Sink errors are logged, never propagated into the business flow.
package account
