// Package accounts provides account authentication and session lifecycle
// primitives: credential hashing, access/refresh bearer tokens, single-use
// opaque tokens for email verification and password reset, and the command
// handlers that orchestrate the five account flows (register, login,
// refresh, verify email, forgot/reset password).
//
// Account lifecycle:
//   - Accounts carry an AccountStatus field persisted via Bun. Statuses
//     cover active, suspended, and deleted; login is refused for anything
//     other than active regardless of credentials.
//   - AccountStateMachine centralizes the status transition graph and
//     timestamp handling for administrative moves (suspend, reinstate,
//     delete). The token flows consume their single-use tokens through
//     conditional updates so a token can never be replayed.
//
// Collaborators:
//   - Accounts is the repository contract; a Bun-backed implementation
//     ships with the package and works against SQLite and Postgres.
//   - Notifier delivers welcome, verification, and reset messages. Delivery
//     is best-effort: failures are logged and never abort a flow.
//   - ActivitySink is a light-weight audit emitter describing registration,
//     login, verification, and reset events. Sinks run best-effort so hosts
//     can forward to a database or queue without blocking authentication.
package accounts
