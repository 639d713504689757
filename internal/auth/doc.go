// Package auth issues and verifies the bearer tokens of the plantline API.
//
// Clients are machines (MES adapters, dashboards, CI jobs), so there is no
// user store: an operator mints a token with `plantline token` and hands it
// to the client. Tokens are HS256 JWTs carrying a subject and a Role; the
// Role maps statically to Permissions.
package auth
