// Package auth issues and rotates JWT token pairs for local and federated
// (Google, Facebook) logins and exposes them over a small fiber API.
//
// Token lifecycle:
//   - TokenService keeps a single live refresh token per user. IssueForUser
//     replaces it, Rotate exchanges it for a fresh pair and Revoke clears it.
//     Replaced tokens are added to a Blacklist until they would have expired.
//   - Concurrent Rotate calls for the same user race: the last write wins and
//     the other caller holds a pair whose refresh token is no longer current.
//
// Federated login:
//   - Gateway runs the provider pipeline from the social package and maps a
//     rejected callback to a CallbackRejection carrying the frontend login URL.
//     Users first seen through a provider get an unusable password hash.
//
// Activity sinks:
//   - ActivitySink receives login, refresh and logout events. Sink errors are
//     logged and never fail the request.
package auth
