// Package authist signs users in through pluggable providers and issues
// JWT credentials (access and refresh tokens) for them.
//
// Providers:
//   - The email/password and username/password providers look identities up
//     through a caller supplied GetIdentity hook, compare bcrypt hashes, and
//     can auto register unknown users via SaveNonExistingIdentity.
//   - OAuth providers take a provider access token, fetch a Profile through a
//     ProfileFetcher (see the social package), and run the same identity
//     pipeline. Fetchers never see storage.
//
// Tokens:
//   - TokenCodec signs and verifies tokens with a pinned algorithm. Every
//     token carries a kind tag, so an access token is rejected where a refresh
//     or reset token is expected and the other way around.
//   - CredentialService mints credential pairs and rotates them on refresh.
//     When a RevocationStore is configured, a refresh token is single use.
//
// Failures:
//   - Every expected failure is an *Error carrying a Code. Match with
//     errors.Is against the exported Err values or read the code with CodeOf.
//   - OnAuthenticationFailure is called once per failed operation, by the
//     component that detected it.
//
// Activity sinks:
//   - ActivitySink receives login, refresh, and password reset events. Sinks
//     run best-effort (errors are logged) so you can forward to a database or
//     metrics backend without blocking authentication.
package authist
