// Package auth manages per-user Google OAuth credentials.
//
// It provides an in-memory credential store and the authorization-code flow
// around it: building authorization URLs (with the user ID carried in the
// OAuth state parameter), exchanging authorization codes for tokens, and
// refreshing access tokens that are close to expiry.
//
// Credentials are stored for the lifetime of the process. A refresh failure
// is terminal for a credential; the user has to go through the authorization
// flow again.
package auth
