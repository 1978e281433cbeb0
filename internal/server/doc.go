// Package server implements the loopback OAuth2 authorization flow used when
// linking token-based provider credentials (Google Drive, Dropbox).
//
// The [OAuthHandler] validates the state parameter (CSRF protection),
// exchanges the authorization code for tokens, and delivers the result
// through a channel. It only processes one callback to prevent replay.
//
// [Authorize] ties it together: it binds a temporary HTTP server on the
// redirect address, opens the provider's consent page in the browser, waits
// for the callback, and shuts the server down.
package server
