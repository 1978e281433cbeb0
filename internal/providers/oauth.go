package providers

import (
	"golang.org/x/oauth2"
)

// OAuthProvider is implemented by providers whose credentials carry an OAuth
// token. The authorize flow uses the returned config to run the
// authorization-code dance and stores the resulting token JSON as the
// credential's token attribute, matching rclone's own storage format.
type OAuthProvider interface {
	Provider
	OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config
}
