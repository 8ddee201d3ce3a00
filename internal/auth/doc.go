// Package auth resolves the bearer token sent in the hello frame and
// provides HS256 JWT minting for gateways running with a shared dev
// secret. Token resolution order: flag, FOLD_TOKEN env var, config file,
// then the shared ~/.config/fold/token file.
package auth
