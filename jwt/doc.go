// Package jwt issues the service's own session tokens and verifies tokens
// minted by the identity provider against its published key set.
package jwt
