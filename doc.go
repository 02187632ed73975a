// Package kitsune implements a minimal user-account service: registration,
// email/password authentication exchanged for signed bearer tokens, and
// paginated user listings over a relational store.
//
// The package holds the domain pieces (user model, password hashing, token
// issuance and validation, the user service rules). Store access lives in
// the repository package, the HTTP surface in the server package, and the
// binary in cmd/server.
package kitsune
