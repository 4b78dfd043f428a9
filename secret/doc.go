// Package secret resolves credentials referenced from configuration.
//
// A configuration value may hold environment references ($VAR or ${VAR},
// "$$" for a literal dollar) and secret references of the form
//
//	secretref:<provider>:<ref>
//
// either as the whole value or inline ("Bearer secretref:env:API_TOKEN").
// The env provider reads environment variables and the file provider reads
// mounted secret files, so store passwords never need to sit in a config
// file.
package secret
