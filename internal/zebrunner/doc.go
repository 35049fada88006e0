// Package zebrunner is a typed REST client for the Zebrunner reporting and
// TCM APIs: launch tests, test sessions and their video artifacts,
// log/screenshot retrieval, project resolution and test-case lookup.
//
// The Adapter type bridges the client onto the collaborator interfaces the
// analysis pipeline consumes.
package zebrunner
