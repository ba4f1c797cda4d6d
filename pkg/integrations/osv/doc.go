// Package osv provides a client for the OSV vulnerability database
// (https://osv.dev).
//
// Two endpoints are used. [Client.QueryBatch] answers, for many package
// versions at once, which have known vulnerabilities, returning only ids.
// [Client.Query] returns full records, including severity data, for a
// single package version.
package osv
