// Package uniuri generates random strings suitable for session identifiers,
// password tokens and generated initial passwords.
package uniuri
