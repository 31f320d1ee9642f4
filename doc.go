// Package main provides the entry point for the Base Projeto admin panel.
// It initializes and runs a web server using the Fiber framework that lets
// administrators manage users, access levels and granular permissions through
// a server-rendered interface. The application uses gorm for data
// persistence, Redis for session-cached authorization checks and email
// notifications for account and password flows.
package main
