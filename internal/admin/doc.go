// Package admin holds the administrative operations on an installation:
// install seeding, the user snippet tier, pack import and export, usage
// statistics and team settings. Handler exposes the subset that other
// processes drive over the command channel.
package admin
