// Package ui renders user-facing console output: coloured status lines,
// the Hopsworks banner and resource tables.
//
// A Printer mirrors every line it prints to the text log so the log file
// reads like a transcript of the session.
package ui
