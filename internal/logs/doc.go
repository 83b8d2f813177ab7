// Package logs reads the pairmux log file for the logs command.
//
// Last returns the trailing lines with bounded memory, Follow polls for lines
// appended after an offset, and MatchRun narrows output to a single run in
// either the console or JSON log format.
package logs
