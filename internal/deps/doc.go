// Package deps locates the external binaries pairmux shells out to.
//
// Resolver implements the one-time availability check for the multiplexer;
// CheckBinaries backs the status command's dependency report.
package deps
