// Package preflight provides readiness checks for the filesystem paths and
// external binaries pairmux depends on.
//
// These checks run in two contexts:
//   - The merge command calls RunAll before discovery so an unreadable source
//     tree or unwritable output base fails fast with a readable message.
//   - The CLI "pairmux status" command renders every Result and the binary
//     statuses from CheckSystemDeps.
package preflight
