// Package discovery walks a download tree and turns its info.json sidecars
// into merge tasks.
//
// The root descriptor names the collection and therefore the output
// subfolder; every subdirectory below it that carries a descriptor yields
// exactly one task or exactly one DiscoveryError. A bad directory never stops
// its siblings from being discovered. Traversal is lexical, so repeated runs
// over an unchanged tree produce identical task lists.
package discovery
