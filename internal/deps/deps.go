package deps

import "strings"

// Requirement names an external binary and how to find it.
type Requirement struct {
	Name        string
	Description string
	Optional    bool
	Resolver    Resolver
}

// Status reports the availability of a dependency. Command holds the
// resolved path when Available, otherwise the configured name.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves every requirement with the same lookup the merge
// run uses, so a ready status means the run will find the binary.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := req.Resolver.status()
		status.Name = req.Name
		status.Description = strings.TrimSpace(req.Description)
		status.Optional = req.Optional
		results = append(results, status)
	}
	return results
}

// Ready reports whether every required dependency is available.
func Ready(statuses []Status) bool {
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			return false
		}
	}
	return true
}
