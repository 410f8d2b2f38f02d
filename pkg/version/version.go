package version

import "fmt"

// Populated at build time via -ldflags.
var (
	version   = "unreleased"
	gitCommit = "unknown"
)

type Info struct {
	Version   string
	GitCommit string
}

func Get() Info {
	return Info{
		Version:   version,
		GitCommit: gitCommit,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s)", i.Version, i.GitCommit)
}
