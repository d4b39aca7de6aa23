package version

import "fmt"

// Set at build time with -ldflags "-X sysobserve/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	Built     = ""
)

type Info struct {
	Version   string
	GitCommit string
	Built     string
}

func Current() Info {
	return Info{Version: Version, GitCommit: GitCommit, Built: Built}
}

func (i Info) String() string {
	out := "sysobserve " + i.Version
	if i.GitCommit != "" {
		out += fmt.Sprintf(" (%s)", i.GitCommit)
	}
	if i.Built != "" {
		out += " built " + i.Built
	}
	return out
}
