// Package compileinfo reports which build of a geoquery tool is running, using
// the VCS stamp the Go toolchain embeds in binaries.
package compileinfo

import (
	"fmt"
	"log"
	"runtime/debug"
)

type CompileInfo struct {
	Tool       string
	Module     string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " (modified after that commit)"
	}

	commit := c.Commit
	if commit == "" {
		commit = "unknown"
	}

	return fmt.Sprintf("%s %s built with %s from %s commit %s %s%s", c.Tool, c.Version, c.GoVersion, c.Module, commit, c.CommitTime, mod)
}

// Get collects the build information for tool.
func Get(tool string) CompileInfo {
	out := CompileInfo{Tool: tool, Version: "(devel)"}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Module = z.Main.Path
	if z.Main.Version != "" {
		out.Version = z.Main.Version
	}

	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

// Log writes the build information for tool to the standard logger.
func Log(tool string) {
	log.Println(Get(tool))
}
