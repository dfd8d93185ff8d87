package version

import "runtime/debug"

// AppName is the service name used in logs, traces, profiles and build_info.
const AppName = "linnemanlabs-pipeline"

// set via -ldflags at build time
var (
	Version    = "dev"
	Commit     = "none"
	CommitDate string
	BuildDate  string
	BuildId    string
	GoVersion  string
	VCSDirty   *bool
)

type Info struct {
	AppName    string `json:"app_name"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	CommitDate string `json:"commit_date"`
	BuildDate  string `json:"build_date"`
	BuildId    string `json:"build_id"`
	GoVersion  string `json:"go_version"`
	VCSDirty   *bool  `json:"vcs_dirty,omitempty"`
}

// Get merges ldflags values with whatever the go toolchain stamped into the binary.
func Get() *Info {
	out := &Info{
		AppName:    AppName,
		Version:    Version,
		Commit:     Commit,
		CommitDate: CommitDate,
		BuildDate:  BuildDate,
		BuildId:    BuildId,
		GoVersion:  GoVersion,
		VCSDirty:   VCSDirty,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	out.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "none" && s.Value != "" {
				out.Commit = s.Value
			}
		case "vcs.time":
			if out.BuildDate == "" && s.Value != "" {
				out.BuildDate = s.Value
			}
			out.CommitDate = s.Value
		case "vcs.modified":
			// ldflags win over the toolchain stamp
			if out.VCSDirty != nil {
				continue
			}
			switch s.Value {
			case "true":
				t := true
				out.VCSDirty = &t
			case "false":
				f := false
				out.VCSDirty = &f
			}
		}
	}
	return out
}

// Short renders a single line for -V and startup logs.
func (i *Info) Short() string {
	dirty := "unknown"
	if i.VCSDirty != nil {
		if *i.VCSDirty {
			dirty = "true"
		} else {
			dirty = "false"
		}
	}
	return i.AppName + " " + i.Version +
		" (commit=" + i.Commit +
		", build_id=" + i.BuildId +
		", build_date=" + i.BuildDate +
		", go=" + i.GoVersion +
		", dirty=" + dirty + ")"
}
