package debug

import (
	"runtime/debug"
	"strings"
)

/*
ReadBuildInfo returns Go version and VCS settings (revision, time, modified)
the binary was built with as space separated "key=value" pairs. Empty
string is returned when build info is not available.
*/
func ReadBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return formatBuildInfo(info)
}

func formatBuildInfo(info *debug.BuildInfo) string {
	data := []string{"go=" + info.GoVersion}
	for _, s := range info.Settings {
		if strings.HasPrefix(s.Key, "vcs.") {
			data = append(data, s.Key+"="+s.Value)
		}
	}
	return strings.Join(data, " ")
}
