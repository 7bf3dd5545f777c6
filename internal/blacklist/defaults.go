package blacklist

import (
	"path/filepath"
	"sort"
)

// platformTable holds the fixed per-OS protection data. Paths are slash-separated
// and converted with filepath.FromSlash; "~/" entries are relative to the home directory.
type platformTable struct {
	protected    []string
	systemNames  []string
	programRoots []string
	execExts     []string
}

var windowsExecExts = []string{".exe", ".dll", ".msi", ".sys", ".bat", ".cmd"}

var platforms = map[string]platformTable{
	"windows": {
		protected: []string{
			"C:/Windows", "C:/Program Files", "C:/Program Files (x86)", "C:/ProgramData",
			"C:/$Recycle.Bin", "C:/System Volume Information", "C:/Recovery", "C:/PerfLogs",
			"~/AppData",
		},
		systemNames: []string{
			"Windows", "Program Files", "Program Files (x86)", "ProgramData",
			"$Recycle.Bin", "System Volume Information", "Recovery", "PerfLogs",
		},
		programRoots: []string{"C:/Program Files", "C:/Program Files (x86)", "C:/ProgramData"},
		execExts:     windowsExecExts,
	},
	"darwin": {
		protected:    []string{"/System", "/Applications", "~/Library", "~/.Trash"},
		systemNames:  []string{"System", "Library", "Applications", "private", "Volumes", "cores"},
		programRoots: []string{"/Applications", "/System/Applications"},
		execExts:     append([]string{".dylib", ".so"}, windowsExecExts...),
	},
	"": {
		protected: []string{
			"/proc", "/sys", "/dev", "/run", "/var",
			"~/.cache", "~/.local", "~/.config",
		},
		systemNames:  []string{"proc", "sys", "dev", "run", "boot", "lost+found", "snap", "usr", "bin", "sbin", "lib", "lib64", "etc", "var"},
		programRoots: []string{"/usr", "/bin", "/sbin", "/opt", "/snap"},
		execExts:     append([]string{".so"}, windowsExecExts...),
	},
}

// tableFor returns the table for goos; unknown systems use the unix table.
func tableFor(goos string) platformTable {
	if t, ok := platforms[goos]; ok {
		return t
	}
	return platforms[""]
}

func expand(p, home string) string {
	if len(p) > 2 && p[:2] == "~/" {
		if home == "" {
			return ""
		}
		return filepath.Join(home, filepath.FromSlash(p[2:]))
	}
	return filepath.FromSlash(p)
}

// DefaultBlacklist returns the protected roots for goos, sorted.
// It reads nothing; home may be empty, in which case home-relative entries are dropped.
func DefaultBlacklist(goos, home string) []string {
	set := make(map[string]struct{})
	for _, p := range tableFor(goos).protected {
		if e := expand(p, home); e != "" {
			set[e] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
