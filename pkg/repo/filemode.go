package repo

import (
	"os"

	"github.com/rosavcs/rosa/pkg/object"
)

func modeFromFileInfo(info os.FileInfo) string {
	if info.Mode()&os.ModeSymlink != 0 {
		return object.TreeModeSymlink
	}
	if info.Mode()&0o111 != 0 {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

func normalizeFileMode(mode string) string {
	switch mode {
	case object.TreeModeExecutable, object.TreeModeSymlink, object.TreeModeDir:
		return mode
	}
	return object.TreeModeFile
}

func filePermFromMode(mode string) os.FileMode {
	if normalizeFileMode(mode) == object.TreeModeExecutable {
		return 0o755
	}
	return 0o644
}
