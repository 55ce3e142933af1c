package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths are the files and directories the app owns. Config and the
// database live under the XDG config home, logs under the state home, and
// downloaded models and GPU libraries under the data home.
type Paths struct {
	RootDir    string
	ConfigFile string
	DBFile     string
	LogFile    string
	ModelsDir  string
	GPUDir     string
}

// baseDirs are the per-user roots the app directories are created under.
type baseDirs struct {
	Config string
	State  string
	Data   string
}

func ResolvePaths() (Paths, error) {
	// The xdg package caches the environment on init.
	xdg.Reload()

	return resolvePathsUnder(baseDirs{
		Config: xdg.ConfigHome,
		State:  xdg.StateHome,
		Data:   xdg.DataHome,
	})
}

func resolvePathsUnder(base baseDirs) (Paths, error) {
	root := filepath.Join(base.Config, Name)
	logs := filepath.Join(base.State, Name)
	data := filepath.Join(base.Data, Name)
	models := filepath.Join(data, ModelsDirName)

	for _, dir := range []string{root, logs, models} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Paths{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return Paths{
		RootDir:    root,
		ConfigFile: filepath.Join(root, ConfigFilename),
		DBFile:     filepath.Join(root, DBFilename),
		LogFile:    filepath.Join(logs, LogFilename),
		ModelsDir:  models,
		GPUDir:     filepath.Join(data, GPUDirName),
	}, nil
}
