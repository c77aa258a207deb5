// Package web includes the static pages of the monitoring server.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

//go:embed dist/*
var staticAssets embed.FS

// Environment variables that make the monitor serve the pages from disk,
// so that they can be edited without rebuilding.
const (
	// DevEnv serves the pages from the source tree when it is true.
	DevEnv = "MULTIEMU_MONITOR_DEV"

	// AssetsEnv names a directory to serve the pages from. It wins over
	// DevEnv.
	AssetsEnv = "MULTIEMU_MONITOR_ASSETS"
)

// GetAssets returns the static pages.
func GetAssets() http.FileSystem {
	if dir := os.Getenv(AssetsEnv); dir != "" {
		fmt.Fprintf(os.Stderr, "Serving monitor pages from %s\n", dir)
		return http.Dir(dir)
	}

	if isDevelopmentMode() {
		_, self, _, ok := runtime.Caller(0)
		if !ok {
			panic("web: cannot locate the source tree")
		}

		dir := filepath.Join(filepath.Dir(self), "dist")
		fmt.Fprintf(os.Stderr,
			"In monitor development mode, serving pages from %s\n", dir)

		return http.Dir(dir)
	}

	dist, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(dist)
}

func isDevelopmentMode() bool {
	dev, err := strconv.ParseBool(os.Getenv(DevEnv))
	return err == nil && dev
}
