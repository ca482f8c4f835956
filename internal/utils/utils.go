package utils

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// ResolvePath converts a path that might contain ~ to an absolute path
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}

	// Handle ~ at the start of the path
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	// Convert to absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return absPath, nil
}

// IsValidURLWithPort checks if the url is a valid url with a port
func IsValidURLWithPort(urlIn string) bool {
	// Add default scheme if none is present
	if !strings.Contains(urlIn, "://") {
		urlIn = "http://" + urlIn
	}

	parsedURL, err := url.Parse(urlIn)
	if err != nil {
		return false
	}

	if parsedURL.Host == "" || parsedURL.Port() == "" {
		return false
	}

	return true
}

// IsValidHostPort checks the string is a valid host:port pair (no scheme required)
func IsValidHostPort(hostPort string) bool {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return false
	}
	return host != "" && port != ""
}

// FileExists checks if the file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureBins ensures that the bins are installed and on PATH
func EnsureBins(bins ...string) (err error) {
	for _, bin := range bins {
		_, err = exec.LookPath(bin)
		if err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

// SortStringMap returns a copy of m built by inserting its keys in sorted
// order. Go maps keep no order, so ranging over the result is not sorted.
func SortStringMap(m map[string]string) map[string]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	ret := map[string]string{}
	for _, k := range keys {
		ret[k] = m[k]
	}
	return ret
}
