package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"scribe/internal/config"
)

// CheckAPIKey verifies that provider has a credential after env fallback.
func CheckAPIKey(cfg *config.Config, provider string) Result {
	name := fmt.Sprintf("API key (%s)", provider)
	if !isKnownProvider(provider) {
		return Result{Name: name, Detail: fmt.Sprintf("unknown provider (expected one of %s)", strings.Join(config.KnownProviders, ", "))}
	}
	if strings.TrimSpace(cfg.APIKey(provider)) == "" {
		return Result{Name: name, Detail: fmt.Sprintf("missing (set [%s] api_key or %s)", provider, config.APIKeyEnv(provider))}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

func isHTTPScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	return scheme == "http" || scheme == "https"
}

// CheckAudioSource verifies that a local source is a readable regular file.
// Remote URLs only get a syntax check.
func CheckAudioSource(source string) Result {
	const name = "Audio source"
	source = strings.TrimSpace(source)
	if parsed, err := url.Parse(source); err == nil && isHTTPScheme(parsed.Scheme) {
		if parsed.Host == "" {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: url has no host)", source)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (remote, fetched by provider)", source)}
	}

	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", source)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", source, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", source)}
	}
	if err := unix.Access(source, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", source, err)}
	}
	if info.Size() == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: file is empty)", source)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", source, humanize.Bytes(uint64(info.Size())))}
}

// CheckStorePath verifies that the file at path can be created or updated.
// Missing parent directories pass when the nearest existing ancestor is
// writable, since stores create their directories on first use.
func CheckStorePath(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "no path configured"}
	}
	dir := filepath.Dir(path)
	ancestor := dir
	for {
		info, err := os.Stat(ancestor)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, ancestor)}
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent directory)", path)}
		}
		ancestor = parent
	}
	if ancestor != dir {
		if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create %s: %v)", path, dir, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
	return CheckDirectoryAccess(name, dir)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func isKnownProvider(provider string) bool {
	for _, known := range config.KnownProviders {
		if provider == known {
			return true
		}
	}
	return false
}
