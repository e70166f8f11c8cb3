package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	ini "github.com/lars-t-hansen/ini"
)

// ~/.gtop holds ini-style defaults so a workstation can pin its
// cluster once. Flags parsed afterwards override anything set here.
var (
	iniParser = ini.NewParser()

	connection      = iniParser.AddSection("connection")
	iniTarget       = connection.AddString("target")
	iniSSHConfig    = connection.AddString("ssh-config")
	iniIdentityFile = connection.AddString("identity-file")
	iniPort         = connection.AddString("port")

	display    = iniParser.AddSection("display")
	iniGPUOnly = display.AddString("gpu-only")
	iniJobs    = display.AddString("jobs")
	iniUsers   = display.AddString("users")
	iniCompact = display.AddString("compact")
	iniNoColor = display.AddString("no-color")

	poll              = iniParser.AddSection("poll")
	iniRefresh        = poll.AddString("refresh")
	iniCommandTimeout = poll.AddString("command-timeout")
	iniConnectTimeout = poll.AddString("connect-timeout")
)

func defaultConfigPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return path.Join(path.Clean(home), ".gtop")
}

// configPathFromArgs pre-scans for --config so the file can be read
// before the flag set is built from its values.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--config" || arg == "-config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-config="):
			return strings.TrimPrefix(arg, "-config=")
		}
	}
	return defaultConfigPath()
}

func loadFileDefaults(cfg *Config, filePath string) error {
	if filePath == "" {
		return nil
	}
	input, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config file %s: %w", filePath, err)
	}
	defer input.Close()

	if err := readFileDefaults(cfg, input); err != nil {
		return fmt.Errorf("config file %s: %w", filePath, err)
	}
	cfg.ConfigPath = filePath
	return nil
}

func readFileDefaults(cfg *Config, r io.Reader) error {
	store, err := iniParser.Parse(r)
	if err != nil {
		return err
	}

	applyString(store, iniTarget, &cfg.Target)
	applyString(store, iniSSHConfig, &cfg.SSHConfig)
	applyString(store, iniIdentityFile, &cfg.IdentityFile)
	applyString(store, iniUsers, &cfg.Users)

	if err := applyInt(store, iniPort, "connection.port", &cfg.Port); err != nil {
		return err
	}
	for _, b := range []struct {
		field *ini.Field
		name  string
		dst   *bool
	}{
		{iniGPUOnly, "display.gpu-only", &cfg.GPUOnly},
		{iniJobs, "display.jobs", &cfg.ShowJobs},
		{iniCompact, "display.compact", &cfg.Compact},
		{iniNoColor, "display.no-color", &cfg.NoColor},
	} {
		if err := applyBool(store, b.field, b.name, b.dst); err != nil {
			return err
		}
	}
	for _, d := range []struct {
		field *ini.Field
		name  string
		dst   *time.Duration
	}{
		{iniRefresh, "poll.refresh", &cfg.Refresh},
		{iniCommandTimeout, "poll.command-timeout", &cfg.CommandTimeout},
		{iniConnectTimeout, "poll.connect-timeout", &cfg.ConnectTimeout},
	} {
		if err := applyDuration(store, d.field, d.name, d.dst); err != nil {
			return err
		}
	}
	return nil
}

func applyString(store *ini.Store, f *ini.Field, dst *string) {
	if f.Present(store) {
		*dst = os.ExpandEnv(f.StringVal(store))
	}
}

func applyBool(store *ini.Store, f *ini.Field, name string, dst *bool) error {
	if !f.Present(store) {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(f.StringVal(store)))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = v
	return nil
}

func applyInt(store *ini.Store, f *ini.Field, name string, dst *int) error {
	if !f.Present(store) {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(f.StringVal(store)))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = v
	return nil
}

func applyDuration(store *ini.Store, f *ini.Field, name string, dst *time.Duration) error {
	if !f.Present(store) {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(f.StringVal(store)))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = v
	return nil
}
