package config // import "github.com/Xunop/e-oasis-mcp/internal/config"

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var Opts *Options

const (
	catalogFileName = "library.json"
	sessionFileName = "session.json"
	homeDataDirName = ".e-oasis-mcp"
)

// GetConfig builds the default options and resolves the data directory.
func GetConfig() (*Options, error) {
	GetDefaultOptions()
	if err := Opts.ResolveData(); err != nil {
		return nil, err
	}
	return Opts, nil
}

// ResolveData makes the data directory absolute, creates it when missing and
// derives the database path from it when the DSN still points at the default.
func (o *Options) ResolveData() error {
	dataDir, err := checkDataDir(o.Data)
	if err != nil {
		return err
	}
	if o.DSN == "" || o.DSN == defaultDSN || !filepath.IsAbs(o.DSN) {
		o.DSN = filepath.Join(dataDir, "e-oasis.db")
	}
	o.Data = dataDir
	return nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err == nil {
		return dataDir, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}

	err := os.MkdirAll(dataDir, 0755)
	if err == nil {
		return dataDir, nil
	}
	if !errors.Is(err, os.ErrPermission) || dataDir != defaultData {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}

	// Permission denied on the system default, fall back to the home directory
	currentUser, err := user.Current()
	if err != nil {
		return "", errors.Wrap(err, "unable to get current user")
	}
	if currentUser.HomeDir == "" {
		return "", errors.New("unable to get home directory")
	}
	homeData := filepath.Join(currentUser.HomeDir, homeDataDirName)
	if err := os.MkdirAll(homeData, 0755); err != nil {
		return "", errors.Wrapf(err, "unable to create default data folder %s", homeData)
	}
	return homeData, nil
}

// ParseFile overrides the current options with the values of a config file.
func ParseFile(file string) (*Options, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, errors.Wrapf(err, "unable to access config file %s", file)
	}
	if Opts == nil {
		GetDefaultOptions()
	}

	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "unable to read config file %s", file)
	}
	if err := v.Unmarshal(Opts); err != nil {
		return nil, errors.Wrapf(err, "unable to decode config file %s", file)
	}
	return Opts, nil
}

// CatalogPath is the JSON document holding the library catalog.
func (o *Options) CatalogPath() string {
	return filepath.Join(o.Data, catalogFileName)
}

// SessionPath is the JSON document holding reading positions.
func (o *Options) SessionPath() string {
	return filepath.Join(o.Data, sessionFileName)
}

func (o *Options) CacheTTLDuration() time.Duration {
	return time.Duration(o.CacheTTL) * time.Minute
}

func (o *Options) CacheSweepDuration() time.Duration {
	return time.Duration(o.CacheSweepInterval) * time.Minute
}

func (o *Options) FeedTimeoutDuration() time.Duration {
	return time.Duration(o.FeedTimeout) * time.Second
}

func (o *Options) FeedCacheTTLDuration() time.Duration {
	return time.Duration(o.FeedCacheTTL) * time.Minute
}

func (o *Options) FeedRefreshDuration() time.Duration {
	return time.Duration(o.FeedRefreshInterval) * time.Minute
}

func (o *Options) FeedFetchRateDuration() time.Duration {
	return time.Duration(o.FeedFetchRate) * time.Millisecond
}

func (o *Options) ImageTimeoutDuration() time.Duration {
	return time.Duration(o.ImageTimeout) * time.Second
}
