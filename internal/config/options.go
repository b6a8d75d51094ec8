package config

const (
	defaultLogFile            = "e-oasis-mcp.log"
	defaultLogLevel           = "info"
	defaultLogFileMaxSize     = 20
	defaultLogFileMaxBackups  = 3
	defaultLogFileMaxAge      = 28
	defaultLogCompress        = false
	defaultHost               = "127.0.0.1"
	defaultPort               = 8787
	defaultHTTPEnabled        = false
	defaultData               = "/var/opt/e-oasis-mcp"
	defaultDSN                = defaultData + "/e-oasis.db"
	defaultLibraryPath        = ""
	defaultCacheTTL           = 10 // minutes
	defaultCacheSweepInterval = 2  // minutes
	defaultChunkThreshold     = 50000
	defaultChunkSize          = 30000
	defaultMaxPagesPerRead    = 10
	defaultFeedTimeout        = 30 // seconds
	defaultFeedCacheTTL       = 5  // minutes
	defaultFeedCacheSize      = 128
	defaultFeedRefresh        = 0 // minutes, 0 disables background refresh
	defaultFeedFetchRate      = 500
	defaultImageTimeout       = 10 // seconds
	defaultMaxImageSize       = 10 << 20
	defaultCoverWebpThreshold = 256 << 10
	defaultDedupPrefixWindow  = 2000
	defaultDedupSuffixWindow  = 1500
	defaultDedupMinWindow     = 100
	defaultDedupStep          = 50
	defaultDedupMinLength     = 200
	defaultDedupMaxOffset     = 500
	defaultDedupQuorum        = 0.5
	defaultDedupMinChapters   = 3
)

// Options is decoded by viper, which works on mapstructure tags rather than json.
type Options struct {
	// LogFile is the file to write logs to
	LogFile string `mapstructure:"log_file"`
	// LogLevel is the level of logging to show
	LogLevel string `mapstructure:"log_level"`
	// LogFileMaxSize is the maximum size of the log file before it is rotated
	LogFileMaxSize int `mapstructure:"log_file_max_size"`
	// LogFileMaxBackups is the maximum number of log files to keep
	LogFileMaxBackups int `mapstructure:"log_file_max_backups"`
	// LogFileMaxAge is the maximum number of days to keep a log file
	LogFileMaxAge int `mapstructure:"log_file_max_age"`
	// LogCompress is whether or not to compress the log files
	LogCompress bool `mapstructure:"log_compress"`
	// DSN is the path of the sqlite database
	DSN string `mapstructure:"dsn_uri"`
	// Data is the directory holding the database and the JSON documents
	Data string `mapstructure:"data"`
	// LibraryPath is the default directory scanned for books
	LibraryPath string `mapstructure:"library_path"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	HTTPEnabled bool   `mapstructure:"http_enabled"`

	// Document and text caches, in minutes
	CacheTTL           int `mapstructure:"cache_ttl"`
	CacheSweepInterval int `mapstructure:"cache_sweep_interval"`

	// Progressive reading, in characters
	ChunkThreshold  int `mapstructure:"chunk_threshold"`
	ChunkSize       int `mapstructure:"chunk_size"`
	MaxPagesPerRead int `mapstructure:"max_pages_per_read"`

	// Feeds
	FeedTimeout         int `mapstructure:"feed_timeout"`
	FeedCacheTTL        int `mapstructure:"feed_cache_ttl"`
	FeedCacheSize       int `mapstructure:"feed_cache_size"`
	FeedRefreshInterval int `mapstructure:"feed_refresh_interval"`
	// FeedFetchRate is the minimum delay between two fetches of a refresh-all, in milliseconds
	FeedFetchRate int `mapstructure:"feed_fetch_rate"`

	// Images
	ImageTimeout       int   `mapstructure:"image_timeout"`
	MaxImageSize       int64 `mapstructure:"max_image_size"`
	CoverWebpThreshold int   `mapstructure:"cover_webp_threshold"`

	// Boilerplate detection
	DedupPrefixWindow int     `mapstructure:"dedup_prefix_window"`
	DedupSuffixWindow int     `mapstructure:"dedup_suffix_window"`
	DedupMinWindow    int     `mapstructure:"dedup_min_window"`
	DedupStep         int     `mapstructure:"dedup_step"`
	DedupMinLength    int     `mapstructure:"dedup_min_length"`
	DedupMaxOffset    int     `mapstructure:"dedup_max_offset"`
	DedupQuorum       float64 `mapstructure:"dedup_quorum"`
	DedupMinChapters  int     `mapstructure:"dedup_min_chapters"`
}

func GetDefaultOptions() *Options {
	Opts = &Options{
		LogFile:             defaultLogFile,
		LogLevel:            defaultLogLevel,
		LogFileMaxSize:      defaultLogFileMaxSize,
		LogFileMaxBackups:   defaultLogFileMaxBackups,
		LogFileMaxAge:       defaultLogFileMaxAge,
		LogCompress:         defaultLogCompress,
		DSN:                 defaultDSN,
		Data:                defaultData,
		LibraryPath:         defaultLibraryPath,
		Host:                defaultHost,
		Port:                defaultPort,
		HTTPEnabled:         defaultHTTPEnabled,
		CacheTTL:            defaultCacheTTL,
		CacheSweepInterval:  defaultCacheSweepInterval,
		ChunkThreshold:      defaultChunkThreshold,
		ChunkSize:           defaultChunkSize,
		MaxPagesPerRead:     defaultMaxPagesPerRead,
		FeedTimeout:         defaultFeedTimeout,
		FeedCacheTTL:        defaultFeedCacheTTL,
		FeedCacheSize:       defaultFeedCacheSize,
		FeedRefreshInterval: defaultFeedRefresh,
		FeedFetchRate:       defaultFeedFetchRate,
		ImageTimeout:        defaultImageTimeout,
		MaxImageSize:        defaultMaxImageSize,
		CoverWebpThreshold:  defaultCoverWebpThreshold,
		DedupPrefixWindow:   defaultDedupPrefixWindow,
		DedupSuffixWindow:   defaultDedupSuffixWindow,
		DedupMinWindow:      defaultDedupMinWindow,
		DedupStep:           defaultDedupStep,
		DedupMinLength:      defaultDedupMinLength,
		DedupMaxOffset:      defaultDedupMaxOffset,
		DedupQuorum:         defaultDedupQuorum,
		DedupMinChapters:    defaultDedupMinChapters,
	}
	return Opts
}
