package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"qrzlogger/callsign"
	"qrzlogger/cty"
	"qrzlogger/qso"
)

// ErrConfig marks a missing, placeholder or malformed configuration value.
var ErrConfig = errors.New("configuration error")

const (
	// EnvConfigPath overrides the per-user config file location.
	EnvConfigPath = "QRZLOGGER_CONFIG"
	appDirName    = "qrzlogger"
	fileName      = "qrzlogger.yaml"

	placeholderCall   = "MYCALL"
	placeholderAPIKey = "1234-ABCD-1234-A1B2"
	placeholderPass   = "my_secret_password"

	DefaultXMLURL      = "https://xmldata.qrz.com/xml/current/"
	DefaultAPIURL      = "https://logbook.qrz.com/api"
	DefaultCTYURL      = "https://www.country-files.com/bigcty/download/bigcty.zip"
	DefaultActivityURL = "https://lotw.arrl.org/lotw-user-activity.csv"
	DefaultReportURL   = "https://lotw.arrl.org/lotwuser/lotwreport.adi"
	DefaultAgent       = "qrzlogger"
)

// LoTW mode filters accepted in lotw.lotw_mode.
var LoTWModes = []string{"NONE", "ALL", "CW", "PHONE", "DATA", "SSB", "AM", "FM", "RTTY", "FT8", "FT4", "PSK31", "JT65"}

// QSOFields are the QSO inputs in prompt order; contest.prompt_fields must
// be drawn from this list.
var QSOFields = []string{"date", "time", "band", "freq", "mode", "rst_sent", "rst_rcvd", "tx_pwr", "comment"}

// Config is the complete operator configuration.
type Config struct {
	QRZ         QRZConfig         `yaml:"qrz"`
	LoTW        LoTWConfig        `yaml:"lotw"`
	QSODefaults QSODefaults       `yaml:"qso_defaults"`
	BandFreqs   map[string]string `yaml:"bandfreqs"`
	Contest     ContestConfig     `yaml:"contest"`
	Files       FilesConfig       `yaml:"files"`
	Colors      ColorsConfig      `yaml:"colors"`
	Logging     LoggingConfig     `yaml:"logging"`

	LoadedFrom string `yaml:"-"`
}

// QRZConfig holds the station identity, credentials and service endpoints.
type QRZConfig struct {
	StationCall    string `yaml:"station_call"`
	StationGrid    string `yaml:"station_grid"`
	APIKey         string `yaml:"api_key"`
	User           string `yaml:"qrz_user"`
	Pass           string `yaml:"qrz_pass"`
	XMLURL         string `yaml:"xml_url"`
	APIURL         string `yaml:"api_url"`
	Agent          string `yaml:"agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LoTWConfig enables the LoTW confirmation report.
type LoTWConfig struct {
	User string `yaml:"lotw_user"`
	Pass string `yaml:"lotw_pass"`
	Mode string `yaml:"lotw_mode"`
}

// QSODefaults seed the QSO prompts.
type QSODefaults struct {
	Band    string `yaml:"band"`
	Mode    string `yaml:"mode"`
	RSTSent string `yaml:"rst_sent"`
	RSTRcvd string `yaml:"rst_rcvd"`
	TxPwr   string `yaml:"tx_pwr"`
	Comment string `yaml:"comment"`
}

// ContestConfig trims the prompts to the fields that change between QSOs.
type ContestConfig struct {
	Enabled      bool              `yaml:"enabled"`
	PromptFields []string          `yaml:"prompt_fields"`
	Defaults     map[string]string `yaml:"defaults"`
}

// FilesConfig locates the cache directory and reference dataset URLs.
type FilesConfig struct {
	DataDir        string `yaml:"data_dir"`
	CTYURL         string `yaml:"cty_url"`
	ActivityURL    string `yaml:"activity_url"`
	ReportURL      string `yaml:"lotw_report_url"`
	RefreshDays    int    `yaml:"refresh_days"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	HistoryFile    string `yaml:"history_file"`
	JournalFile    string `yaml:"journal_file"`
}

// ColorsConfig names the markup colors used by the presenter.
type ColorsConfig struct {
	UseColors bool   `yaml:"use_colors"`
	Input     string `yaml:"input"`
	Highlight string `yaml:"highlight"`
	Default   string `yaml:"default"`
	Error     string `yaml:"error"`
	Success   string `yaml:"success"`
	Table     string `yaml:"table"`
}

// LoggingConfig controls the daily diagnostic log files.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Console       bool   `yaml:"console"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// DefaultPath returns the config file location, honoring QRZLOGGER_CONFIG.
func DefaultPath() (string, error) {
	if envPath := strings.TrimSpace(os.Getenv(EnvConfigPath)); envPath != "" {
		return envPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: locate user config dir: %w", ErrConfig, err)
	}
	return filepath.Join(dir, appDirName, fileName), nil
}

// DefaultConfig returns the template configuration with placeholder
// credentials.
func DefaultConfig() *Config {
	cfg := seeded()
	cfg.QRZ = QRZConfig{
		StationCall: placeholderCall,
		APIKey:      placeholderAPIKey,
		User:        placeholderCall,
		Pass:        placeholderPass,
	}
	cfg.setDefaults()
	return &cfg
}

// seeded holds the defaults that a zero value cannot express. Files are
// decoded on top of it so an omitted boolean keeps its default.
func seeded() Config {
	return Config{
		Colors:  ColorsConfig{UseColors: true},
		Logging: LoggingConfig{Enabled: true},
	}
}

func (c *Config) setDefaults() {
	if c.QRZ.XMLURL == "" {
		c.QRZ.XMLURL = DefaultXMLURL
	}
	if c.QRZ.APIURL == "" {
		c.QRZ.APIURL = DefaultAPIURL
	}
	if c.QRZ.Agent == "" {
		c.QRZ.Agent = DefaultAgent
	}
	if c.QRZ.TimeoutSeconds <= 0 {
		c.QRZ.TimeoutSeconds = 15
	}
	c.QRZ.StationCall = callsign.Normalize(c.QRZ.StationCall)
	c.QRZ.StationGrid = strings.ToUpper(strings.TrimSpace(c.QRZ.StationGrid))

	c.LoTW.Mode = strings.ToUpper(strings.TrimSpace(c.LoTW.Mode))
	if c.LoTW.Mode == "" {
		c.LoTW.Mode = "NONE"
	}

	d := &c.QSODefaults
	if d.Band == "" {
		d.Band = "20m"
	}
	d.Band = qso.NormalizeBand(d.Band)
	if d.Mode == "" {
		d.Mode = "SSB"
	}
	d.Mode = strings.ToUpper(d.Mode)
	if d.RSTSent == "" {
		d.RSTSent = "59"
	}
	if d.RSTRcvd == "" {
		d.RSTRcvd = "59"
	}
	if d.TxPwr == "" {
		d.TxPwr = "100"
	}

	if len(c.BandFreqs) == 0 {
		c.BandFreqs = defaultBandFreqs()
	} else {
		freqs := make(map[string]string, len(c.BandFreqs))
		for band, freq := range c.BandFreqs {
			freqs[qso.NormalizeBand(band)] = strings.TrimSpace(freq)
		}
		c.BandFreqs = freqs
	}

	if len(c.Contest.PromptFields) == 0 {
		c.Contest.PromptFields = []string{"band", "mode", "rst_rcvd"}
	}
	if c.Contest.Defaults == nil {
		c.Contest.Defaults = map[string]string{"rst_sent": "59", "rst_rcvd": "59"}
	}

	f := &c.Files
	if f.DataDir == "" {
		f.DataDir = defaultDataDir()
	}
	if f.CTYURL == "" {
		f.CTYURL = DefaultCTYURL
	}
	if f.ActivityURL == "" {
		f.ActivityURL = DefaultActivityURL
	}
	if f.ReportURL == "" {
		f.ReportURL = DefaultReportURL
	}
	if f.RefreshDays <= 0 {
		f.RefreshDays = 7
	}
	if f.TimeoutSeconds <= 0 {
		f.TimeoutSeconds = 60
	}
	if f.HistoryFile == "" {
		f.HistoryFile = filepath.Join(f.DataDir, "history")
	}
	if f.JournalFile == "" {
		f.JournalFile = filepath.Join(f.DataDir, "journal.db")
	}

	col := &c.Colors
	if col.Input == "" {
		col.Input = "yellow"
	}
	if col.Highlight == "" {
		col.Highlight = "cyan"
	}
	if col.Default == "" {
		col.Default = "white"
	}
	if col.Error == "" {
		col.Error = "red"
	}
	if col.Success == "" {
		col.Success = "green"
	}
	if col.Table == "" {
		col.Table = "blue"
	}

	if c.Logging.Dir == "" {
		c.Logging.Dir = filepath.Join(f.DataDir, "logs")
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = 7
	}
}

func defaultBandFreqs() map[string]string {
	return map[string]string{
		"160m": "1.850",
		"80m":  "3.700",
		"60m":  "5.355",
		"40m":  "7.100",
		"30m":  "10.130",
		"20m":  "14.200",
		"17m":  "18.130",
		"15m":  "21.200",
		"12m":  "24.950",
		"10m":  "28.500",
		"6m":   "50.150",
		"2m":   "145.500",
		"70cm": "432.300",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appDirName)
	}
	return "." + appDirName
}

// Load reads a YAML config file and fills in defaults. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrConfig, err)
	}
	cfg := seeded()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file %s: %w", ErrConfig, path, err)
	}
	cfg.setDefaults()
	cfg.LoadedFrom = path
	return &cfg, nil
}

// Save writes the configuration as YAML, owner-readable only.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	header := "# qrzlogger configuration. Replace the placeholder values before use.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EnsureFile writes the template when path does not exist and reports
// whether it did.
func EnsureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: stat config file: %w", ErrConfig, err)
	}
	if err := DefaultConfig().Save(path); err != nil {
		return false, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return true, nil
}

// EnsureDirs creates the data and log directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Files.DataDir, c.Logging.Dir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Validate checks required keys, placeholders and enumerations. All problems
// are reported in one ErrConfig.
func (c *Config) Validate() error {
	var problems []string
	required := []struct {
		key, value, placeholder string
	}{
		{"qrz.station_call", c.QRZ.StationCall, placeholderCall},
		{"qrz.api_key", c.QRZ.APIKey, placeholderAPIKey},
		{"qrz.qrz_user", c.QRZ.User, placeholderCall},
		{"qrz.qrz_pass", c.QRZ.Pass, placeholderPass},
	}
	for _, r := range required {
		switch strings.TrimSpace(r.value) {
		case "":
			problems = append(problems, r.key+" is missing")
		case r.placeholder:
			problems = append(problems, r.key+" still has the template value")
		}
	}
	if c.QRZ.StationCall != "" && c.QRZ.StationCall != placeholderCall && !callsign.Valid(c.QRZ.StationCall) {
		problems = append(problems, fmt.Sprintf("qrz.station_call %q is not a callsign", c.QRZ.StationCall))
	}
	if c.QRZ.StationGrid != "" {
		if _, _, ok := cty.LatLonFromGrid(c.QRZ.StationGrid); !ok {
			problems = append(problems, fmt.Sprintf("qrz.station_grid %q is not a Maidenhead locator", c.QRZ.StationGrid))
		}
	}

	if !contains(LoTWModes, c.LoTW.Mode) {
		problems = append(problems, fmt.Sprintf("lotw.lotw_mode %q is not one of %s", c.LoTW.Mode, strings.Join(LoTWModes, ", ")))
	} else if c.LoTW.Mode != "NONE" && (strings.TrimSpace(c.LoTW.User) == "" || strings.TrimSpace(c.LoTW.Pass) == "") {
		problems = append(problems, "lotw.lotw_user and lotw.lotw_pass are required when lotw_mode is not NONE")
	}

	if !qso.KnownBand(c.QSODefaults.Band) {
		problems = append(problems, fmt.Sprintf("qso_defaults.band %q is unknown", c.QSODefaults.Band))
	}
	bands := make([]string, 0, len(c.BandFreqs))
	for band := range c.BandFreqs {
		bands = append(bands, band)
	}
	sort.Strings(bands)
	for _, band := range bands {
		if !qso.KnownBand(band) {
			problems = append(problems, fmt.Sprintf("bandfreqs.%s is not a band", band))
		}
	}
	for _, field := range c.Contest.PromptFields {
		if !contains(QSOFields, field) {
			problems = append(problems, fmt.Sprintf("contest.prompt_fields entry %q is not a QSO field", field))
		}
	}
	for field := range c.Contest.Defaults {
		if !contains(QSOFields, field) {
			problems = append(problems, fmt.Sprintf("contest.defaults key %q is not a QSO field", field))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
}

// LoTWEnabled reports whether the confirmation report should be fetched.
func (c *Config) LoTWEnabled() bool {
	return c.LoTW.Mode != "NONE" && c.LoTW.User != "" && c.LoTW.Pass != ""
}

// RefreshTTL is the reference dataset refresh window.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.Files.RefreshDays) * 24 * time.Hour
}

// QRZTimeout bounds each call to the QRZ services.
func (c *Config) QRZTimeout() time.Duration {
	return time.Duration(c.QRZ.TimeoutSeconds) * time.Second
}

// DownloadTimeout bounds each reference dataset download.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Files.TimeoutSeconds) * time.Second
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
