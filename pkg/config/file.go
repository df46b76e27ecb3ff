package config

import (
	"encoding/json"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camexpo/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		IntervalSeconds:    ptr.To(10),
		HistoryDB:          ptr.To(""),
		RetentionDays:      ptr.To(0),
		RetentionSchedule:  ptr.To("@daily"),
		AllowNonRootAccess: ptr.To(false),
		// Left to the HTTP client by default. A camera that never answers
		// would then stall its loop, so users on flaky networks should set it.
		HTTPTimeoutSeconds: ptr.To(0),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Cameras            []Camera `json:"cameras,omitempty"`
	IntervalSeconds    *int     `json:"intervalSeconds,omitempty"`
	HistoryDB          *string  `json:"historyDB,omitempty"`
	RetentionDays      *int     `json:"retentionDays,omitempty"`
	RetentionSchedule  *string  `json:"retentionSchedule,omitempty"`
	AllowNonRootAccess *bool    `json:"allowNonRootAccess,omitempty"`
	HTTPTimeoutSeconds *int     `json:"httpTimeoutSeconds,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Cameras:            c.Cameras(),
		IntervalSeconds:    ptr.To(int(c.Interval() / time.Second)),
		HistoryDB:          ptr.To(c.HistoryDB()),
		RetentionDays:      ptr.To(c.RetentionDays()),
		RetentionSchedule:  ptr.To(c.RetentionSchedule()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
		HTTPTimeoutSeconds: ptr.To(int(c.HTTPTimeout() / time.Second)),
	}

	return rawConfig, nil
}

func (f *File) Cameras() []Camera {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	cams := make([]Camera, 0, len(f.c.Cameras))
	for _, c := range f.c.Cameras {
		if c.OutputDir == "" {
			c.OutputDir = c.Name
		}
		cams = append(cams, c)
	}

	return cams
}

func (f *File) Interval() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	seconds := ptr.Deref(f.c.IntervalSeconds, *defaultFileConfig.IntervalSeconds)
	if seconds <= 0 {
		seconds = *defaultFileConfig.IntervalSeconds
	}

	return time.Duration(seconds) * time.Second
}

func (f *File) HistoryDB() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.HistoryDB, *defaultFileConfig.HistoryDB)
}

func (f *File) RetentionDays() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.RetentionDays, *defaultFileConfig.RetentionDays)
}

func (f *File) RetentionSchedule() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.RetentionSchedule, *defaultFileConfig.RetentionSchedule)
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

func (f *File) HTTPTimeout() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return time.Duration(ptr.Deref(f.c.HTTPTimeoutSeconds, *defaultFileConfig.HTTPTimeoutSeconds)) * time.Second
}

func (f *File) SetCameras(cams []Camera) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.Cameras = append([]Camera(nil), cams...)
}

func (f *File) SetInterval(d time.Duration) {
	if f.c == nil {
		panic("config is nil")
	}

	if d < time.Second {
		panic("interval must be at least one second")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	seconds := int(d / time.Second)
	f.c.IntervalSeconds = &seconds
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) Validate() error {
	cams := f.Cameras()
	if len(cams) == 0 {
		return pkgerrors.New("no cameras configured")
	}

	seen := make(map[string]struct{}, len(cams))
	for i, c := range cams {
		if c.Name == "" {
			return pkgerrors.Errorf("camera #%d has no name", i)
		}
		if _, ok := seen[c.Name]; ok {
			return pkgerrors.Errorf("duplicate camera name %q", c.Name)
		}
		seen[c.Name] = struct{}{}

		u, err := url.Parse(c.URL)
		if err != nil {
			return pkgerrors.Wrapf(err, "invalid url of camera %q", c.Name)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return pkgerrors.Errorf("camera %q must have an http(s) url, got %q", c.Name, c.URL)
		}
	}

	if f.RetentionDays() < 0 {
		return pkgerrors.Errorf("retentionDays must not be negative, got %d", f.RetentionDays())
	}
	if f.RetentionDays() > 0 {
		if _, err := ParseSchedule(f.RetentionSchedule()); err != nil {
			return pkgerrors.Wrapf(err, "invalid retentionSchedule %q", f.RetentionSchedule())
		}
	}

	return nil
}

// ParseSchedule parses a cron expression. Seconds are optional and
// descriptors such as @daily or @every 6h are accepted.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(expr)
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	names := make([]string, 0)
	for _, c := range f.Cameras() {
		names = append(names, c.Name)
	}

	return logrus.Fields{
		"cameras":            names,
		"interval":           f.Interval(),
		"historyDB":          f.HistoryDB(),
		"retentionDays":      f.RetentionDays(),
		"retentionSchedule":  f.RetentionSchedule(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
		"httpTimeout":        f.HTTPTimeout(),
	}
}
