package common

import (
	"time"
)

// DefaultUserAgent is presented by the browser unless configured otherwise
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// IntRange is an inclusive range of integers
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// DurationRange is an inclusive range of durations
type DurationRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Humanize holds the randomized pacing used to make browser actions look less mechanical
type Humanize struct {
	ActionPause        time.Duration `yaml:"action_pause"`
	SearchPause        time.Duration `yaml:"search_pause"`
	ScrollSteps        IntRange      `yaml:"scroll_steps"`
	ScrollDistance     IntRange      `yaml:"scroll_distance"`
	ScrollPause        DurationRange `yaml:"scroll_pause"`
	CorrectionChance   float64       `yaml:"correction_chance"`
	CorrectionDistance IntRange      `yaml:"correction_distance"`
	CorrectionPause    DurationRange `yaml:"correction_pause"`
	SettleFloor        int           `yaml:"settle_floor"`
	ScrollDownPause    DurationRange `yaml:"scroll_down_pause"`
	BottomScrollPause  DurationRange `yaml:"bottom_scroll_pause"`
	KeystrokeDelay     DurationRange `yaml:"keystroke_delay"`
	SitePause          DurationRange `yaml:"site_pause"`
}

// Browser holds the settings of the automated browser session
type Browser struct {
	Headless        bool          `yaml:"headless"`
	UserAgent       string        `yaml:"user_agent"`
	RotateUserAgent bool          `yaml:"rotate_user_agent"`
	RemoteURL       string        `yaml:"remote_url"`
	ViewportWidth   int           `yaml:"viewport_width"`
	ViewportHeight  int           `yaml:"viewport_height"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout"`
	ElementTimeout  time.Duration `yaml:"element_timeout"`
}

// Research holds the settings of a niche research run
type Research struct {
	SearchURL       string        `yaml:"search_url"`
	EngineDomain    string        `yaml:"engine_domain"`
	QueryQualifiers string        `yaml:"query_qualifiers"`
	MaxRetries      int           `yaml:"max_retries"`
	MaxSites        int           `yaml:"max_sites"`
	MaxTextLength   int           `yaml:"max_text_length"`
	ScrollRounds    int           `yaml:"scroll_rounds"`
	ScrollDistance  int           `yaml:"scroll_distance"`
	ScrollWait      time.Duration `yaml:"scroll_wait"`
	RawTextLength   int           `yaml:"raw_text_length"`
}

// Analysis holds the settings of the optional language-model analysis step
type Analysis struct {
	Enabled         bool          `yaml:"enabled"`
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"-"`
	SystemPrompt    string        `yaml:"system_prompt"`
	Temperature     float64       `yaml:"temperature"`
	ReasoningEffort string        `yaml:"reasoning_effort"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RequestsPerMin  int           `yaml:"requests_per_minute"`
}

// Configuration holds the complete tool configuration
type Configuration struct {
	OutputDir   string   `yaml:"output_dir"`
	Debug       bool     `yaml:"debug"`
	MetricsPort int      `yaml:"metrics_port"`
	Browser     Browser  `yaml:"browser"`
	Humanize    Humanize `yaml:"humanize"`
	Research    Research `yaml:"research"`
	Analysis    Analysis `yaml:"analysis"`
}

// DefaultConfiguration returns the configuration used when no file overrides it
func DefaultConfiguration() Configuration {
	return Configuration{
		OutputDir: ".",
		Browser: Browser{
			UserAgent:       DefaultUserAgent,
			ViewportWidth:   1920,
			ViewportHeight:  1080,
			PageLoadTimeout: 20 * time.Second,
			ElementTimeout:  5 * time.Second,
		},
		Humanize: Humanize{
			ActionPause:        2 * time.Second,
			SearchPause:        4 * time.Second,
			ScrollSteps:        IntRange{Min: 3, Max: 6},
			ScrollDistance:     IntRange{Min: 300, Max: 800},
			ScrollPause:        DurationRange{Min: 500 * time.Millisecond, Max: 2 * time.Second},
			CorrectionChance:   0.3,
			CorrectionDistance: IntRange{Min: 100, Max: 300},
			CorrectionPause:    DurationRange{Min: 300 * time.Millisecond, Max: time.Second},
			SettleFloor:        600,
			ScrollDownPause:    DurationRange{Min: time.Second, Max: 2 * time.Second},
			BottomScrollPause:  DurationRange{Min: 300 * time.Millisecond, Max: 1200 * time.Millisecond},
			KeystrokeDelay:     DurationRange{Min: 50 * time.Millisecond, Max: 150 * time.Millisecond},
			SitePause:          DurationRange{Min: 1500 * time.Millisecond, Max: 3 * time.Second},
		},
		Research: Research{
			SearchURL:       "https://www.google.com/search",
			EngineDomain:    "google",
			QueryQualifiers: "business opportunity analysis profitable",
			MaxRetries:      3,
			MaxSites:        100,
			MaxTextLength:   50000,
			ScrollRounds:    3,
			ScrollDistance:  700,
			ScrollWait:      time.Second,
			RawTextLength:   1000,
		},
		Analysis: Analysis{
			Endpoint:       "http://localhost:8080/v1/chat/completions",
			SystemPrompt:   "You are a business analyst who evaluates market niches from scraped web research.",
			Temperature:    0.7,
			Timeout:        2 * time.Minute,
			MaxRetries:     3,
			RequestsPerMin: 20,
		},
	}
}
