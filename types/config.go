package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	APIBase     string  `yaml:"apiBase"`   // REST endpoint base, e.g. https://api.pushbullet.com/v2
	StreamURL   string  `yaml:"streamUrl"` // realtime event stream endpoint (token is appended)
	ProbeHost   string  `yaml:"probeHost"` // host used by the connectivity prober
	ProbePort   int     `yaml:"probePort"` // port used by the connectivity prober
	ProxyHost   string  `yaml:"proxyHost,omitempty"`
	ProxyPort   int     `yaml:"proxyPort,omitempty"`
	IconPath    string  `yaml:"iconPath"` // icon shown on desktop notifications
	StatusAPI   bool    `yaml:"statusApi"`
	StatusPort  int     `yaml:"statusPort"`
	NotifyRate  float64 `yaml:"notifyRate"`  // notifications per second allowed through the sink
	NotifyBurst int     `yaml:"notifyBurst"` // burst size for the sink rate limiter
	DedupTTL    int     `yaml:"dedupTTL"`    // seconds a mirror notification key is remembered
}
