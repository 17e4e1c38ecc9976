package main

import (
	"time"

	configlibsql "ecourts-backend/lib/configutil/libsql"
	"ecourts-backend/lib/restyutil"
	"ecourts-backend/lib/scrapers/ecourts"
)

type PortalConfig struct {
	TimeoutSeconds          int  `json:"timeout_seconds"`
	DisableCloudflareBypass bool `json:"disable_cloudflare_bypass"`
	// directory receiving the last search and details html
	Diagnostics        string `json:"diagnostics"`
	DisableDiagnostics bool   `json:"disable_diagnostics"`
	// directory receiving request dumps while debug logging, empty disables it
	HttpDump string `json:"http_dump"`
}

type Config struct {
	Listen            string              `json:"listen"`
	Directory         string              `json:"directory"`
	Database          configlibsql.Struct `json:"database"`
	Portal            PortalConfig        `json:"portal"`
	AdminToken        string              `json:"admin_token"`
	MaxSessions       int                 `json:"max_sessions"`
	SessionTTLMinutes int                 `json:"session_ttl_minutes"`
	Verbose           bool                `json:"verbose"`
}

var defaultConfig = Config{
	Listen:    "0.0.0.0:8000",
	Directory: "ecourts_data.json",
	Database: configlibsql.Struct{
		File: "queries.db",
	},
	Portal: PortalConfig{
		TimeoutSeconds: int(ecourts.DefaultTimeout / time.Second),
		Diagnostics:    "<dev_state>/ecourts_diagnostics",
	},
	MaxSessions:       1024,
	SessionTTLMinutes: 20,
}

func (c PortalConfig) ClientOptions() (ecourts.ClientOptions, error) {
	opts := ecourts.ClientOptions{
		Timeout:          time.Duration(c.TimeoutSeconds) * time.Second,
		CloudflareBypass: !c.DisableCloudflareBypass,
	}
	if !c.DisableDiagnostics && c.Diagnostics != "" {
		out, err := restyutil.NewFilesystemOutputOrTemp(c.Diagnostics)
		if err != nil {
			return ecourts.ClientOptions{}, err
		}
		opts.Diagnostics = out
	}
	if c.HttpDump != "" {
		out, err := restyutil.NewFilesystemOutput(c.HttpDump)
		if err != nil {
			return ecourts.ClientOptions{}, err
		}
		opts.HttpDump = out
	}
	return opts, nil
}
