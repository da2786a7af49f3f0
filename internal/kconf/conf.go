// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package kconf holds the TOML configuration for kalahd.
package kconf

import (
	"os"

	"github.com/BurntSushi/toml"
)

// TCPConf configures the listening socket and client timing.
type TCPConf struct {
	Host string `toml:"host"`
	Port uint   `toml:"port"`
	// TurnTimeout is how long a player has to make a move, in seconds.
	TurnTimeout uint `toml:"turn_timeout"`
	// TickMillis is the event loop's readiness/timeout granularity, in
	// milliseconds.
	TickMillis uint `toml:"tick_millis"`
}

// DatabaseConf configures the SQLite-backed user store.
type DatabaseConf struct {
	File    string `toml:"file"`
	Threads uint   `toml:"threads"`
}

// Conf is the top-level server configuration.
type Conf struct {
	Debug    bool         `toml:"debug"`
	TCP      TCPConf      `toml:"tcp"`
	Database DatabaseConf `toml:"database"`

	file string
}

// Default returns the server's default configuration, matching the
// values assumed by spec.md where it specifies concrete numbers (port
// 31337, 10s turn timeout, 200ms tick).
func Default() Conf {
	return Conf{
		Debug: false,
		TCP: TCPConf{
			Host:        "0.0.0.0",
			Port:        31337,
			TurnTimeout: 10,
			TickMillis:  200,
		},
		Database: DatabaseConf{
			File:    "kalah.db",
			Threads: 1,
		},
	}
}

// Load reads a TOML configuration file on top of the default
// configuration. A file that cannot be opened yields the defaults
// together with the open error; the caller decides whether that's
// acceptable (mirrors the teacher's openConf/readConf split).
func Load(name string) (Conf, error) {
	conf := Default()

	file, err := os.Open(name)
	if err != nil {
		return conf, err
	}
	defer file.Close()

	_, err = toml.NewDecoder(file).Decode(&conf)
	conf.file = name
	return conf, err
}

// File returns the path this configuration was loaded from, or "" if
// it is the compiled-in default.
func (c Conf) File() string { return c.file }
