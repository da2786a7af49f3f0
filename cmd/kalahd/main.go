// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Command kalahd runs the Kalah arbiter server described by spec.md:
// a TCP server that registers and authenticates players, matches them
// for Kalah, referees moves, and tracks win/draw/loss records.
//
// Grounded on the teacher's main.go flag handling (-conf/-dump-config)
// and startup sequence (open conf, open database, start listening).
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"kalahd/internal/auth"
	"kalahd/internal/kconf"
	"kalahd/internal/klog"
	"kalahd/internal/loop"
	"kalahd/internal/pool"
	"kalahd/internal/store"
)

func main() {
	confFile := flag.String("conf", "kalahd.conf", "path to configuration file")
	dumpConf := flag.Bool("dump-config", false, "print the active configuration and exit")
	flag.Parse()

	conf, err := kconf.Load(*confFile)
	if err != nil && *confFile != "kalahd.conf" {
		log.Fatal("kalahd: ", err)
	}

	if *dumpConf {
		if err := toml.NewEncoder(os.Stdout).Encode(conf); err != nil {
			log.Fatal("kalahd: ", err)
		}
		return
	}

	if conf.Debug {
		klog.Debug.SetOutput(os.Stderr)
	} else {
		klog.Debug.SetOutput(io.Discard)
	}

	st, err := store.Open(conf.Database.File, conf.Database.Threads)
	if err != nil {
		log.Fatal("kalahd: opening store: ", err)
	}
	defer st.Close()

	authMgr := auth.New(st)
	pools := map[string]*pool.Pool{
		"KLH": pool.New("KLH", pool.NewKalahConstructor("KLH", time.Duration(conf.TCP.TurnTimeout)*time.Second), st),
	}

	addr := fmt.Sprintf("%s:%d", conf.TCP.Host, conf.TCP.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("kalahd: ", err)
	}
	log.Print("kalahd: listening on ", addr)

	l := loop.New(authMgr, pools, time.Duration(conf.TCP.TickMillis)*time.Millisecond)
	log.Fatal(l.Serve(ln))
}
