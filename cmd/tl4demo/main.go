// Command tl4demo is an interactive driver for the TL4 core, grounded
// on the teacher's host/cmd REPL: parse flags, wire a bus and an
// application layer, then loop reading commands from stdin while the
// TL4 main loop runs underneath. It is a development/test harness, not
// production firmware.
package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"tl4bcu/apci"
	"tl4bcu/bushost"
	"tl4bcu/config"
	"tl4bcu/core"
	"tl4bcu/link"
	"tl4bcu/metrics"
	"tl4bcu/protocol"
)

// logAdapter makes *charmlog.Logger satisfy core.Logger.
type logAdapter struct{ l *charmlog.Logger }

func (a logAdapter) Debugf(format string, args ...interface{}) {
	a.l.Debug(fmt.Sprintf(format, args...))
}

func (a logAdapter) Eventf(format string, args ...interface{}) {
	a.l.Info(fmt.Sprintf(format, args...))
}

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "device config YAML file")
		ownAddrFlag = pflag.String("own-address", "1.1.1", "own KNX physical address (dotted)")
		styleFlag   = pflag.String("style", "style3", "style1 or style3")
		serialDev   = pflag.String("serial", "", "serial device path; empty uses an in-memory simulated bus")
		serialBaud  = pflag.Int("baud", 19200, "serial baud rate")
		metricsAddr = pflag.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9100")
		verbose     = pflag.BoolP("verbose", "v", false, "debug logging")
	)
	pflag.Parse()

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}

	dev := &config.Device{
		OwnAddress:   *ownAddrFlag,
		Style:        *styleFlag,
		SerialDevice: *serialDev,
		SerialBaud:   *serialBaud,
		MetricsAddr:  *metricsAddr,
	}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("loading config", "err", err)
		}
		dev = loaded
	}

	own, err := protocol.ParseAddress(dev.OwnAddress)
	if err != nil {
		logger.Fatal("parsing own address", "err", err)
	}

	var style core.Style
	switch dev.Style {
	case "style1":
		style = core.Style1{}
	case "style3", "":
		style = core.Style3{}
	default:
		logger.Fatal("unknown style", "style", dev.Style)
	}

	var bus link.Bus
	if dev.SerialDevice != "" {
		sb, err := bushost.Open(dev.SerialDevice, dev.SerialBaud, own)
		if err != nil {
			logger.Fatal("opening serial bus", "err", err)
		}
		defer sb.Close()
		bus = sb
	} else {
		bus = link.NewSimBus(own)
		logger.Info("no --serial given, using an in-memory simulated bus")
	}

	registry := apci.NewRegistry()
	registry.RegisterDeviceDescriptor(apci.DeviceDescriptorType0)
	registry.OnDisconnectFunc(func() {
		logger.Info("connection closed")
	})

	tl := core.New(style, bus, registry, logAdapter{logger})
	tl.SetTimeouts(dev.ConnectionTimeoutMS, dev.AckTimeoutMS)

	if dev.MetricsAddr != "" {
		collector := metrics.NewCollector(&tl.Counters, tl.State)
		reg := prometheus.NewRegistry()
		reg.MustRegister(collector)
		go func() {
			logger.Info("serving metrics", "addr", dev.MetricsAddr)
			srv := &http.Server{Addr: dev.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	logger.Info("tl4demo ready", "own", own, "style", style.Name())

	commands := make(chan string)
	go readCommands(commands)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tl.Loop()
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			handleCommand(logger, tl, cmd)
		}
	}
}

func readCommands(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- strings.TrimSpace(scanner.Text())
	}
}

func handleCommand(logger *charmlog.Logger, tl *core.TLayer4, cmd string) {
	switch {
	case cmd == "status":
		logger.Info("status", "state", tl.State(), "partner", tl.ConnectedTo())
	case cmd == "counters":
		snap := tl.Counters.Snapshot()
		logger.Info("counters", "telegrams", snap.TelegramCount, "disconnects", snap.DisconnectCount,
			"repeated", snap.RepeatedTelegramCount, "repeated_ignored", snap.RepeatedIgnoredTelegramCount,
			"repeated_tack", snap.RepeatedTAckCount)
	case strings.HasPrefix(cmd, "send "):
		payload := []byte(strings.TrimPrefix(cmd, "send "))
		if !tl.RequestSend(payload) {
			logger.Warn("send rejected: no open connection or buffer free")
		}
	case cmd == "":
		// ignore blank lines
	default:
		logger.Warn("unknown command", "cmd", cmd)
	}
}
