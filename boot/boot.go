// Package boot handles the common startup and shutdown concerns of a
// service: flag parsing with environment variable fallback, log setup,
// metrics, and termination signals.
package boot

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers management server handlers
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samuel/go-metrics/metrics"
	"github.com/samuel/go-metrics/reporter"

	"github.com/mzansicare/backend/environment"
	"github.com/mzansicare/backend/libs/golog"
)

// Service holds the state initialized by InitService.
type Service struct {
	Name            string
	MetricsRegistry metrics.Registry

	flags struct {
		debug           bool
		env             string
		managementAddr  string
		jsonLogs        bool
		libratoUsername string
		libratoToken    string
	}
}

// InitService should be called at the start of a service. It registers and
// parses the common flags, configures logging, starts the management
// server, and returns the service scoped metrics registry.
func InitService(name string) *Service {
	svc := &Service{Name: name}
	flag.BoolVar(&svc.flags.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&svc.flags.env, "env", "", "Execution environment")
	flag.StringVar(&svc.flags.managementAddr, "management_addr", ":9000", "`host:port` of management HTTP server")
	flag.BoolVar(&svc.flags.jsonLogs, "json_logs", false, "Enable JSON formatted logs")
	flag.StringVar(&svc.flags.libratoUsername, "librato_username", "", "Librato metrics username")
	flag.StringVar(&svc.flags.libratoToken, "librato_token", "", "Librato metrics auth `token`")

	ParseFlags(strings.ToUpper(name) + "_")

	if svc.flags.env == "" {
		golog.Fatalf("-env flag required")
	}
	environment.SetCurrent(svc.flags.env)

	if svc.flags.jsonLogs {
		golog.Default().SetHandler(golog.WriterHandler(os.Stderr, golog.JSONFormatter()))
	}
	if svc.flags.debug {
		golog.Default().SetLevel(golog.DEBUG)
	}

	http.Handle("/health-check", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	go func() {
		golog.Fatalf("boot: management server: %s", http.ListenAndServe(svc.flags.managementAddr, nil))
	}()

	registry := metrics.NewRegistry()
	registry.Add("runtime", metrics.RuntimeMetrics)
	svc.MetricsRegistry = registry.Scope("svc." + name)

	if svc.flags.libratoUsername != "" && svc.flags.libratoToken != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		source := fmt.Sprintf("%s-%s-%s", svc.flags.env, name, hostname)
		statsReporter := reporter.NewLibratoReporter(
			registry, time.Minute, true, svc.flags.libratoUsername, svc.flags.libratoToken, source)
		statsReporter.Start()
	}

	return svc
}

// ParseFlags parses flags from the command line and then fills any that
// were not provided from environment variables named by upper-casing the
// flag name, replacing '.' with '_', and prepending the prefix.
func ParseFlags(prefix string) {
	flag.Parse()
	set := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = struct{}{}
	})
	flag.VisitAll(func(f *flag.Flag) {
		if _, ok := set[f.Name]; ok {
			return
		}
		name := prefix + strings.ToUpper(strings.Replace(f.Name, ".", "_", -1))
		if v := os.Getenv(name); v != "" {
			if err := flag.Set(f.Name, v); err != nil {
				golog.Fatalf("boot: invalid value for %s: %s", name, err)
			}
		}
	})
}

// WaitForTermination blocks until an INT or TERM signal is received.
func WaitForTermination() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	golog.Infof("Quitting due to signal %s", sig.String())
}
