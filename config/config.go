// Package config assembles the application from flags, environment
// variables and an optional .env file.
package config

import (
	"flag"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"go.uber.org/zap"

	"github.com/pepemanager/imageapi"
	"github.com/pepemanager/imageapi/codec"
	"github.com/pepemanager/imageapi/compose"
	"github.com/pepemanager/imageapi/fetcher/httpfetcher"
	"github.com/pepemanager/imageapi/metrics/prometheusmetrics"
	"github.com/pepemanager/imageapi/server"
)

// CreateServer parses configuration and assembles the HTTP server with
// the full pipeline wired in
func CreateServer(args []string) (srv *server.Server) {
	var (
		fs     = flag.NewFlagSet("imageapi", flag.ExitOnError)
		logger *zap.Logger
		err    error

		debug        = fs.Bool("debug", false, "Debug mode")
		version      = fs.Bool("version", false, "imageapi version")
		port         = fs.Int("port", 8000, "Server port")
		environment  = fs.String("environment", "development", "Runtime environment, development or production")
		goMaxProcess = fs.Int("gomaxprocs", 0, "GOMAXPROCS")

		_ = fs.String("config", ".env", "Retrieve configuration from the given file")

		allowedOrigins = fs.String("allowed-origins", "pepe-is.life,*.pepe-is.life,pepemanager.com,*.pepemanager.com",
			"Comma separated origin host patterns permitted to call the API. Ignored in development, which allows any origin")
		cdnHosts = fs.String("cdn-hosts", "cdn.discordapp.com,media.discordapp.net",
			"Comma separated host patterns avatars may be fetched from")
		fetchTimeout = fs.Duration("fetch-timeout", time.Second*10,
			"Timeout for fetching the avatar from the CDN, should be smaller than request-timeout")
		requestTimeout = fs.Duration("request-timeout", time.Second*30,
			"Timeout for performing the whole composite request")
		maxAllowedSize = fs.Int("max-allowed-size", 20*1024*1024,
			"Maximum fetched avatar payload size in bytes")
		maxResolution = fs.Int("max-resolution", 4096*4096,
			"Maximum decoded avatar pixel count, rejects decompression bombs")
		processConcurrency = fs.Int64("process-concurrency", -1,
			"Semaphore size for pipeline concurrency control. Set -1 for no limit")
		jpegQuality = fs.Int("jpeg-quality", 95,
			"Quality for jpeg output requested via URL extension")

		serverAccessLog  = fs.Bool("server-access-log", false, "Enable server access log")
		serverPathPrefix = fs.String("server-path-prefix", "", "Server path prefix")

		metricsPort = fs.Int("metrics-port", 0,
			"Prometheus metrics port. 0 disables the metrics listener")
		metricsPath = fs.String("metrics-path", "/metrics", "Prometheus metrics path")

		sentryDSN = fs.String("sentry-dsn", "", "Sentry DSN for error reporting")
	)

	if err = ff.Parse(fs, args,
		ff.WithEnvVars(),
		ff.WithConfigFileFlag("config"),
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
		ff.WithConfigFileParser(ff.EnvParser),
	); err != nil {
		panic(err)
	}

	if *version {
		fmt.Println(imageapi.Version)
		return
	}

	if *debug {
		if logger, err = zap.NewDevelopment(); err != nil {
			panic(err)
		}
	} else {
		if logger, err = zap.NewProduction(); err != nil {
			panic(err)
		}
	}
	if *sentryDSN != "" {
		logger = attachSentry(logger, *sentryDSN)
	}

	if *goMaxProcess > 0 {
		logger.Debug("GOMAXPROCS", zap.Int("count", *goMaxProcess))
		runtime.GOMAXPROCS(*goMaxProcess)
	}

	production := strings.ToLower(*environment) == "production"
	address := "127.0.0.1"
	if production {
		address = "0.0.0.0"
	}

	registry, err := compose.DefaultRegistry()
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}

	decoder := codec.NewDecoder()
	decoder.MaxResolution = *maxResolution
	encoder := codec.NewEncoder()
	encoder.JPEGQuality = *jpegQuality

	var metrics imageapi.Metrics
	var metricsServer *prometheusmetrics.Server
	if *metricsPort > 0 {
		metricsServer = prometheusmetrics.New(
			prometheusmetrics.WithPort(*metricsPort),
			prometheusmetrics.WithPath(*metricsPath),
			prometheusmetrics.WithLogger(logger),
		)
		metrics = metricsServer.Metrics
	}

	app := imageapi.New(
		imageapi.WithFetcher(httpfetcher.New(
			httpfetcher.WithAllowedHosts(*cdnHosts),
			httpfetcher.WithMaxAllowedSize(*maxAllowedSize),
			httpfetcher.WithTimeout(*fetchTimeout),
		)),
		imageapi.WithDecoder(decoder),
		imageapi.WithEncoder(encoder),
		imageapi.WithCompositor(registry),
		imageapi.WithAllowedOrigins(splitCSV(*allowedOrigins)...),
		imageapi.WithDevelopment(!production),
		imageapi.WithRequestTimeout(*requestTimeout),
		imageapi.WithProcessConcurrency(*processConcurrency),
		imageapi.WithMetrics(metrics),
		imageapi.WithLogger(logger),
		imageapi.WithDebug(*debug),
	)

	if metricsServer != nil {
		metricsServer.Run()
	}

	return server.New(app,
		server.WithAddress(address),
		server.WithPort(*port),
		server.WithPathPrefix(*serverPathPrefix),
		server.WithCORS(true),
		server.WithAccessLog(*serverAccessLog),
		server.WithLogger(logger),
		server.WithDebug(*debug),
	)
}

func splitCSV(raw string) (out []string) {
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return
}
