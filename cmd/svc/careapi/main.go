package main

import (
	"context"
	"flag"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/gorilla/mux"
	"github.com/rainycape/memcache"
	"github.com/rs/cors"
	"github.com/samuel/go-metrics/metrics"

	"github.com/mzansicare/backend/boot"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/audit"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/auth"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/handlers"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/notify"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/power"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/triage"
	"github.com/mzansicare/backend/environment"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/dbutil"
	"github.com/mzansicare/backend/libs/golog"
	"github.com/mzansicare/backend/libs/httputil"
	"github.com/mzansicare/backend/libs/mcutil"
	"github.com/mzansicare/backend/libs/worker"
)

var config struct {
	httpAddr string

	// Database
	dbHost     string
	dbPort     int
	dbName     string
	dbUser     string
	dbPassword string
	dbCACert   string

	// Memcached
	mcHosts string

	// AWS
	awsRegion           string
	awsAccessKey        string
	awsSecretKey        string
	awsDynamoDBEndpoint string

	// Alerts
	alertsTopicARN string

	// Triage
	triageRulesPath string

	// Load-shedding
	powerFeedURL      string
	powerFeedSource   string
	powerPollInterval time.Duration

	// CORS
	corsAllowAll bool
}

func init() {
	flag.StringVar(&config.httpAddr, "http", "0.0.0.0:8000", "listen for http on `host:port`")

	// Database
	flag.StringVar(&config.dbHost, "db.host", "localhost", "Database `host`")
	flag.IntVar(&config.dbPort, "db.port", 3306, "Database `port`")
	flag.StringVar(&config.dbName, "db.name", "careapi", "Database `name`")
	flag.StringVar(&config.dbUser, "db.user", "careapi", "Database `username`")
	flag.StringVar(&config.dbPassword, "db.password", "", "Database `password`")
	flag.StringVar(&config.dbCACert, "db.ca.cert", "", "Path to database TLS CA certificate")

	// Memcached
	flag.StringVar(&config.mcHosts, "mc.hosts", "", "Comma separated list of memcached `hosts`")

	// AWS
	flag.StringVar(&config.awsRegion, "aws.region", "af-south-1", "AWS `region`")
	flag.StringVar(&config.awsAccessKey, "aws.access.key", "", "AWS credentials access key")
	flag.StringVar(&config.awsSecretKey, "aws.secret.key", "", "AWS credentials secret key")
	flag.StringVar(&config.awsDynamoDBEndpoint, "aws.dynamodb.endpoint", "", "AWS DynamoDB API `endpoint`")

	// Alerts
	flag.StringVar(&config.alertsTopicARN, "alerts.sns.topic", "", "SNS topic `ARN` for urgent alert push")

	// Triage
	flag.StringVar(&config.triageRulesPath, "triage.rules", "", "`Path` to TOML triage rule table (compiled in rules when empty)")

	// Load-shedding
	flag.StringVar(&config.powerFeedURL, "power.feed.url", "", "Load-shedding status feed `URL`")
	flag.StringVar(&config.powerFeedSource, "power.feed.source", "eskom", "Name of the load-shedding feed")
	flag.DurationVar(&config.powerPollInterval, "power.poll.interval", 5*time.Minute, "Load-shedding poll `interval`")

	// CORS
	flag.BoolVar(&config.corsAllowAll, "cors.allow.all", true, "Enable the * patterns on CORS")
}

func main() {
	svc := boot.InitService("careapi")

	db, err := dbutil.ConnectMySQL(&dbutil.DBConfig{
		Host:     config.dbHost,
		Port:     config.dbPort,
		Name:     config.dbName,
		User:     config.dbUser,
		Password: config.dbPassword,
		CACert:   config.dbCACert,
	})
	if err != nil {
		golog.Fatalf("Failed to connect to database: %s", err)
	}
	dl := dal.New(db)

	var memcacheCli *memcache.Client
	if config.mcHosts != "" {
		var hosts []string
		for _, h := range strings.Split(config.mcHosts, ",") {
			hosts = append(hosts, strings.TrimSpace(h))
		}
		memcacheCli = memcache.NewFromServers(mcutil.NewHRWServer(hosts))
	}

	awsSession, err := session.NewSession(awsConfig())
	if err != nil {
		golog.Fatalf("Failed to create AWS session: %s", err)
	}

	var auditDAL audit.DAL
	auditDAL = audit.NewMemoryDAL()
	if !environment.IsDev() {
		dynamoConfig := awsConfig()
		if config.awsDynamoDBEndpoint != "" {
			dynamoConfig.Endpoint = &config.awsDynamoDBEndpoint
		}
		auditDAL, err = audit.NewDynamoDBDAL(dynamodb.New(awsSession, dynamoConfig), environment.GetCurrent())
		if err != nil {
			golog.Fatalf("Failed to init audit DynamoDB DAL: %s", err)
		}
	}
	auditLog := audit.NewLogger(auditDAL, nil)

	var mcClient auth.MemcacheClient
	if memcacheCli != nil {
		mcClient = memcacheCli
	}
	authSvc := auth.New(dl, mcClient, nil)

	rules := triage.DefaultRules
	if config.triageRulesPath != "" {
		if rules, err = triage.LoadRules(config.triageRulesPath); err != nil {
			golog.Fatalf("Failed to load triage rules: %s", err)
		}
	}
	triageEngine, err := triage.NewEngine(rules)
	if err != nil {
		golog.Fatalf("Failed to init triage engine: %s", err)
	}

	publisher := notify.NewPublisher(sns.New(awsSession), config.alertsTopicARN,
		svc.MetricsRegistry.Scope("notify"))

	powerMonitor := power.NewMonitor(dl, config.powerFeedURL, config.powerFeedSource, nil,
		svc.MetricsRegistry.Scope("power"))

	workers := &worker.Collection{}
	workers.AddWorker(authSvc.CleanupWorker(time.Hour))
	if config.powerFeedURL != "" {
		workers.AddWorker(powerMonitor.Worker(config.powerPollInterval))
	} else {
		golog.Warningf("No load-shedding feed URL configured, power status will be unavailable")
	}
	workers.Start()
	defer workers.Stop(time.Second * 5)

	handler := setupRouter(dl, authSvc, auditDAL, auditLog, triageEngine, publisher, powerMonitor, svc.MetricsRegistry)

	go func() {
		s := &http.Server{
			Addr:           config.httpAddr,
			Handler:        handler,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		golog.Infof("Starting listener on %s...", config.httpAddr)
		golog.Fatalf(s.ListenAndServe().Error())
	}()

	boot.WaitForTermination()
}

func awsConfig() *aws.Config {
	cfg := &aws.Config{Region: &config.awsRegion}
	if config.awsAccessKey != "" && config.awsSecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(config.awsAccessKey, config.awsSecretKey, "")
	}
	return cfg
}

func setupRouter(
	dl dal.DAL,
	authSvc *auth.Service,
	auditDAL audit.DAL,
	auditLog *audit.Logger,
	triageEngine *triage.Engine,
	publisher *notify.Publisher,
	powerMonitor *power.Monitor,
	metricsRegistry metrics.Registry,
) http.Handler {
	clk := clock.New()
	router := mux.NewRouter().StrictSlash(true)

	authed := func(h http.Handler) http.Handler {
		return handlers.AuthRequired(h, authSvc)
	}

	router.Handle("/auth/signup", handlers.NewSignUp(authSvc, auditLog))
	router.Handle("/auth/login", handlers.NewLogin(authSvc, auditLog))
	router.Handle("/auth/logout", authed(handlers.NewLogout(authSvc, auditLog)))
	router.Handle("/auth/verify", authed(handlers.NewVerify(authSvc, auditLog)))
	router.Handle("/auth/password_reset", handlers.NewPasswordReset(authSvc, auditLog))
	router.Handle("/auth/password_reset/confirm", handlers.NewPasswordResetConfirm(authSvc, auditLog))

	router.Handle("/patients", authed(handlers.NewPatients(dl, auditLog)))
	router.Handle("/patients/{id}", authed(handlers.NewPatient(dl, auditLog)))

	router.Handle("/alerts", authed(handlers.NewAlerts(dl, publisher, auditLog)))
	router.Handle("/alerts/{id}/ack", authed(handlers.NewAlertAck(dl, auditLog, clk)))

	router.Handle("/sessions", authed(handlers.NewSessions(dl, auditLog, clk)))
	router.Handle("/sessions/{id}/status", authed(handlers.NewSessionStatus(dl, auditLog)))
	router.Handle("/sessions/{id}/reschedule", authed(handlers.NewSessionReschedule(dl, auditLog, clk)))

	router.Handle("/triage/assess", authed(handlers.NewTriage(triageEngine, auditLog)))

	router.Handle("/power/status", authed(handlers.NewPowerStatus(powerMonitor)))
	router.Handle("/power/history", authed(handlers.NewPowerHistory(powerMonitor)))

	router.Handle("/compliance/summary", authed(handlers.NewComplianceSummary(auditDAL, auditLog, clk)))

	requestLogger := func(ctx context.Context, ev *httputil.RequestEvent) {
		log := golog.Context(
			"Method", ev.Request.Method,
			"URL", ev.URL.String(),
			"UserAgent", ev.Request.UserAgent(),
			"RequestID", httputil.RequestID(ctx),
			"RemoteAddr", ev.RemoteAddr,
			"StatusCode", ev.StatusCode,
		)
		if ev.Panic != nil {
			log.Criticalf("http: panic: %v\n%s", ev.Panic, ev.StackTrace)
		} else {
			log.Infof("careapi-request")
		}
	}

	h := httputil.LoggingHandler(router, requestLogger)
	h = httputil.MetricsHandler(h, metricsRegistry.Scope("api"))
	h = httputil.RequestIDHandler(h)

	if config.corsAllowAll {
		h = cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{httputil.Delete, httputil.Get, httputil.Options, httputil.Patch, httputil.Post, httputil.Put},
			AllowCredentials: true,
			AllowedHeaders:   []string{"*"},
		}).Handler(h)
	}
	return h
}
