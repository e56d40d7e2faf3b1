package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "FUNDWISE_"

type Application struct {
	Host       string     `koanf:"host"`
	Server     Server     `koanf:"server"`
	Frontend   Frontend   `koanf:"frontend"`
	Database   Database   `koanf:"db"`
	PubSub     PubSub     `koanf:"pubsub"`
	HttpClient HttpClient `koanf:"httpclient"`
	Telemetry  Telemetry  `koanf:"telemetry"`
	Rates      Rates      `koanf:"rates"`
	Live       Live       `koanf:"live"`
	Supervisor Supervisor `koanf:"supervisor"`
}

type Server struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"readtimeout"`
	WriteTimeout    time.Duration `koanf:"writetimeout"`
	IdleTimeout     time.Duration `koanf:"idletimeout"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
}

type Frontend struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type Database struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	User           string        `koanf:"user"`
	Pass           string        `koanf:"pass"`
	Name           string        `koanf:"name"`
	Schema         string        `koanf:"schema"`
	MaxConns       int32         `koanf:"maxconns"`
	MinConns       int32         `koanf:"minconns"`
	HealthInterval time.Duration `koanf:"healthinterval"`
	MaxFailedPings int           `koanf:"maxfailedpings"`
}

type PubSub struct {
	BufferSize int `koanf:"buffersize"`
}

type HttpClient struct {
	Timeout             time.Duration `koanf:"timeout"`
	MaxIdleConns        int           `koanf:"maxidleconns"`
	MaxIdleConnsPerHost int           `koanf:"maxidleconnsperhost"`
	IdleConnTimeout     time.Duration `koanf:"idleconntimeout"`
}

type Telemetry struct {
	ServiceName string        `koanf:"servicename"`
	Interval    time.Duration `koanf:"interval"`
}

type Rates struct {
	BaseURL      string        `koanf:"baseurl"`
	TokenURL     string        `koanf:"tokenurl"`
	ClientId     string        `koanf:"clientid"`
	ClientSecret string        `koanf:"clientsecret"`
	CacheTTL     time.Duration `koanf:"cachettl"`
}

type Live struct {
	KeepAlive time.Duration `koanf:"keepalive"`
}

// Supervisor tunes restart behaviour of the process tree. FailureDecay is in seconds.
type Supervisor struct {
	FailureThreshold float64       `koanf:"failurethreshold"`
	FailureDecay     float64       `koanf:"failuredecay"`
	FailureBackoff   time.Duration `koanf:"failurebackoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdowntimeout"`
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:4000",
		Server: Server{
			Addr:            ":4000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Frontend: Frontend{
			Enabled: true,
			Dir:     "frontend",
		},
		Database: Database{
			Host:           "localhost",
			Port:           5432,
			User:           "fundwise",
			Pass:           "",
			Name:           "fundwise",
			Schema:         "fundwise",
			MaxConns:       10,
			MinConns:       2,
			HealthInterval: 15 * time.Second,
			MaxFailedPings: 3,
		},
		PubSub: PubSub{
			BufferSize: 1024,
		},
		HttpClient: HttpClient{
			Timeout:             10 * time.Second,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Telemetry: Telemetry{
			ServiceName: "fundwise",
			Interval:    time.Minute,
		},
		Rates: Rates{
			BaseURL:  "https://api.frankfurter.app",
			CacheTTL: time.Hour,
		},
		Live: Live{
			KeepAlive: 30 * time.Second,
		},
		Supervisor: Supervisor{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
