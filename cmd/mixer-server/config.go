package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/Bren2010/mixer/crypto/suites"
	"github.com/Bren2010/mixer/pool"
)

// Config specifies the file format of config files.
type Config struct {
	ServerAddr   string     `yaml:"addr"`
	MetricsAddr  string     `yaml:"metrics-addr"`
	DatabaseFile string     `yaml:"database"` // Empty for an in-memory database.
	TLSConfig    *TLSConfig `yaml:"tls"`
	tlsConfig    *tls.Config

	LogLevel  string `yaml:"log-level"`
	LogFormat string `yaml:"log-format"` // "console" or "json".

	APIConfig  *APIConfig  `yaml:"api"`
	PoolConfig *PoolConfig `yaml:"pool"`
}

// TLSConfig specifies the API server's TLS config. TLS on the server also
// starts requiring a valid client certificate.
type TLSConfig struct {
	Cert     string `yaml:"cert"`
	Key      string `yaml:"key"`
	ClientCA string `yaml:"client-ca"` // CA for validating client certificates.
}

type APIConfig struct {
	HomeRedirect string `yaml:"home"`
}

type PoolConfig struct {
	Suite     string `yaml:"suite"`
	suite     suites.Suite
	Amount    uint64 `yaml:"amount"`
	Custodian uint64 `yaml:"custodian"`

	// Genesis is credited to each account when the database is first created.
	Genesis map[uint64]uint64 `yaml:"genesis"`
}

func (pc *PoolConfig) options() []pool.Option {
	return []pool.Option{pool.WithAmount(pc.Amount), pool.WithCustodian(pc.Custodian)}
}

func ReadConfig(filename string) (*Config, error) {
	// Read from file and parse.
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(raw)
}

func ParseConfig(raw []byte) (*Config, error) {
	var parsed Config
	if err := yaml.UnmarshalStrict(raw, &parsed); err != nil {
		return nil, err
	}

	// Check that all required fields are populated.
	if parsed.ServerAddr == "" {
		return nil, fmt.Errorf("field not provided: addr")
	} else if parsed.APIConfig == nil {
		return nil, fmt.Errorf("field not provided: api")
	}
	switch parsed.LogFormat {
	case "", "console", "json":
	default:
		return nil, fmt.Errorf("unknown log format: %v", parsed.LogFormat)
	}

	// Fill in pool defaults.
	if parsed.PoolConfig == nil {
		parsed.PoolConfig = &PoolConfig{}
	}
	pc := parsed.PoolConfig
	suite, err := suites.FromName(pc.Suite)
	if err != nil {
		return nil, err
	}
	pc.suite = suite
	if pc.Amount == 0 {
		pc.Amount = pool.DefaultAmount
	}
	if pc.Custodian == 0 {
		pc.Custodian = pool.DefaultCustodian
	}
	if pc.Genesis == nil {
		pc.Genesis = map[uint64]uint64{pool.DefaultAccount: 10 * pc.Amount}
	}

	// Parse TLS config if necessary.
	if parsed.TLSConfig != nil {
		cert, err := tls.LoadX509KeyPair(parsed.TLSConfig.Cert, parsed.TLSConfig.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate/key: %v", err)
		}

		certPool := x509.NewCertPool()
		caCerts, err := os.ReadFile(parsed.TLSConfig.ClientCA)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS client CA: %v", err)
		} else if ok := certPool.AppendCertsFromPEM(caCerts); !ok {
			return nil, fmt.Errorf("no client CA certificates successfully parsed from file")
		}

		parsed.tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			ClientAuth:   tls.RequireAndVerifyClientCert,
			ClientCAs:    certPool,
		}
	}

	return &parsed, nil
}
