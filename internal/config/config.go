package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
)

// Config holds the settings shared by the pass binaries.
type Config struct {
	// HTTPAddress is the listen address of the HTTP endpoint.
	HTTPAddress string `yaml:"http_addr,omitempty"`
	// GRPCAddress is the gRPC listen address for the server and the dial
	// address for the client.
	GRPCAddress string `yaml:"grpc_addr,omitempty"`
	// Timeout bounds a single request on both sides.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level,omitempty"`
	// RequestLogLevel is the zap level of per-request loggers on the server.
	// Empty means the same as LogLevel.
	RequestLogLevel string `yaml:"request_log_level,omitempty"`
	// LogFormat is either console or json.
	LogFormat string `yaml:"log_format,omitempty"`
	// TemplateDir overrides the embedded template when set.
	TemplateDir string `yaml:"template_dir,omitempty"`
	// VerifySignature makes the builder check each signature it produces.
	VerifySignature bool `yaml:"verify_signature"`
	// AllowedOrigins lists CORS origins; empty allows any.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	// TrustChain locates the signing material.
	TrustChain TrustChain `yaml:"trust_chain"`
	// Descriptor replaces the default pass template when set.
	Descriptor *pass.Descriptor `yaml:"descriptor,omitempty"`
}

// TrustChain points at the PEM files of the signing identity. Inline PEM
// comes from the environment only and is never written back to disk.
type TrustChain struct {
	// IntermediateCertificateFile is the WWDR intermediate certificate.
	IntermediateCertificateFile string `yaml:"intermediate_certificate_file,omitempty"`
	// CertificateFile is the pass signer certificate.
	CertificateFile string `yaml:"certificate_file,omitempty"`
	// PrivateKeyFile is the signer private key.
	PrivateKeyFile string `yaml:"private_key_file,omitempty"`

	intermediateCertificatePEM []byte
	certificatePEM             []byte
	privateKeyPEM              []byte
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "mobile-barcode-pass.yaml"

	// DefaultTimeout is the default duration for a single request.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Environment variables recognized by Load.
const (
	EnvPort                    = "MBP_PORT"
	EnvIntermediateCertificate = "MBP_APPLE_WWDR_CERTIFICATE"
	EnvCertificate             = "MBP_CERTIFICATE"
	EnvPrivateKey              = "MBP_PRIVATE_KEY"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errListenerRequired is returned when the server has nothing to listen on.
	errListenerRequired = errors.New("http or grpc address must be provided")
	// errServerSocketRequired is returned when the client has no server address.
	errServerSocketRequired = errors.New("server address must be provided")
	// errTrustChainRequired is returned when part of the signing material is missing.
	errTrustChainRequired = errors.New("trust chain is incomplete")
	// errInvalidPort is returned for a malformed MBP_PORT.
	errInvalidPort = errors.New("invalid port")
	// errUnknownLogFormat is returned for a log format other than console or json.
	errUnknownLogFormat = errors.New("unknown log format")
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads settings from path, applies environment overrides and
// validates the result. An empty path means the default file, which may be
// absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment source.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	optional := path == ""
	if optional {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
		// Environment only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = ApplyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overlays MBP_* variables onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if port, ok := lookup(EnvPort); ok && port != "" {
		number, err := strconv.Atoi(port)
		if err != nil || number < 0 || number > 65535 {
			return fmt.Errorf("%w %q in %s", errInvalidPort, port, EnvPort)
		}

		cfg.HTTPAddress = ":" + port
	}

	if pem, ok := lookup(EnvIntermediateCertificate); ok && pem != "" {
		cfg.TrustChain.intermediateCertificatePEM = []byte(pem)
	}

	if pem, ok := lookup(EnvCertificate); ok && pem != "" {
		cfg.TrustChain.certificatePEM = []byte(pem)
	}

	if pem, ok := lookup(EnvPrivateKey); ok && pem != "" {
		cfg.TrustChain.privateKeyPEM = []byte(pem)
	}

	return nil
}

// Save writes settings to the provided path. Inline PEM is not written.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for formatting and fills defaults.
// Which addresses are required depends on the binary, see RequireListener
// and RequireServerAddress.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	for _, address := range []string{settings.HTTPAddress, settings.GRPCAddress} {
		if address == "" {
			continue
		}

		if _, err := net.ResolveTCPAddr("tcp", address); err != nil {
			return fmt.Errorf("invalid server socket: %w", err)
		}
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}

	if settings.RequestLogLevel != "" {
		if _, ok := logger.ParseLogLevel(settings.RequestLogLevel); !ok {
			return fmt.Errorf("invalid request log level %q", settings.RequestLogLevel)
		}
	}

	switch strings.ToLower(settings.LogFormat) {
	case "":
		settings.LogFormat = logger.FormatConsole
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("%w %q", errUnknownLogFormat, settings.LogFormat)
	}

	if settings.Descriptor != nil {
		if err := settings.Descriptor.Validate(); err != nil {
			return fmt.Errorf("invalid descriptor: %w", err)
		}
	}

	return nil
}

// RequireListener checks that the server has at least one address.
func RequireListener(settings *Config) error {
	if settings.HTTPAddress == "" && settings.GRPCAddress == "" {
		return errListenerRequired
	}

	return nil
}

// RequireServerAddress checks that the client knows where to dial.
func RequireServerAddress(settings *Config) error {
	if settings.GRPCAddress == "" {
		return errServerSocketRequired
	}

	return nil
}

// PassDescriptor returns the configured template or the default one.
func (c *Config) PassDescriptor() pass.Descriptor {
	if c.Descriptor != nil {
		return *c.Descriptor
	}

	return pass.DefaultDescriptor()
}

// Read returns the intermediate certificate, the signer certificate and
// the private key as PEM, preferring inline values over files. Errors name
// the missing input but never include its contents.
func (t *TrustChain) Read() (intermediate, certificate, key []byte, err error) {
	if intermediate, err = readPEM("intermediate certificate", t.intermediateCertificatePEM,
		t.IntermediateCertificateFile, EnvIntermediateCertificate); err != nil {
		return nil, nil, nil, err
	}

	if certificate, err = readPEM("certificate", t.certificatePEM, t.CertificateFile, EnvCertificate); err != nil {
		return nil, nil, nil, err
	}

	if key, err = readPEM("private key", t.privateKeyPEM, t.PrivateKeyFile, EnvPrivateKey); err != nil {
		return nil, nil, nil, err
	}

	return intermediate, certificate, key, nil
}

// readPEM picks inline material first, then the file.
func readPEM(what string, inline []byte, file, env string) ([]byte, error) {
	if len(inline) > 0 {
		return inline, nil
	}

	if file == "" {
		return nil, fmt.Errorf("%w: %s is not set (file or %s)", errTrustChainRequired, what, env)
	}

	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}

	return data, nil
}
