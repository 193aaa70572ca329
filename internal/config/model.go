// internal/config/model.go
//
// Typed configuration model for docschema.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                             – dotenv values,
//   • `conf/global.yaml`                          – primary static file,
//   • `DOCSCHEMA_`-prefixed environment overrides – highest precedence.
//
// Secret-bearing strings may hold a `vault:<mount/path>#<key>` reference.
// `ResolveSecrets` swaps those for the plain value after unmarshal, so the
// rest of the process never sees a Vault URI.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr  string `koanf:"listen_addr"  validate:"required,hostname_port"`
	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,hostname_port"`
	ForceHTTPS  bool   `koanf:"force_https"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The DSN stays in YAML so operators can tweak host, port, or flags.  The
// password is kept separate, usually as a Vault reference, and injected into
// the parsed DSN at connect time.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required,dsn"`
	Password string `koanf:"password" validate:"omitempty,secretref"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

//
// Schema section
//

// Schema controls how the record-type registry is built.
type Schema struct {
	Dir                 string `koanf:"dir"`                   // extra *.yaml definitions, optional
	RejectUnknownFields bool   `koanf:"reject_unknown_fields"` // report undeclared keys
}

//
// GeoIP section
//

// GeoIP points at an optional GeoLite2-City database for request logs.
type GeoIP struct {
	DBPath string `koanf:"db_path" validate:"omitempty,file"`
}

//
// Log section
//

// Log tunes the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // DOCSCHEMA_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Schema   Schema   `koanf:"schema"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
