package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// SSL modes understood by libpq and pgx.
const (
	SSLDisable    = "disable"
	SSLAllow      = "allow"
	SSLPrefer     = "prefer"
	SSLRequire    = "require"
	SSLVerifyCA   = "verify-ca"
	SSLVerifyFull = "verify-full"
)

// ConnectionInfo is the connection form submitted by the viewer.
type ConnectionInfo struct {
	Host     string  `json:"host" validate:"required"`
	Port     int     `json:"port" validate:"required,min=1,max=65535"`
	Database string  `json:"database" validate:"required"`
	Graph    string  `json:"graph" validate:"required_unless=Flavor NEO4J"`
	User     string  `json:"user" validate:"required"`
	Password string  `json:"password,omitempty"`
	Flavor   Flavor  `json:"flavor" validate:"required,oneof=AGE AGENS NEO4J"`
	SSLMode  string  `json:"sslmode,omitempty" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	CA       CertRef `json:"ca,omitempty"`
	Cert     CertRef `json:"cert,omitempty"`
	Key      CertRef `json:"key,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func connectionValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize trims the free-text fields, upper-cases the flavor and
// defaults the SSL mode to disable.
func (c ConnectionInfo) Normalize() ConnectionInfo {
	c.Host = strings.TrimSpace(c.Host)
	c.Database = strings.TrimSpace(c.Database)
	c.Graph = strings.TrimSpace(c.Graph)
	c.User = strings.TrimSpace(c.User)
	if f, err := ParseFlavor(string(c.Flavor)); err == nil {
		c.Flavor = f
	} else {
		c.Flavor = Flavor(strings.ToUpper(strings.TrimSpace(string(c.Flavor))))
	}
	c.SSLMode = strings.ToLower(strings.TrimSpace(c.SSLMode))
	if c.SSLMode == "" {
		c.SSLMode = SSLDisable
	}
	return c
}

// Validate reports whether the configuration is complete enough for a
// connection attempt. All failures wrap ErrInvalidConnection.
func (c ConnectionInfo) Validate() error {
	if c.Flavor == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConnection, ErrFlavorRequired)
	}
	err := connectionValidator().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConnection, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConnection, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_unless":
		return fe.Field() + " is required"
	case "oneof":
		if fe.Field() == "flavor" {
			return fmt.Sprintf("unknown flavor %v", fe.Value())
		}
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s %v is out of range", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// ConnString renders a postgres URL for pgx. Certificate references must
// already be resolved to file paths.
func (c ConnectionInfo) ConnString() string {
	q := url.Values{}
	mode := c.SSLMode
	if mode == "" {
		mode = SSLDisable
	}
	q.Set("sslmode", mode)
	if c.CA != "" {
		q.Set("sslrootcert", string(c.CA))
	}
	if c.Cert != "" {
		q.Set("sslcert", string(c.Cert))
	}
	if c.Key != "" {
		q.Set("sslkey", string(c.Key))
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	switch {
	case c.User != "" && c.Password != "":
		u.User = url.UserPassword(c.User, c.Password)
	case c.User != "":
		u.User = url.User(c.User)
	}
	return u.String()
}

// Public strips secrets and server-side file paths.
func (c ConnectionInfo) Public() ConnectionInfo {
	c.Password = ""
	c.CA, c.Cert, c.Key = "", "", ""
	return c
}

// LogValue keeps the password out of log records.
func (c ConnectionInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", c.Host),
		slog.Int("port", c.Port),
		slog.String("database", c.Database),
		slog.String("graph", c.Graph),
		slog.String("user", c.User),
		slog.String("flavor", string(c.Flavor)),
		slog.String("sslmode", c.SSLMode),
	)
}

// CertRef names an uploaded certificate file. The viewer's upload widget
// posts the whole widget state, so the decoder also accepts
// {"file": {"response": {"key": "..."}}}.
type CertRef string

func (r *CertRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = CertRef(s)
		return nil
	}

	var widget struct {
		File *struct {
			Response *struct {
				Key string `json:"key"`
			} `json:"response"`
		} `json:"file"`
	}
	if err := json.Unmarshal(data, &widget); err != nil {
		return fmt.Errorf("certificate reference: %w", err)
	}
	*r = ""
	if widget.File != nil && widget.File.Response != nil {
		*r = CertRef(widget.File.Response.Key)
	}
	return nil
}
