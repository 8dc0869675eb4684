package graph

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInfo() ConnectionInfo {
	return ConnectionInfo{
		Host:     "localhost",
		Port:     5432,
		Database: "postgres",
		Graph:    "demo",
		User:     "postgres",
		Password: "secret",
		Flavor:   FlavorAGE,
		SSLMode:  SSLDisable,
	}
}

func TestParseFlavor(t *testing.T) {
	f, err := ParseFlavor(" age ")
	require.NoError(t, err)
	assert.Equal(t, FlavorAGE, f)

	_, err = ParseFlavor("")
	assert.ErrorIs(t, err, ErrFlavorRequired)

	_, err = ParseFlavor("mysql")
	assert.EqualError(t, err, "unknown flavor MYSQL")

	assert.True(t, FlavorAGENS.UsesPostgres())
	assert.False(t, FlavorNeo4j.UsesPostgres())
}

func TestFlavor_GraphName(t *testing.T) {
	assert.Equal(t, "mygraph", FlavorAGENS.GraphName("MyGraph"))
	assert.Equal(t, "MyGraph", FlavorAGENS.GraphName(`"MyGraph"`))
	assert.Equal(t, `My"Graph`, FlavorAGENS.GraphName(`"My""Graph"`))
	assert.Equal(t, `"`, FlavorAGENS.GraphName(`"`))
	assert.Equal(t, "MyGraph", FlavorAGE.GraphName("MyGraph"))
	assert.Equal(t, "MyGraph", FlavorNeo4j.GraphName("MyGraph"))
}

func TestConnectionInfo_Validate(t *testing.T) {
	require.NoError(t, validInfo().Validate())

	cases := []struct {
		name    string
		mutate  func(*ConnectionInfo)
		message string
	}{
		{"missing flavor", func(c *ConnectionInfo) { c.Flavor = "" }, "flavor is required"},
		{"unknown flavor", func(c *ConnectionInfo) { c.Flavor = "MYSQL" }, "unknown flavor MYSQL"},
		{"missing host", func(c *ConnectionInfo) { c.Host = "" }, "host is required"},
		{"port out of range", func(c *ConnectionInfo) { c.Port = 70000 }, "port 70000 is out of range"},
		{"missing port", func(c *ConnectionInfo) { c.Port = 0 }, "port is required"},
		{"missing database", func(c *ConnectionInfo) { c.Database = "" }, "database is required"},
		{"missing graph", func(c *ConnectionInfo) { c.Graph = "" }, "graph is required"},
		{"bad sslmode", func(c *ConnectionInfo) { c.SSLMode = "always" }, "sslmode must be one of"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := validInfo()
			tc.mutate(&info)
			err := info.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConnection))
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestConnectionInfo_ValidateNeo4jWithoutGraph(t *testing.T) {
	info := validInfo()
	info.Flavor = FlavorNeo4j
	info.Graph = ""
	assert.NoError(t, info.Validate())
}

func TestConnectionInfo_Normalize(t *testing.T) {
	info := ConnectionInfo{Host: " db ", Flavor: "agens", SSLMode: ""}.Normalize()
	assert.Equal(t, "db", info.Host)
	assert.Equal(t, FlavorAGENS, info.Flavor)
	assert.Equal(t, SSLDisable, info.SSLMode)
}

func TestConnectionInfo_ConnString(t *testing.T) {
	info := validInfo()
	info.Password = "p@ss word"
	info.SSLMode = SSLVerifyFull
	info.CA = "/certs/ca.crt"
	info.Cert = "/certs/client.crt"
	info.Key = "/certs/client.key"

	u, err := url.Parse(info.ConnString())
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/postgres", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)

	q := u.Query()
	assert.Equal(t, "verify-full", q.Get("sslmode"))
	assert.Equal(t, "/certs/ca.crt", q.Get("sslrootcert"))
	assert.Equal(t, "/certs/client.crt", q.Get("sslcert"))
	assert.Equal(t, "/certs/client.key", q.Get("sslkey"))
}

func TestConnectionInfo_Public(t *testing.T) {
	info := validInfo()
	info.CA = "/certs/ca.crt"
	pub := info.Public()
	assert.Empty(t, pub.Password)
	assert.Empty(t, pub.CA)
	assert.Equal(t, info.Host, pub.Host)
}

func TestCertRef_UnmarshalJSON(t *testing.T) {
	var info ConnectionInfo
	payload := `{
		"host": "h", "port": 5432, "flavor": "AGE",
		"ca": "ca-key.crt",
		"cert": {"file": {"response": {"key": "client-key.crt"}}},
		"key": null
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &info))

	assert.Equal(t, CertRef("ca-key.crt"), info.CA)
	assert.Equal(t, CertRef("client-key.crt"), info.Cert)
	assert.Equal(t, CertRef(""), info.Key)
}

func TestGraphID_MarshalJSON(t *testing.T) {
	out, err := json.Marshal([]GraphID{"844424930131969", "3.1", "-2", "+5", "007", "-0"})
	require.NoError(t, err)
	assert.JSONEq(t, `[844424930131969, "3.1", -2, "+5", "007", "-0"]`, string(out))

	out, err = json.Marshal(Vertex{ID: "+5", Label: "Person"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "+5", "label": "Person", "properties": null}`, string(out))
}
