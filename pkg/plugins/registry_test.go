package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tagPlugin appends its name to the "trail" attribute so that ordering is observable
type tagPlugin struct {
	md           Metadata
	configureErr error
	configured   Config
}

var _ BulkTransformer = (*tagPlugin)(nil)
var _ IndividualTransformer = (*tagPlugin)(nil)

func (p *tagPlugin) Metadata() Metadata { return p.md }

func (p *tagPlugin) Configure(config Config) error {
	p.configured = config
	return p.configureErr
}

func (p *tagPlugin) TransformAll(ctx context.Context, issues []diagnostics.Issue) []diagnostics.Issue {
	out := make([]diagnostics.Issue, 0, len(issues))
	for _, is := range issues {
		out = append(out, p.Transform(ctx, is))
	}
	return out
}

func (p *tagPlugin) Transform(_ context.Context, issue diagnostics.Issue) diagnostics.Issue {
	issue = issue.Clone()
	issue["trail"] = issue.String("trail") + "/" + p.md.Name
	return issue
}

// bulkOnly declares Individual but only implements the bulk interface
type bulkOnly struct{ tagPlugin }

func (b *bulkOnly) Transform() {}

func reg(name string, kind Kind) Registration {
	return Registration{Name: name, Factory: func() Plugin {
		return &tagPlugin{md: Metadata{Name: name, Kind: kind, Version: "1.0.0"}}
	}}
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry("1.2.0", zap.NewNop().Sugar())
	require.NoError(t, err)
	return r
}

func TestNewRegistryRejectsBadVersion(t *testing.T) {
	_, err := NewRegistry("not-a-version", zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestLoadAllPreservesOrderPerKind(t *testing.T) {
	r := newRegistry(t)
	catalog := []Registration{
		reg("b1", Bulk),
		reg("i1", Individual),
		reg("b2", Bulk),
		reg("i2", Individual),
		reg("unused", Bulk),
	}

	errs := r.LoadAll(catalog, map[string]map[string]interface{}{
		"i2": {}, "b2": {}, "i1": {"k": "v"}, "b1": nil,
	})
	assert.Empty(t, errs)

	bulk := r.BulkPlugins()
	require.Len(t, bulk, 2)
	assert.Equal(t, "b1", bulk[0].Metadata().Name)
	assert.Equal(t, "b2", bulk[1].Metadata().Name)

	individual := r.IndividualPlugins()
	require.Len(t, individual, 2)
	assert.Equal(t, "i1", individual[0].Metadata().Name)
	assert.Equal(t, "i2", individual[1].Metadata().Name)
	assert.Equal(t, Config{"k": "v"}, individual[0].(*tagPlugin).configured)

	assert.Len(t, r.Loaded(), 4)
}

func TestLoadFailuresAreIsolated(t *testing.T) {
	r := newRegistry(t)
	catalog := []Registration{
		reg("good", Bulk),
		{Name: "panics", Factory: func() Plugin { panic("boom") }},
		{Name: "nil", Factory: func() Plugin { return nil }},
		{Name: "bad-config", Factory: func() Plugin {
			return &tagPlugin{md: Metadata{Name: "bad-config", Kind: Bulk}, configureErr: errors.New("missing url")}
		}},
		{Name: "too-new", Factory: func() Plugin {
			return &tagPlugin{md: Metadata{Name: "too-new", Kind: Bulk, DroneVersion: ">= 2.0.0"}}
		}},
		{Name: "bad-constraint", Factory: func() Plugin {
			return &tagPlugin{md: Metadata{Name: "bad-constraint", Kind: Bulk, DroneVersion: "banana"}}
		}},
		{Name: "misnamed", Factory: func() Plugin {
			return &tagPlugin{md: Metadata{Name: "other", Kind: Bulk}}
		}},
		{Name: "wrong-kind", Factory: func() Plugin {
			return &bulkOnly{tagPlugin{md: Metadata{Name: "wrong-kind", Kind: Individual}}}
		}},
		reg("also-good", Individual),
	}
	sections := map[string]map[string]interface{}{}
	for _, c := range catalog {
		sections[c.Name] = map[string]interface{}{}
	}
	sections["not-in-catalog"] = map[string]interface{}{}

	errs := r.LoadAll(catalog, sections)
	assert.Len(t, errs, 8)
	for _, err := range errs {
		assert.True(t, errors.Is(err, ErrLoadFailure), err.Error())
		var le *LoadError
		assert.True(t, errors.As(err, &le))
	}

	require.Len(t, r.BulkPlugins(), 1)
	assert.Equal(t, "good", r.BulkPlugins()[0].Metadata().Name)
	require.Len(t, r.IndividualPlugins(), 1)
	assert.Equal(t, "also-good", r.IndividualPlugins()[0].Metadata().Name)
}

func TestCompatibleVersionConstraintLoads(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Load(Registration{Name: "ok", Factory: func() Plugin {
		return &tagPlugin{md: Metadata{Name: "ok", Kind: Bulk, DroneVersion: ">= 1.0.0, < 2.0.0"}}
	}}, nil)
	assert.NoError(t, err)
}

func TestDuplicateNameRejected(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Load(reg("dup", Bulk), nil)
	require.NoError(t, err)
	_, err = r.Load(reg("dup", Bulk), nil)
	assert.True(t, errors.Is(err, ErrLoadFailure))
	assert.Len(t, r.BulkPlugins(), 1)
}

func TestApply(t *testing.T) {
	r := newRegistry(t)
	r.LoadAll([]Registration{reg("b1", Bulk), reg("b2", Bulk), reg("i1", Individual), reg("i2", Individual)},
		map[string]map[string]interface{}{"b1": {}, "b2": {}, "i1": {}, "i2": {}})

	ctx := context.Background()
	issues := ApplyBulk(ctx, r.BulkPlugins(), []diagnostics.Issue{{}, {}})
	require.Len(t, issues, 2)
	out := ApplyIndividual(ctx, r.IndividualPlugins(), issues[0])
	assert.Equal(t, "/b1/b2/i1/i2", out.String("trail"))

	assert.NotNil(t, ApplyBulk(ctx, nil, nil))
}

func TestConfigDecode(t *testing.T) {
	var target struct {
		URL     string   `yaml:"url"`
		Timeout int      `yaml:"timeout"`
		Names   []string `yaml:"names"`
	}
	require.NoError(t, Config{"url": "http://x", "timeout": 3, "names": []interface{}{"a", "b"}}.Decode(&target))
	assert.Equal(t, "http://x", target.URL)
	assert.Equal(t, 3, target.Timeout)
	assert.Equal(t, []string{"a", "b"}, target.Names)

	assert.Error(t, Config{"unknown": true}.Decode(&target))
	assert.NoError(t, Config{}.Decode(&target))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Bulk", Bulk.String())
	assert.Equal(t, "Individual", Individual.String())
	assert.Equal(t, "Unknown", Kind(9).String())
}

func TestTransformHandler(t *testing.T) {
	handler := NewTransformHandler(&tagPlugin{md: Metadata{Name: "svc", Kind: Bulk}}, zap.NewNop().Sugar())
	srv := httptest.NewServer(handler)
	defer srv.Close()

	body, err := json.Marshal(TransformRequest{Issues: []diagnostics.Issue{{"line": 3}}})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+TransformPath, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []diagnostics.Issue
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "/svc", out[0].String("trail"))

	resp, err = http.Post(srv.URL+TransformPath, "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + TransformPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
