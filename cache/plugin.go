package cache

import (
	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
	"github.com/hupe1980/agentpipe/logging"
	"github.com/hupe1980/agentpipe/model"
)

// pendingKeyPrefix namespaces the per-agent pending cache key in the
// invocation values bag, so nested agents do not clobber each other.
const pendingKeyPrefix = "cache:pending:"

// PluginOptions configures the cache plugin.
type PluginOptions struct {
	// Agents restricts caching to the named agents. Empty means all agents.
	Agents []string
	// Logger receives cache diagnostics. Nil means no-op.
	Logger logging.Logger
}

// Plugin wraps model calls with the response cache. On a hit the stored
// text is returned as the model response and the collaborator never runs;
// on a miss the eventual response is stored, unless it requests tools.
//
// Store failures are non-fatal: a failed read is a miss, a failed write is
// logged and ignored. Register this plugin before any plugin that rewrites
// requests in before_model, so cached entries match the rewritten text.
type Plugin struct {
	hook.BasePlugin
	store  Store
	agents map[string]bool
	logger logging.Logger
}

// NewPlugin creates the cache plugin backed by store.
func NewPlugin(store Store, optFns ...func(o *PluginOptions)) *Plugin {
	opts := PluginOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	var agents map[string]bool
	if len(opts.Agents) > 0 {
		agents = make(map[string]bool, len(opts.Agents))
		for _, name := range opts.Agents {
			agents[name] = true
		}
	}
	return &Plugin{
		BasePlugin: hook.NewBasePlugin("response_cache"),
		store:      store,
		agents:     agents,
		logger:     opts.Logger,
	}
}

// WithAgents restricts caching to the named agents.
func WithAgents(names ...string) func(o *PluginOptions) {
	return func(o *PluginOptions) { o.Agents = names }
}

// WithLogger sets the plugin logger.
func WithLogger(logger logging.Logger) func(o *PluginOptions) {
	return func(o *PluginOptions) { o.Logger = logger }
}

func (p *Plugin) enabled(agentName string) bool {
	return p.agents == nil || p.agents[agentName]
}

// BeforeModel checks the cache. A hit short-circuits the model call with a
// synthesized text response; a miss records the key for AfterModel.
func (p *Plugin) BeforeModel(ictx *core.InvocationContext, req *model.Request) (*model.Response, error) {
	if !p.enabled(ictx.AgentName) {
		return nil, nil
	}

	key := Key(req)
	text, ok, err := p.store.Get(ictx.Context, key)
	if err != nil {
		p.logger.Warn("cache read failed, treating as miss: %v", err)
	} else if ok {
		p.logger.Debug("cache hit for agent %s (key %s)", ictx.AgentName, key)
		return model.NewTextResponse(text), nil
	}

	ictx.SetValue(pendingKeyPrefix+ictx.AgentName, key)
	return nil, nil
}

// AfterModel stores the fresh response under the key recorded in
// BeforeModel. Responses carrying function calls are never cached; replaying
// them would skip the tool round-trip they request.
func (p *Plugin) AfterModel(ictx *core.InvocationContext, resp *model.Response) (*model.Response, error) {
	valueKey := pendingKeyPrefix + ictx.AgentName
	v, ok := ictx.Value(valueKey)
	if !ok {
		return nil, nil
	}
	ictx.DeleteValue(valueKey)

	key, ok := v.(string)
	if !ok || resp == nil || resp.HasFunctionCalls() {
		return nil, nil
	}

	if err := p.store.Put(ictx.Context, key, resp.Text()); err != nil {
		p.logger.Warn("cache write failed: %v", err)
	}
	return nil, nil
}
