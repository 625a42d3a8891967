package redact

import (
	"fmt"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
	"github.com/hupe1980/agentpipe/logging"
	"github.com/hupe1980/agentpipe/model"
)

// PluginOptions configures the redaction plugin.
type PluginOptions struct {
	// Logger receives redaction diagnostics. Nil means no-op.
	Logger logging.Logger
}

// Plugin sanitizes outbound model requests and restores inbound responses.
// Register it after the cache plugin so cache entries hold tokenized text
// and a hit never exposes a stored sensitive value to the collaborator path.
//
// Sanitization fails closed: if a minted mapping cannot be persisted the
// model call is aborted, because an unrecorded token could never be
// restored. Restoration failures only log; the token stays in the text.
type Plugin struct {
	hook.BasePlugin
	redactor *Redactor
	store    MappingStore
	logger   logging.Logger
}

// NewPlugin creates the redaction plugin backed by store.
func NewPlugin(store MappingStore, optFns ...func(o *PluginOptions)) *Plugin {
	opts := PluginOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Plugin{
		BasePlugin: hook.NewBasePlugin("sensitive_data_redaction"),
		redactor:   NewRedactor(),
		store:      store,
		logger:     opts.Logger,
	}
}

// WithLogger sets the plugin logger.
func WithLogger(logger logging.Logger) func(o *PluginOptions) {
	return func(o *PluginOptions) { o.Logger = logger }
}

func sessionKey(ictx *core.InvocationContext) string {
	return fmt.Sprintf("%s/%s/%s", ictx.AppName, ictx.UserID, ictx.SessionID)
}

// BeforeModel tokenizes sensitive values in every text part of the request,
// in place. The request proceeds unchanged from the chain's perspective
// (nil return), so later before_model hooks still run on the sanitized text.
func (p *Plugin) BeforeModel(ictx *core.InvocationContext, req *model.Request) (*model.Response, error) {
	key := sessionKey(ictx)
	for i := range req.Contents {
		for j, part := range req.Contents[i].Parts {
			tp, ok := part.(core.TextPart)
			if !ok {
				continue
			}
			sanitized, mappings := p.redactor.SanitizeText(tp.Text)
			if len(mappings) == 0 {
				continue
			}
			for token, value := range mappings {
				if err := p.store.Put(ictx.Context, key, token, value); err != nil {
					return nil, fmt.Errorf("persist token mapping: %w", err)
				}
			}
			req.Contents[i].Parts[j] = core.TextPart{Text: sanitized}
			p.logger.Debug("tokenized %d sensitive value(s) for agent %s", len(mappings), ictx.AgentName)
		}
	}
	return nil, nil
}

// AfterModel restores tokens in the response's text parts, in place. A
// mapping read failure leaves the token in the text rather than failing the
// turn.
func (p *Plugin) AfterModel(ictx *core.InvocationContext, resp *model.Response) (*model.Response, error) {
	if resp == nil {
		return nil, nil
	}
	key := sessionKey(ictx)
	for j, part := range resp.Content.Parts {
		tp, ok := part.(core.TextPart)
		if !ok || !ContainsToken(tp.Text) {
			continue
		}
		restored := p.redactor.RestoreText(tp.Text, func(token string) (string, bool) {
			value, found, err := p.store.Get(ictx.Context, key, token)
			if err != nil {
				p.logger.Warn("token mapping read failed for %s: %v", token, err)
				return "", false
			}
			return value, found
		})
		resp.Content.Parts[j] = core.TextPart{Text: restored}
	}
	return nil, nil
}
