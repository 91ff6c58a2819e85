package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/logger"
	"github.com/wrenlabs/popsign/metrics"
	"github.com/wrenlabs/popsign/ports"
)

// TemplateData is what a sign-in message template is rendered from.
type TemplateData struct {
	AppName string
	Nonce   string
	Origin  string
	ChainID uint64
}

// MessageTemplate renders the sign-in message the user is asked to sign.
type MessageTemplate func(TemplateData) string

// DefaultMessageTemplate embeds the app name, nonce, origin and chain id.
func DefaultMessageTemplate(d TemplateData) string {
	return fmt.Sprintf(
		"%s wants you to sign in with your wallet.\n\nOrigin: %s\nChain ID: %d\nNonce: %s",
		d.AppName, d.Origin, d.ChainID, d.Nonce,
	)
}

// ConnectInfo is the payload of the connect event.
type ConnectInfo struct {
	ChainID string `json:"chainId"`
}

// ProviderConfig is the static configuration a provider answers from.
type ProviderConfig struct {
	AppName         string
	ChainID         uint64
	Origin          string
	ExchangeTimeout time.Duration
	Template        MessageTemplate
}

// Provider exposes the standardized request/response method surface. It
// consults the session store for fast-path answers, runs popup exchanges for
// the rest, and translates every outcome into the fixed error-code
// vocabulary.
type Provider struct {
	cfg       ProviderConfig
	sessions  *Sessions
	client    *ProtocolClient
	verifier  Verifier
	registry  ports.IdentityRegistry
	publisher ports.EventPublisher
	listeners *listenerRegistry
	log       logger.Logger
	rec       metrics.Recorder
}

// NewProvider wires a provider from its collaborators. registry and publisher
// may be nil.
func NewProvider(
	cfg ProviderConfig,
	sessions *Sessions,
	client *ProtocolClient,
	registry ports.IdentityRegistry,
	publisher ports.EventPublisher,
	log logger.Logger,
	rec metrics.Recorder,
) *Provider {
	if cfg.Template == nil {
		cfg.Template = DefaultMessageTemplate
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = core.DefaultExchangeTimeout
	}
	return &Provider{
		cfg:       cfg,
		sessions:  sessions,
		client:    client,
		registry:  registry,
		publisher: publisher,
		listeners: newListenerRegistry(log),
		log:       log,
		rec:       rec,
	}
}

// Request dispatches one provider call. Failures are always reported as
// *core.ProviderError.
func (p *Provider) Request(ctx context.Context, method string, params []any) (any, error) {
	started := time.Now()

	m, err := core.ParseMethod(method)
	if err != nil {
		p.observe(method, started, err)
		return nil, toProviderError(err)
	}

	result, err := p.dispatch(ctx, m, params)
	p.observe(method, started, err)
	if err != nil {
		return nil, toProviderError(err)
	}
	return result, nil
}

func (p *Provider) observe(method string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	labels := map[string]string{"method": method, "outcome": outcome}
	p.rec.IncCounter("request", labels)
	p.rec.ObserveLatency("request", time.Since(started), labels)
}

// dispatch is the closed method table. The switch is exhaustive over
// core.Method; an unknown value can only come from a future constant.
func (p *Provider) dispatch(ctx context.Context, m core.Method, params []any) (any, error) {
	switch m {
	case core.MethodChainID:
		return hexutil.EncodeUint64(p.cfg.ChainID), nil
	case core.MethodNetVersion:
		return strconv.FormatUint(p.cfg.ChainID, 10), nil
	case core.MethodAccounts:
		return p.accounts(ctx), nil
	case core.MethodRequestAccounts:
		return p.requestAccounts(ctx)
	case core.MethodPersonalSign, core.MethodLegacySign:
		return p.signMessage(ctx, m, params)
	case core.MethodSendTransaction:
		return p.sendTransaction(ctx, params)
	case core.MethodSwitchChain, core.MethodAddChain:
		return p.switchChain(params)
	default:
		return nil, core.ErrUnsupportedMethod
	}
}

// accounts answers synchronously from the session store.
func (p *Provider) accounts(ctx context.Context) []string {
	if s := p.sessions.Load(ctx); s != nil {
		return []string{s.Account()}
	}
	return []string{}
}

// requestAccounts returns the existing session's address when one is valid,
// otherwise runs the sign-in exchange, verifies the reply, persists a fresh
// session and notifies listeners.
func (p *Provider) requestAccounts(ctx context.Context) (any, error) {
	if s := p.sessions.Load(ctx); s != nil {
		return []string{s.Account()}, nil
	}

	req := &core.Request{
		Method:  core.MethodRequestAccounts,
		AppName: p.cfg.AppName,
		ChainID: p.cfg.ChainID,
		Origin:  p.cfg.Origin,
		Nonce:   core.NewNonce(),
		Timeout: p.cfg.ExchangeTimeout,
	}
	message := p.cfg.Template(TemplateData{
		AppName: req.AppName,
		Nonce:   req.Nonce,
		Origin:  req.Origin,
		ChainID: req.ChainID,
	})
	req.Payload = map[string]string{"message": message}

	reply, err := p.client.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}

	address, err := p.verifier.Verify(reply, message, req.Nonce, p.cfg.ChainID)
	if err != nil {
		return nil, err
	}

	uid := p.resolveUID(ctx, address)
	session, err := p.sessions.Create(ctx, uid, address)
	if err != nil {
		return nil, err
	}

	accounts := []string{session.Account()}
	p.emitAccountsChanged(ctx, accounts)
	p.emitConnected(ctx, session)

	return accounts, nil
}

// resolveUID resolves the identity handle for a verified address: registry
// lookup when one is configured, deterministic derivation otherwise.
func (p *Provider) resolveUID(ctx context.Context, address string) string {
	if p.registry != nil {
		uid, err := p.registry.Lookup(ctx, address)
		if err == nil && uid != "" {
			return uid
		}
		if err != nil {
			p.log.Warn("identity registry lookup failed", map[string]any{"address": address, "error": err.Error()})
		}
	}
	return "addr:" + strings.ToLower(address)
}

// signMessage handles personal_sign and its legacy equivalent. A valid
// session is required before any popup is opened.
func (p *Provider) signMessage(ctx context.Context, m core.Method, params []any) (any, error) {
	session := p.sessions.Load(ctx)
	if session == nil {
		return nil, core.ErrUnauthorized
	}

	message, err := normalizeSignParams(params, session.Address)
	if err != nil {
		return nil, err
	}

	req := &core.Request{
		Method:  m,
		AppName: p.cfg.AppName,
		ChainID: p.cfg.ChainID,
		Origin:  p.cfg.Origin,
		Nonce:   core.NewNonce(),
		Timeout: p.cfg.ExchangeTimeout,
		Payload: map[string]string{"message": message, "address": session.Address},
	}

	reply, err := p.client.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	if reply.Signature == "" {
		return nil, fmt.Errorf("%w: auth reply missing signature", core.ErrMalformedReply)
	}
	return reply.Signature, nil
}

// sendTransaction validates and normalizes the transaction object, then runs
// a transaction-family exchange. A valid session is required first.
func (p *Provider) sendTransaction(ctx context.Context, params []any) (any, error) {
	session := p.sessions.Load(ctx)
	if session == nil {
		return nil, core.ErrUnauthorized
	}
	if len(params) < 1 {
		return nil, core.NewProviderError(core.CodeInvalidParams, "transaction object required")
	}

	tx, err := normalizeTransaction(params[0])
	if err != nil {
		return nil, err
	}

	req := &core.Request{
		Method:  core.MethodSendTransaction,
		AppName: p.cfg.AppName,
		ChainID: p.cfg.ChainID,
		Origin:  p.cfg.Origin,
		Nonce:   core.NewNonce(),
		Timeout: p.cfg.ExchangeTimeout,
		Payload: tx,
	}

	reply, err := p.client.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	if reply.TxHash == "" {
		return nil, fmt.Errorf("%w: tx reply missing transaction hash", core.ErrMalformedReply)
	}
	return reply.TxHash, nil
}

// switchChain accepts a chain switch or add only for the configured chain;
// this provider is single-chain by design.
func (p *Provider) switchChain(params []any) (any, error) {
	requested, err := chainIDParam(params)
	if err != nil {
		return nil, err
	}
	if requested != p.cfg.ChainID {
		return nil, fmt.Errorf("%w: chain %d", core.ErrUnsupportedChain, requested)
	}
	return nil, nil
}

// Disconnect clears the session and notifies listeners.
func (p *Provider) Disconnect(ctx context.Context) error {
	session := p.sessions.Load(ctx)
	if err := p.sessions.Clear(ctx); err != nil {
		return toProviderError(err)
	}

	p.emitAccountsChanged(ctx, []string{})
	p.listeners.emit(EventDisconnect, nil)
	if p.publisher != nil && session != nil {
		if err := p.publisher.PublishDisconnected(ctx, session.Address); err != nil {
			p.log.Warn("failed to publish disconnect event", map[string]any{"error": err.Error()})
		}
	}
	return nil
}

// On registers a listener for an event name.
func (p *Provider) On(event string, fn Listener) Subscription {
	return p.listeners.add(event, fn, false)
}

// Once registers a listener removed after its first delivery.
func (p *Provider) Once(event string, fn Listener) Subscription {
	return p.listeners.add(event, fn, true)
}

// RemoveListener unregisters a previously registered listener.
func (p *Provider) RemoveListener(sub Subscription) {
	p.listeners.remove(sub)
}

// ExchangeState exposes the protocol client's last exchange state.
func (p *Provider) ExchangeState() ExchangeState {
	return p.client.State()
}

func (p *Provider) emitAccountsChanged(ctx context.Context, accounts []string) {
	p.listeners.emit(EventAccountsChanged, accounts)
	if p.publisher != nil {
		if err := p.publisher.PublishAccountsChanged(ctx, accounts); err != nil {
			p.log.Warn("failed to publish accounts event", map[string]any{"error": err.Error()})
		}
	}
}

func (p *Provider) emitConnected(ctx context.Context, session *core.Session) {
	p.listeners.emit(EventConnect, ConnectInfo{ChainID: hexutil.EncodeUint64(p.cfg.ChainID)})
	if p.publisher != nil {
		if err := p.publisher.PublishConnected(ctx, session.Address, p.cfg.ChainID); err != nil {
			p.log.Warn("failed to publish connect event", map[string]any{"error": err.Error()})
		}
	}
}
