package pickhost

import (
	"log/slog"

	"github.com/pickbasic-lsp/pickhost/config"
	"github.com/pickbasic-lsp/pickhost/middleware"
	"github.com/pickbasic-lsp/pickhost/protocol"
	"github.com/pickbasic-lsp/pickhost/transport"
)

type options struct {
	logger           *slog.Logger
	cfg              *config.Config
	transportFactory transport.Factory
	middleware       []middleware.Middleware
	selector         DocumentSelector
	clientName       string
	clientVersion    string
	watchWorkspace   bool
	onShowMessage    func(protocol.ShowMessageParams)
	onDiagnostics    func(protocol.PublishDiagnosticsParams)
}

func defaultOptions() *options {
	return &options{
		logger:         slog.Default(),
		selector:       DefaultSelector(),
		clientName:     clientName,
		clientVersion:  Version,
		watchWorkspace: true,
	}
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the session logger. The server's stderr is forwarded to
// it as well.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConfig injects a configuration instead of loading it from the user
// and workspace settings files.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithTransportFactory replaces the default subprocess transport. Used to
// connect over TCP or a socket, and by tests to connect to an in-memory
// server.
func WithTransportFactory(f transport.Factory) Option {
	return func(o *options) { o.transportFactory = f }
}

// WithTransport connects the session over an existing transport.
func WithTransport(t transport.Transport) Option {
	return WithTransportFactory(func() (transport.Transport, error) { return t, nil })
}

// WithMiddleware appends middleware to the incoming message chain.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mw...) }
}

// WithSelector replaces the default document selector.
func WithSelector(s DocumentSelector) Option {
	return func(o *options) { o.selector = s }
}

// WithClientInfo overrides the name and version announced to the server.
func WithClientInfo(name, version string) Option {
	return func(o *options) {
		o.clientName = name
		o.clientVersion = version
	}
}

// WithShowMessageHandler sets a callback for window/showMessage
// notifications from the server.
func WithShowMessageHandler(fn func(protocol.ShowMessageParams)) Option {
	return func(o *options) { o.onShowMessage = fn }
}

// WithDiagnosticsHandler sets a callback invoked after each
// publishDiagnostics notification, in addition to the cache update.
func WithDiagnosticsHandler(fn func(protocol.PublishDiagnosticsParams)) Option {
	return func(o *options) { o.onDiagnostics = fn }
}

// WithoutWorkspaceWatcher disables the on-disk file watcher. Document sync
// still works; the server just receives no workspace/didChangeWatchedFiles
// notifications.
func WithoutWorkspaceWatcher() Option {
	return func(o *options) { o.watchWorkspace = false }
}
