// Package server implements the bfi language server.
package server

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/bfi/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "bfi-lsp"

var log = commonlog.GetLogger("bfi.lsp")

// LspServer reports bracket problems and bracket partners to editors.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("bfi LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Debugf("opened %s (%s)", params.TextDocument.URI, params.TextDocument.LanguageID)
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

// textDocumentDidChange only understands whole-document events, since the
// server advertises full sync. Anything else leaves the stored text alone.
func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	for i := len(params.ContentChanges) - 1; i >= 0; i-- {
		if whole, ok := params.ContentChanges[i].(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, uri, whole.Text)
			return nil
		}
	}
	log.Debugf("%s: ignoring %d incremental changes", uri, len(params.ContentChanges))
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.mu.Lock()
	delete(s.docs, string(uri))
	open := len(s.docs)
	s.mu.Unlock()
	log.Debugf("closed %s, %d documents open", uri, open)

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update stores the new text for uri and republishes its diagnostics.
func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
	s.publishDiagnostics(ctx, uri, text)
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return hoverAt(text, params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	loc := definitionAt(uri, text, params.Position)
	if loc == nil {
		return nil, nil
	}
	return []protocol.Location{*loc}, nil
}

func hoverAt(text string, pos protocol.Position) *protocol.Hover {
	idx, ok := bracketAt(text, pos)
	if !ok {
		return nil
	}
	partner, depth := vm.Pairs(text)
	at := positionOf(text, idx)

	var value string
	if other, found := partner[idx]; found {
		op := positionOf(text, other)
		value = fmt.Sprintf("bracket at %d:%d, depth %d, matches %d:%d (ip %d)",
			at.Line+1, at.Character+1, depth[idx], op.Line+1, op.Character+1, other)
	} else {
		value = fmt.Sprintf("bracket at %d:%d has no partner", at.Line+1, at.Character+1)
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindPlainText,
			Value: value,
		},
	}
}

func definitionAt(uri protocol.DocumentUri, text string, pos protocol.Position) *protocol.Location {
	idx, ok := bracketAt(text, pos)
	if !ok {
		return nil
	}
	partner, _ := vm.Pairs(text)
	other, found := partner[idx]
	if !found {
		return nil
	}
	p := positionOf(text, other)
	return &protocol.Location{
		URI:   uri,
		Range: protocol.Range{Start: p, End: protocol.Position{Line: p.Line, Character: p.Character + 1}},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diags := diagnostics(text)
	log.Debugf("%s: %d bracket problems", uri, len(diags))
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func diagnostics(text string) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	for _, e := range vm.Check(text) {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		start := positionOf(text, e.IP)
		diags = append(diags, protocol.Diagnostic{
			Range: protocol.Range{
				Start: start,
				End:   protocol.Position{Line: start.Line, Character: start.Character + 1},
			},
			Severity: &severity,
			Source:   &source,
			Message:  e.Error(),
		})
	}
	return diags
}

func boolPtr(b bool) *bool {
	return &b
}
