package pickhost

import "github.com/pickbasic-lsp/pickhost/protocol"

// clientCapabilities announces what this client supports during initialize.
func clientCapabilities() protocol.ClientCapabilities {
	return protocol.ClientCapabilities{
		Workspace: &protocol.WorkspaceClientCapabilities{
			Configuration:    true,
			WorkspaceFolders: true,
			DidChangeWatchedFiles: &protocol.DidChangeWatchedFilesClientCapabilities{
				DynamicRegistration:    true,
				RelativePatternSupport: false,
			},
			DidChangeConfiguration: &protocol.DynamicRegistrationClientCapabilities{
				DynamicRegistration: true,
			},
		},
		TextDocument: &protocol.TextDocumentClientCapabilities{
			Synchronization: &protocol.TextDocumentSyncClientCapabilities{
				DidSave: true,
			},
			Completion: &protocol.CompletionClientCapabilities{
				ContextSupport: true,
			},
			Hover: &protocol.HoverClientCapabilities{
				ContentFormat: []protocol.MarkupKind{protocol.Markdown, protocol.PlainText},
			},
			PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{
				VersionSupport: true,
			},
		},
		Window: &protocol.WindowClientCapabilities{},
	}
}
