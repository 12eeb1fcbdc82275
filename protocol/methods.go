package protocol

// LSP method constants used by the client.
const (
	// Lifecycle
	MethodInitialize  = "initialize"
	MethodInitialized = "initialized"
	MethodShutdown    = "shutdown"
	MethodExit        = "exit"
	MethodSetTrace    = "$/setTrace"

	// Text document sync (client -> server)
	MethodDidOpen   = "textDocument/didOpen"
	MethodDidChange = "textDocument/didChange"
	MethodDidClose  = "textDocument/didClose"
	MethodDidSave   = "textDocument/didSave"

	// Language features implemented by the Pick BASIC server
	MethodHover              = "textDocument/hover"
	MethodCompletion         = "textDocument/completion"
	MethodDefinition         = "textDocument/definition"
	MethodReferences         = "textDocument/references"
	MethodDocumentSymbol     = "textDocument/documentSymbol"
	MethodSemanticTokensFull = "textDocument/semanticTokens/full"

	// Workspace (client -> server)
	MethodDidChangeConfiguration = "workspace/didChangeConfiguration"
	MethodDidChangeWatchedFiles  = "workspace/didChangeWatchedFiles"

	// Server -> client notifications
	MethodPublishDiagnostics = "textDocument/publishDiagnostics"
	MethodLogMessage         = "window/logMessage"
	MethodShowMessage        = "window/showMessage"

	// Server -> client requests
	MethodShowMessageRequest     = "window/showMessageRequest"
	MethodWorkspaceConfiguration = "workspace/configuration"
	MethodRegisterCapability     = "client/registerCapability"
	MethodUnregisterCapability   = "client/unregisterCapability"
)
