package lsptest

import (
	"fmt"
	"strings"

	"github.com/pickbasic-lsp/pickhost/protocol"
)

// FileURI creates a file:// URI from a path.
func FileURI(path string) protocol.DocumentURI {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return protocol.DocumentURI(fmt.Sprintf("file://%s", path))
}

// Pos creates a protocol.Position from line and character (0-indexed).
func Pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

// Rng creates a protocol.Range from start and end positions.
func Rng(startLine, startChar, endLine, endChar uint32) protocol.Range {
	return protocol.Range{
		Start: Pos(startLine, startChar),
		End:   Pos(endLine, endChar),
	}
}

// SampleProgram is a small Pick BASIC program for tests.
const SampleProgram = `PROGRAM INVOICE
OPEN "CUSTOMERS" TO CUST.FILE ELSE STOP 201
READ REC FROM CUST.FILE, CUST.ID THEN
   PRINT REC<1>
END
STOP
`

// Diag builds a diagnostic spanning one line.
func Diag(line uint32, severity protocol.DiagnosticSeverity, message string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    Rng(line, 0, line, 1),
		Severity: severity,
		Source:   "pickbasic",
		Message:  message,
	}
}
