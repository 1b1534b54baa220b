package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/vyltrex/launcher/internal/platform"
)

const luaGlobalLauncher = "launcher"

// Parser evaluates Lua config files with the host platform injected.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table undefined.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and evaluates the Lua file at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	values, err := p.ParseString(ctx, string(data))
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = path
		}
		return nil, err
	}
	return values, nil
}

// ParseString evaluates Lua code and returns the fields of its
// "launcher" table keyed by field name. Only fields the code sets are
// present, so the result layers cleanly over defaults.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (map[string]interface{}, error) {
	L := newSandboxedVM()
	defer L.Close()

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		platform.InjectPlatformTable(L, info)
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractValues(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	File    string // empty for in-memory code
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
)

// knownFields maps Lua field names to their expected value kind.
var knownFields = map[string]fieldKind{
	keyDataDir:         kindString,
	keyInstallRoot:     kindString,
	keyMetaDir:         kindString,
	keyCatalog:         kindString,
	keyUserAgent:       kindString,
	keyMaxRedirects:    kindInt,
	keyDigestAlgorithm: kindString,
	keyLogLevel:        kindString,
}

// extractValues converts the global launcher table into a flat map.
func extractValues(L *lua.LState) (map[string]interface{}, error) {
	root := L.GetGlobal(luaGlobalLauncher)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'launcher' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}

	values := make(map[string]interface{})
	var problems []string

	root.(*lua.LTable).ForEach(func(key, value lua.LValue) {
		name := key.String()
		kind, known := knownFields[name]
		if key.Type() != lua.LTString || !known {
			problems = append(problems, fmt.Sprintf("unknown field %q", name))
			return
		}
		// platform conditionals evaluate to nil on other hosts
		if value.Type() == lua.LTNil {
			return
		}

		switch kind {
		case kindString:
			if value.Type() != lua.LTString {
				problems = append(problems, fmt.Sprintf("%s: expected string, got %s", name, value.Type()))
				return
			}
			values[name] = value.String()
		case kindInt:
			n, ok := value.(lua.LNumber)
			if !ok || float64(n) != math.Trunc(float64(n)) {
				problems = append(problems, fmt.Sprintf("%s: expected integer, got %s", name, value.String()))
				return
			}
			values[name] = int(n)
		}
	})

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ParseError{
			Message: "invalid 'launcher' table",
			Detail:  strings.Join(problems, "; "),
		}
	}

	return values, nil
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	parseErr, ok := err.(*ParseError)
	if !ok {
		return err.Error()
	}

	prefix := parseErr.Message
	if parseErr.File != "" {
		prefix = parseErr.File + ": " + prefix
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", prefix, parseErr.Detail)
	}

	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", prefix, detail)
}
