package cookbook

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
)

// stringAttributes are metadata.rb keywords taking a single string argument.
var stringAttributes = map[string]bool{
	"name":             true,
	"version":          true,
	"maintainer":       true,
	"maintainer_email": true,
	"license":          true,
	"description":      true,
	"long_description": true,
	"source_url":       true,
	"issues_url":       true,
	"chef_version":     true,
}

// rbArg is one argument of a metadata.rb statement.
type rbArg struct {
	value   string
	literal bool
}

func parseMetadataRBFile(path string) (map[string]any, error) {
	//nolint:gosec // path is inside a store-owned cookbook directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fields, err := parseMetadataRB(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fields, nil
}

// heredocRe matches a heredoc opener such as <<-EOH, <<~TEXT or <<'EOS'.
var heredocRe = regexp.MustCompile(`<<[-~]?['"]?([A-Za-z_][A-Za-z0-9_]*)['"]?`)

// parseMetadataRB evaluates the declarative subset of the Chef metadata DSL.
// Statements it does not know are skipped; malformed literals are errors.
// Heredoc bodies are skipped and a statement ending in a comma continues on
// the next line.
func parseMetadataRB(data []byte) (map[string]any, error) {
	fields := map[string]any{
		keyDependencies: map[string]string{},
		keyPlatforms:    map[string]string{},
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var (
		lineNo    int
		startLine int
		pending   string
		heredoc   string
	)
	for scanner.Scan() {
		lineNo++
		if heredoc != "" {
			if strings.TrimSpace(scanner.Text()) == heredoc {
				heredoc = ""
			}
			continue
		}
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}
		if pending != "" {
			line = pending + " " + line
		} else {
			startLine = lineNo
		}
		if m := heredocRe.FindStringSubmatch(line); m != nil {
			heredoc = m[1]
		}
		if heredoc == "" && strings.HasSuffix(line, ",") {
			pending = line
			continue
		}
		pending = ""
		if err := evalStatement(fields, line); err != nil {
			return nil, fmt.Errorf("%w at line %d: %w", helpers.ErrMetadataSyntax, startLine, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pending != "" {
		return nil, fmt.Errorf("%w at line %d: statement ends with a comma", helpers.ErrMetadataSyntax, startLine)
	}
	if heredoc != "" {
		return nil, fmt.Errorf("%w at line %d: heredoc %s is not terminated", helpers.ErrMetadataSyntax, startLine, heredoc)
	}
	return fields, nil
}

func evalStatement(fields map[string]any, line string) error {
	keyword, rest := splitKeyword(line)
	if keyword == "" {
		return nil
	}
	args, err := parseArgs(rest)
	if err != nil {
		return err
	}
	return applyStatement(fields, keyword, args)
}

func applyStatement(fields map[string]any, keyword string, args []rbArg) error {
	switch {
	case stringAttributes[keyword]:
		if len(args) == 0 {
			return fmt.Errorf("%s requires an argument", keyword)
		}
		if !args[0].literal {
			if keyword == keyName || keyword == keyVersion {
				return fmt.Errorf("%s must be a string literal", keyword)
			}
			return nil
		}
		fields[keyword] = args[0].value
	case keyword == "depends" || keyword == "supports":
		if len(args) == 0 {
			return fmt.Errorf("%s requires a name", keyword)
		}
		// Names or constraints computed at runtime (loops over platforms) cannot be known here.
		if !args[0].literal || len(args) > 1 && !args[1].literal {
			return nil
		}
		constraint := ""
		if len(args) > 1 {
			constraint = args[1].value
		}
		key := keyDependencies
		if keyword == "supports" {
			key = keyPlatforms
		}
		fields[key].(map[string]string)[args[0].value] = constraint
	}
	return nil
}

// splitKeyword returns the leading identifier of a statement and its arguments.
func splitKeyword(line string) (string, string) {
	end := 0
	for end < len(line) && (line[end] == '_' || line[end] >= 'a' && line[end] <= 'z') {
		end++
	}
	if end == 0 {
		return "", ""
	}
	if end < len(line) && line[end] != ' ' && line[end] != '\t' && line[end] != '(' {
		return "", ""
	}
	return line[:end], strings.TrimSpace(line[end:])
}

// parseArgs splits a comma separated argument list. Quoted strings become
// literals; the first non-literal swallows the rest of the statement.
func parseArgs(rest string) ([]rbArg, error) {
	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return nil, fmt.Errorf("unbalanced parentheses in %q", rest)
		}
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	var args []rbArg
	for rest != "" {
		var (
			arg rbArg
			err error
		)
		arg, rest, err = nextArg(rest)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, fmt.Errorf("unexpected %q", rest)
		}
		rest = strings.TrimSpace(rest[1:])
	}
	return args, nil
}

func nextArg(s string) (rbArg, string, error) {
	quote := s[0]
	if quote != '\'' && quote != '"' {
		return rbArg{value: strings.TrimSpace(s)}, "", nil
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(s[i])
			continue
		}
		if c == quote {
			return rbArg{value: b.String(), literal: true}, s[i+1:], nil
		}
		b.WriteByte(c)
	}
	return rbArg{}, "", fmt.Errorf("unterminated string in %q", s)
}

// stripComment drops a trailing # comment that is not inside a string.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote == 0 && c == '#':
			return line[:i]
		}
	}
	return line
}
