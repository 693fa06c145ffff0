package templator

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/woozymasta/templator/internal/logging"
)

// DefaultDelimiter separates keys from values in pairs and .env files.
const DefaultDelimiter = "="

// ParsePairs builds a source from KEY=VALUE strings given on the command line.
// Malformed pairs are dropped with a warning, a repeated key is an error.
func ParsePairs(pairs []string) (*Source, error) {
	logger := logging.GetLogger("input")
	src := NewSource("--set")

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, DefaultDelimiter)
		if !ok {
			logger.Warn().Str("pair", pair).Msgf("no valid delimiter (%s)", DefaultDelimiter)
			continue
		}

		if err := src.Add(strings.TrimSpace(key), strings.Trim(value, " \n")); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				return nil, fmt.Errorf("cannot pass the same key multiple times with '-s|--set': %w", err)
			}
			logger.Warn().Err(err).Str("pair", pair).Msg("skipping entry")
		}
	}

	return src, nil
}

// ReadInputFile builds a source from a .env, .json, .yaml or .yml file.
// delimiter is only used for .env files, an empty value selects DefaultDelimiter.
func ReadInputFile(path, delimiter string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("input file %q: %w", path, ErrNotFound)
	}

	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file %q: %w", path, err)
	}

	ext := pathSuffix(path)
	if filepath.Base(path) == ".env" {
		ext = ".env"
	}

	src := NewSource(path)
	switch ext {
	case ".env":
		err = parseEnv(src, bytes.NewReader(data), delimiter)
	case ".json":
		err = parseJSON(src, data)
	case ".yaml", ".yml":
		err = parseYAML(src, data)
	default:
		return nil, fmt.Errorf("%w: %q does not end with '.env', '.json' or '.yaml'", ErrUnsupportedInput, path)
	}
	if err != nil {
		return nil, err
	}

	return src, nil
}

// parseEnv reads KEY<delimiter>VALUE lines. Blank lines and lines starting
// with '#' are ignored, quotes around values are removed.
func parseEnv(src *Source, r io.Reader, delimiter string) error {
	logger := logging.GetLogger("input").With().Str("file", src.Name).Logger()

	scanner := bufio.NewScanner(r)
	nr := 0
	for scanner.Scan() {
		nr++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, delimiter)
		if !ok {
			logger.Warn().Int("line", nr).Msgf("no valid delimiter (%s)", delimiter)
			continue
		}

		err := src.Add(strings.TrimSpace(key), strings.Trim(value, " '\"\n"))
		switch {
		case errors.Is(err, ErrDuplicateKey):
			return fmt.Errorf("line %d: %w", nr, err)
		case err != nil:
			logger.Warn().Err(err).Int("line", nr).Msg("skipping entry")
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %q: %w", src.Name, err)
	}

	return nil
}

// parseJSON reads a flat JSON object keeping the key order of the document.
// Later keys overwrite earlier ones, non-string values keep their JSON text.
func parseJSON(src *Source, data []byte) error {
	logger := logging.GetLogger("input").With().Str("file", src.Name).Logger()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse %q: %w", src.Name, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("parse %q: top level value must be an object", src.Name)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse %q: %w", src.Name, err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("parse %q: %w", src.Name, err)
		}

		if err := src.Set(key, jsonValue(raw)); err != nil {
			logger.Warn().Err(err).Msg("skipping entry")
		}
	}

	return nil
}

func jsonValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return ""
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}

	return buf.String()
}

// parseYAML reads a flat YAML mapping keeping the key order of the document.
// Nested values are stored in their YAML flow form.
func parseYAML(src *Source, data []byte) error {
	logger := logging.GetLogger("input").With().Str("file", src.Name).Logger()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %q: %w", src.Name, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("parse %q: top level value must be a mapping", src.Name)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		if err := src.Set(key.Value, yamlValue(value)); err != nil {
			logger.Warn().Err(err).Int("line", key.Line).Msg("skipping entry")
		}
	}

	return nil
}

func yamlValue(n *yaml.Node) string {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	if n.Kind == yaml.ScalarNode {
		if n.Tag == "!!null" {
			return ""
		}
		return n.Value
	}

	flow := *n
	flow.Style = yaml.FlowStyle
	out, err := yaml.Marshal(&flow)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(out))
}
