// Package rulegen turns a natural-language description into a validated rule
// document by running a local model command.
package rulegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tidy-go/internal/rules"
	"tidy-go/internal/tidy"
)

// SystemPrompt tells the model which document shape to produce.
const SystemPrompt = "You are a converter that ONLY outputs JSON per the schema below. " +
	"User will describe file-organization rules in Korean or English. " +
	"Return compact JSON that fits this schema:\n" +
	`{ "rules": [ { "name": string, "match": { "ext"?: [string], "name_like"?: [string] }, ` +
	`"dest": string, "options"?: { "conflict"?: "rename"|"skip"|"overwrite" } } ] }` + "\n" +
	"Do not add comments. Do not add extra keys. Do not use YAML. JSON only.\n" +
	"Output MUST be valid JSON. No markdown fences."

// ErrNotConfigured is returned when no command is set.
var ErrNotConfigured = errors.New("rule generation command is not configured (set rulegen.command)")

// CommandGenerator runs argv with the prompt on stdin and reads the document
// from stdout.
type CommandGenerator struct {
	command []string
	timeout time.Duration
	logger  tidy.Logger
}

var _ tidy.RuleGenerator = (*CommandGenerator)(nil)

// NewCommandGenerator creates a generator. A zero timeout means no limit
// beyond ctx.
func NewCommandGenerator(command []string, timeout time.Duration, logger tidy.Logger) *CommandGenerator {
	return &CommandGenerator{command: command, timeout: timeout, logger: logger}
}

// Generate returns YAML rule text that has passed validation.
func (g *CommandGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if len(g.command) == 0 {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.command[0], g.command[1:]...)
	cmd.Stdin = strings.NewReader(SystemPrompt + "\nUSER:\n" + prompt + "\nJSON:\n")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	g.logger.Debug("running rule generator", "command", g.command[0])
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("rule generator %s: %w", g.command[0], ctxErr)
		}
		return "", fmt.Errorf("rule generator %s failed: %w: %s", g.command[0], err, strings.TrimSpace(stderr.String()))
	}

	doc, err := Normalize(out.String())
	if err != nil {
		g.logger.Warn("rule generator returned an unusable document", "error", err)
		return "", err
	}
	return doc, nil
}

// Normalize strips code fences, converts JSON to YAML and validates the result.
func Normalize(raw string) (string, error) {
	text := StripCodeFences(raw)
	if text == "" {
		return "", fmt.Errorf("%w: generator returned no output", rules.ErrInvalidRule)
	}

	if strings.HasPrefix(text, "{") {
		var doc rules.Document
		dec := json.NewDecoder(strings.NewReader(text))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return "", fmt.Errorf("%w: decoding generator JSON: %v", rules.ErrInvalidRule, err)
		}
		if _, err := rules.Compile(doc); err != nil {
			return "", err
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("encoding rules as YAML: %w", err)
		}
		return string(data), nil
	}

	if _, err := rules.Parse([]byte(text)); err != nil {
		return "", err
	}
	return text + "\n", nil
}

// StripCodeFences returns the body of the first fenced block, or the trimmed
// text when there is none. A language tag after the opening fence is dropped.
func StripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	parts := strings.Split(t, "```")
	if len(parts) < 3 {
		return t
	}
	body := parts[1]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{:") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}
